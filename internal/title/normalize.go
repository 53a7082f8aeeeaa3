package title

import (
	"regexp"
	"strings"
)

// separatorReplacer collapses the separator characters release names use
// interchangeably. This runs before tag removal, so the tag patterns below
// can assume space-separated words.
var separatorReplacer = strings.NewReplacer(".", " ", "_", " ", "-", " ")

var (
	resolutionTags = regexp.MustCompile(`\b(480p|720p|1080p|2160p|4k|hdtc|hdts|hdrip|webrip|web ?dl|bluray|dvdrip)\b`)
	languageTags   = regexp.MustCompile(`\b(hindi|dual audio|org|line|x264|x265|hevc|aac|mp3|mkv|mp4|webm|mov)\b`)
	episodeTags    = regexp.MustCompile(`\b(season|s\d+|e\d+|episode)\b`)
	yearTag        = regexp.MustCompile(`\b\d{4}\b`)
	repeatedSpace  = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a raw title or file name into a comparable token
// string. The step order is significant: separators collapse to spaces first
// so the word-boundary tag patterns see individual words. A title made
// entirely of tags normalizes to the empty string.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = separatorReplacer.Replace(s)
	s = resolutionTags.ReplaceAllString(s, "")
	s = languageTags.ReplaceAllString(s, "")
	s = episodeTags.ReplaceAllString(s, "")
	s = yearTag.ReplaceAllString(s, "")
	s = repeatedSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens splits a normalized name into its space-separated tokens. Returns
// nil for an empty normalized name.
func Tokens(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}
