package archive

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Release attributes extracted from a raw file name. Tagging is a backend
// concern: none of this feeds back into matching.
type fileMetadata struct {
	CleanTitle string
	Year       string
	Quality    string
	Language   string
	Format     string
}

var (
	yearPattern     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	qualityPattern  = regexp.MustCompile(`(?i)\b(480p|720p|1080p|2160p|4k|hdtc|hdts|hdrip|webrip|web-dl|bluray|dvdrip)\b`)
	languagePattern = regexp.MustCompile(`(?i)\b(hindi|english|dual\s*audio|org|line)\b`)
	formatPattern   = regexp.MustCompile(`(?i)\b(bluray|webrip|hdtv|dvdrip|web-dl)\b`)
	separators      = strings.NewReplacer(".", " ", "_", " ", "-", " ")
	multiSpace      = regexp.MustCompile(`\s+`)

	titleCaser = cases.Title(language.English)
)

func extractMetadata(rawName string) fileMetadata {
	meta := fileMetadata{CleanTitle: rawName}

	if match := yearPattern.FindString(meta.CleanTitle); match != "" {
		meta.Year = match
		meta.CleanTitle = strings.Replace(meta.CleanTitle, match, "", 1)
	}
	if match := qualityPattern.FindString(meta.CleanTitle); match != "" {
		meta.Quality = strings.ToLower(match)
		meta.CleanTitle = strings.Replace(meta.CleanTitle, match, "", 1)
	}
	if match := languagePattern.FindString(meta.CleanTitle); match != "" {
		meta.Language = strings.ToLower(match)
		meta.CleanTitle = strings.Replace(meta.CleanTitle, match, "", 1)
	}
	if match := formatPattern.FindString(meta.CleanTitle); match != "" {
		meta.Format = strings.ToLower(match)
		meta.CleanTitle = strings.Replace(meta.CleanTitle, match, "", 1)
	}

	meta.CleanTitle = separators.Replace(meta.CleanTitle)
	meta.CleanTitle = multiSpace.ReplaceAllString(meta.CleanTitle, " ")
	meta.CleanTitle = titleCaser.String(strings.TrimSpace(strings.ToLower(meta.CleanTitle)))
	return meta
}

func orUnknown(value string) string {
	if value == "" {
		return "Unknown"
	}
	return value
}

// metaHeaders builds the x-archive-meta-* headers for an upload. The
// description must stay single-line; archive.org rejects embedded newlines.
func metaHeaders(rawName, collection, uploader string) map[string]string {
	meta := extractMetadata(rawName)
	uploadDate := time.Now().UTC().Format("2006-01-02")

	titleText := meta.CleanTitle
	if meta.Year != "" {
		titleText = fmt.Sprintf("%s (%s)", meta.CleanTitle, meta.Year)
	}
	description := fmt.Sprintf("Title: %s | Quality: %s | Language: %s | Format: %s | Upload Date: %s",
		titleText, orUnknown(meta.Quality), orUnknown(meta.Language), orUnknown(meta.Format), uploadDate)

	subjects := make([]string, 0, 5)
	subjects = append(subjects, "reelsync", "automated-upload")
	for _, tag := range []string{meta.Quality, meta.Language, meta.Format} {
		if tag != "" {
			subjects = append(subjects, tag)
		}
	}

	headers := map[string]string{
		"x-archive-meta-title":       meta.CleanTitle,
		"x-archive-meta-description": description,
		"x-archive-meta-subject":     strings.Join(subjects, ","),
		"x-archive-meta-collection":  collection,
		"x-archive-meta-mediatype":   "movies",
		"x-archive-meta-date":        uploadDate,
	}
	if meta.Year != "" {
		headers["x-archive-meta-year"] = meta.Year
	}
	if uploader != "" {
		headers["x-archive-meta-creator"] = uploader
	}
	return headers
}
