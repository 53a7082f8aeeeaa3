package title

import "regexp"

// ContentType tells the upload dispatcher which collection a file belongs in.
type ContentType string

const (
	ContentSingle   ContentType = "single"
	ContentEpisodic ContentType = "episodic"
)

// episodicPatterns test the raw title, not the normalized form: Normalize
// strips exactly the tokens these patterns need. The compact sNNeNN form gets
// its own pattern because digits and letters share a word boundary.
var episodicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bs\d{1,2}e\d{1,2}\b`),
	regexp.MustCompile(`(?i)\b(season|s\d+|episode|ep\d+|e\d+)\b`),
	regexp.MustCompile(`(?i)\bepisode\s*\d+\b`),
	regexp.MustCompile(`(?i)\bseason\s*\d+\b`),
}

// Classify infers the content category from a raw title. First matching
// pattern wins; a title with no episodic indicators is a single release.
func Classify(raw string) ContentType {
	for _, pattern := range episodicPatterns {
		if pattern.MatchString(raw) {
			return ContentEpisodic
		}
	}
	return ContentSingle
}
