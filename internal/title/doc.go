// Package title canonicalizes scraped release titles and remote file names.
//
// Normalize strips quality, language, codec, episodic, and year tokens so the
// reconciler compares only the words that identify a release. Classify
// inspects the raw (pre-normalization) title to route uploads to the movie or
// episodic collection. Both are pure functions.
package title
