package queue

import "time"

// Status represents the lifecycle of a queue item, from reconciliation
// through the acquisition flow to a terminal outcome.
type Status string

const (
	// StatusPending marks an item the reconciler found missing remotely.
	StatusPending Status = "pending"
	// StatusMatched marks an item already present at the storage backend.
	StatusMatched Status = "matched"

	StatusLocatingSource       Status = "locating_source"
	StatusAwaitingIntermediary Status = "awaiting_intermediary"
	StatusSolvingChallenge     Status = "solving_challenge"
	StatusExtractingLink       Status = "extracting_link"
	StatusDownloading          Status = "downloading"
	StatusUploading            Status = "uploading"

	StatusSucceeded Status = "succeeded"

	StatusNoLinkFound      Status = "no_link_found"
	StatusNotClickable     Status = "not_clickable"
	StatusChallengeFailed  Status = "challenge_failed"
	StatusExtractionFailed Status = "extraction_failed"
	StatusDownloadFailed   Status = "download_failed"
	StatusUploadFailed     Status = "upload_failed"
	StatusExhaustedRetries Status = "exhausted_retries"
)

var allStatuses = []Status{
	StatusPending,
	StatusMatched,
	StatusLocatingSource,
	StatusAwaitingIntermediary,
	StatusSolvingChallenge,
	StatusExtractingLink,
	StatusDownloading,
	StatusUploading,
	StatusSucceeded,
	StatusNoLinkFound,
	StatusNotClickable,
	StatusChallengeFailed,
	StatusExtractionFailed,
	StatusDownloadFailed,
	StatusUploadFailed,
	StatusExhaustedRetries,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// IsValid reports whether the status is one the store recognizes.
func (s Status) IsValid() bool {
	_, ok := statusSet[s]
	return ok
}

var processingStatuses = map[Status]struct{}{
	StatusLocatingSource:       {},
	StatusAwaitingIntermediary: {},
	StatusSolvingChallenge:     {},
	StatusExtractingLink:       {},
	StatusDownloading:          {},
	StatusUploading:            {},
}

var failureStatuses = map[Status]struct{}{
	StatusNoLinkFound:      {},
	StatusNotClickable:     {},
	StatusChallengeFailed:  {},
	StatusExtractionFailed: {},
	StatusDownloadFailed:   {},
	StatusUploadFailed:     {},
	StatusExhaustedRetries: {},
}

// IsProcessing reports whether the status is an in-flight acquisition phase.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// IsFailure reports whether the status is a terminal failure.
func (s Status) IsFailure() bool {
	_, ok := failureStatuses[s]
	return ok
}

// IsTerminal reports whether the item has reached an end state.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusMatched || s.IsFailure()
}

// FailureStatuses lists every terminal failure status in a stable order.
func FailureStatuses() []Status {
	return []Status{
		StatusNoLinkFound,
		StatusNotClickable,
		StatusChallengeFailed,
		StatusExtractionFailed,
		StatusDownloadFailed,
		StatusUploadFailed,
		StatusExhaustedRetries,
	}
}

// Item represents a queue item persisted in SQLite. MatchedAssetJSON holds
// the reconciler's best remote candidate as JSON; DownloadURL survives an
// upload failure so the item can be retried without repeating the browser
// flow.
type Item struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	URL              string    `json:"url,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	Source           string    `json:"source,omitempty"`
	ContentType      string    `json:"content_type,omitempty"`
	Status           Status    `json:"status"`
	MatchedAssetJSON string    `json:"matched_asset_json,omitempty"`
	MatchScore       float64   `json:"match_score"`
	Collection       string    `json:"collection,omitempty"`
	Attempts         int       `json:"attempts"`
	DownloadURL      string    `json:"download_url,omitempty"`
	RemoteID         string    `json:"remote_id,omitempty"`
	RemoteURL        string    `json:"remote_url,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Matched    int `json:"matched"`
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
}
