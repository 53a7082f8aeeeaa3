// Package storage defines the remote storage capability the pipeline uploads
// through, and the dispatcher that selects the configured backend, retries
// transient faults with linear backoff, and routes uploads to the collection
// matching the content category.
//
// Concrete backends live in the pixeldrain and archive subpackages.
package storage
