// Package services provides shared plumbing for the pipeline's external
// collaborators: a sentinel-based error taxonomy used to classify failures
// as transient or terminal, and context annotation helpers that thread item,
// stage, and correlation identifiers through structured logs.
package services
