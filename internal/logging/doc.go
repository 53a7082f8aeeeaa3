// Package logging configures structured logging for the pipeline.
//
// It wraps log/slog with a console handler for interactive use, a JSON
// handler for machine consumption, attribute helpers so call sites never
// import slog directly, and standardized field-name constants shared across
// components. Context-derived fields (item ID, stage, correlation ID) are
// attached through WithContext.
package logging
