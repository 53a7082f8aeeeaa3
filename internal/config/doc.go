// Package config loads, validates, and normalizes reelsync configuration.
//
// Configuration is TOML on disk with repository defaults applied first, then
// file values, then environment overrides for credentials. All path fields
// are tilde-expanded and made absolute during load.
package config
