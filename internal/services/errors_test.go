package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := Wrap(ErrTransient, "storage", "put asset", "upload interrupted", base)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected wrapped error to match ErrTransient: %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to retain cause: %v", err)
	}
	if !strings.Contains(err.Error(), "storage: put asset") {
		t.Fatalf("expected component detail in message, got %q", err.Error())
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := Wrap(nil, "acquire", "await context", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("nil marker should default to ErrTransient: %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", Wrap(ErrTransient, "x", "y", "", nil), true},
		{"unavailable", Wrap(ErrUnavailable, "x", "y", "", nil), true},
		{"structural", Wrap(ErrStructural, "x", "y", "", nil), false},
		{"validation", Wrap(ErrValidation, "x", "y", "", nil), false},
		{"configuration", Wrap(ErrConfiguration, "x", "y", "", nil), false},
		{"unclassified", errors.New("mystery"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
