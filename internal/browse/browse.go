// Package browse defines the capability surface the acquisition flow needs
// from a driven browser: navigating pages, locating and clicking elements,
// following newly opened tabs, and observing download activity. The flow is
// written against these interfaces so drivers and test fakes are
// interchangeable.
package browse

import (
	"context"
	"net/http"
	"time"
)

// WaitPolicy bounds how long a locate or await call may block and how often
// it re-checks.
type WaitPolicy struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// DownloadEvent describes a download the page initiated.
type DownloadEvent struct {
	URL           string
	SuggestedName string
}

// Element is a handle to a located page element. Handles go stale when the
// page navigates; callers re-locate rather than cache across navigations.
type Element interface {
	IsVisible(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	ReadAttribute(ctx context.Context, name string) (string, error)
}

// Page is one browsing surface, a tab or window. Close releases the surface;
// closing an already closed page is a no-op.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL() string
	Locate(ctx context.Context, selector string, policy WaitPolicy) (Element, error)
	ScrollToBottom(ctx context.Context) error
	AwaitDownloadEvent(ctx context.Context, policy WaitPolicy) (DownloadEvent, error)
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	Close() error
}

// Session owns the browser and its pages. AwaitNewPage resolves the next
// page the browser opens, typically in response to a click on the current
// one.
type Session interface {
	OpenPage(ctx context.Context) (Page, error)
	AwaitNewPage(ctx context.Context, policy WaitPolicy) (Page, error)
	Close() error
}
