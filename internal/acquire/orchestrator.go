// Package acquire drives one queue item through the browser flow: locate
// the download trigger on the listing page, follow the intermediary tab it
// opens, extract the direct link, then download and upload the file. Every
// phase transition is persisted so an interrupted run can be diagnosed from
// the queue alone.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"reelsync/internal/browse"
	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/queue"
	"reelsync/internal/storage"
)

// Trigger selectors are tried in order on the listing page; link selectors
// on the intermediary page. The lists mirror the markup variants the
// supported catalog sites are known to serve.
var (
	defaultTriggerSelectors = []string{
		"a.btn.btn-primary.download-btn",
		"a[href*='download']",
		"button.download",
		"a.dl-button",
	}
	defaultLinkSelectors = []string{
		"a.btn.btn-success",
		"a[href*='pixeldrain']",
		"a#download-link",
		"a.final-link",
	}
	challengeSelector = "#challenge-stage"
)

// Uploader pushes a staged file to the storage backend.
type Uploader interface {
	PutAsset(ctx context.Context, localPath, desiredName string) (storage.PutResult, error)
}

// Orchestrator runs the acquisition flow for individual queue items.
type Orchestrator struct {
	session  browse.Session
	store    *queue.Store
	uploader Uploader
	fetcher  Fetcher
	logger   *slog.Logger

	maxAttempts       int
	attemptRetryDelay time.Duration
	elementWait       time.Duration
	newContextWait    time.Duration
	challengeWait     time.Duration

	triggerSelectors []string
	linkSelectors    []string

	// sleep is swapped in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures optional Orchestrator behavior.
type Option func(*Orchestrator)

// WithSelectors overrides the trigger and link selector lists.
func WithSelectors(trigger, link []string) Option {
	return func(o *Orchestrator) {
		if len(trigger) > 0 {
			o.triggerSelectors = trigger
		}
		if len(link) > 0 {
			o.linkSelectors = link
		}
	}
}

// WithSleep overrides the wait primitive (used in tests).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// New builds an orchestrator from the acquisition settings.
func New(session browse.Session, store *queue.Store, uploader Uploader, fetcher Fetcher, acq config.Acquisition, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		session:           session,
		store:             store,
		uploader:          uploader,
		fetcher:           fetcher,
		logger:            logging.NewComponentLogger(logger, "acquire"),
		maxAttempts:       acq.MaxAttempts,
		attemptRetryDelay: time.Duration(acq.AttemptRetryDelay) * time.Second,
		elementWait:       time.Duration(acq.ElementWait) * time.Second,
		newContextWait:    time.Duration(acq.NewContextWait) * time.Second,
		challengeWait:     time.Duration(acq.ChallengeWait) * time.Second,
		triggerSelectors:  defaultTriggerSelectors,
		linkSelectors:     defaultLinkSelectors,
		sleep:             sleepCtx,
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = 1
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// directLink is the product of the browser flow.
type directLink struct {
	url           string
	suggestedName string
	referrer      string
	cookies       []*http.Cookie
}

// Process runs one item through the full flow, persisting each phase. Job
// failures become terminal statuses on the item, not returned errors; the
// returned error covers only infrastructure faults (store writes, context
// cancellation).
func (o *Orchestrator) Process(ctx context.Context, item *queue.Item) error {
	logger := o.logger.With(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("item_title", item.Title),
	)
	logger.Info("acquisition started", logging.String("url", item.URL))

	page, err := o.session.OpenPage(ctx)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	trigger, status, err := o.locateTrigger(ctx, page, item, logger)
	if err != nil {
		return err
	}
	if status != "" {
		return o.finish(ctx, item, status, logger)
	}

	localPath, link, status, err := o.fetchAsset(ctx, trigger, item, logger)
	if err != nil {
		return err
	}
	if status != "" {
		return o.finish(ctx, item, status, logger)
	}

	return o.upload(ctx, item, localPath, link, logger)
}

// locateTrigger finds the download trigger on the listing page. The first
// locate pass runs as-is; one retry follows a scroll to the bottom for pages
// that lazy-load the download section. A trigger that exists but cannot be
// clicked is immediately terminal.
func (o *Orchestrator) locateTrigger(ctx context.Context, page browse.Page, item *queue.Item, logger *slog.Logger) (browse.Element, queue.Status, error) {
	if err := o.transition(ctx, item, queue.StatusLocatingSource); err != nil {
		return nil, "", err
	}
	if err := page.Navigate(ctx, item.URL); err != nil {
		logger.Warn("listing navigation failed", logging.Error(err))
		item.ErrorMessage = fmt.Sprintf("navigate listing: %v", err)
		return nil, queue.StatusNoLinkFound, nil
	}

	policy := browse.WaitPolicy{Timeout: o.elementWait}
	trigger := o.locateAny(ctx, page, o.triggerSelectors, policy)
	if trigger == nil {
		if err := page.ScrollToBottom(ctx); err == nil {
			trigger = o.locateAny(ctx, page, o.triggerSelectors, policy)
		}
	}
	if trigger == nil {
		logger.Warn("no download trigger on listing page")
		item.ErrorMessage = "no download trigger found"
		return nil, queue.StatusNoLinkFound, nil
	}

	visible, err := trigger.IsVisible(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("check trigger visibility: %w", err)
	}
	enabled, err := trigger.IsEnabled(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("check trigger state: %w", err)
	}
	if !visible || !enabled {
		logger.Warn("download trigger not clickable",
			logging.Bool("visible", visible),
			logging.Bool("enabled", enabled),
		)
		item.ErrorMessage = "download trigger not clickable"
		return nil, queue.StatusNotClickable, nil
	}
	return trigger, "", nil
}

func (o *Orchestrator) locateAny(ctx context.Context, page browse.Page, selectors []string, policy browse.WaitPolicy) browse.Element {
	for _, selector := range selectors {
		element, err := page.Locate(ctx, selector, policy)
		if err == nil && element != nil {
			return element
		}
	}
	return nil
}

// fetchAsset clicks the trigger, resolves the direct link from the
// intermediary tab, and downloads the file, all inside the attempt loop: a
// failed download burns the attempt like a failed extraction does, and the
// next attempt re-clicks the same trigger handle. A failed attempt closes
// its intermediary tab before the next one starts.
func (o *Orchestrator) fetchAsset(ctx context.Context, trigger browse.Element, item *queue.Item, logger *slog.Logger) (string, directLink, queue.Status, error) {
	var (
		lastFailure queue.Status
		lastErr     string
	)
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		item.Attempts = attempt
		if err := o.transition(ctx, item, queue.StatusAwaitingIntermediary); err != nil {
			return "", directLink{}, "", err
		}

		if err := trigger.Click(ctx); err != nil {
			logger.Warn("trigger click failed",
				logging.Int("attempt", attempt), logging.Error(err))
			lastFailure, lastErr = queue.StatusExhaustedRetries, fmt.Sprintf("click trigger: %v", err)
			if err := o.betweenAttempts(ctx, attempt); err != nil {
				return "", directLink{}, "", err
			}
			continue
		}

		intermediary, err := o.session.AwaitNewPage(ctx, browse.WaitPolicy{Timeout: o.newContextWait})
		if err != nil {
			logger.Warn("intermediary tab did not open",
				logging.Int("attempt", attempt), logging.Error(err))
			lastFailure, lastErr = queue.StatusExhaustedRetries, fmt.Sprintf("await intermediary: %v", err)
			if err := o.betweenAttempts(ctx, attempt); err != nil {
				return "", directLink{}, "", err
			}
			continue
		}

		link, failure, err := o.resolveOnIntermediary(ctx, intermediary, item, attempt, logger)
		_ = intermediary.Close()
		if err != nil {
			return "", directLink{}, "", err
		}
		if failure == "" {
			item.DownloadURL = link.url
			var localPath string
			localPath, failure, err = o.download(ctx, item, link, logger)
			if err != nil {
				return "", directLink{}, "", err
			}
			if failure == "" {
				return localPath, link, "", nil
			}
		}
		lastFailure = failure
		lastErr = item.ErrorMessage
		if err := o.betweenAttempts(ctx, attempt); err != nil {
			return "", directLink{}, "", err
		}
	}

	if lastFailure == "" {
		lastFailure = queue.StatusExhaustedRetries
	}
	if lastErr != "" {
		item.ErrorMessage = lastErr
	}
	logger.Warn("acquisition exhausted attempts",
		logging.Int("attempts", o.maxAttempts),
		logging.String(logging.FieldJobState, string(lastFailure)),
	)
	return "", directLink{}, lastFailure, nil
}

// resolveOnIntermediary waits out the anti-bot challenge, then reads the
// direct link. The href attribute is preferred; a download event the page
// fires on its own is the fallback. The challenge wait itself never fails an
// attempt; only what comes after can.
func (o *Orchestrator) resolveOnIntermediary(ctx context.Context, intermediary browse.Page, item *queue.Item, attempt int, logger *slog.Logger) (directLink, queue.Status, error) {
	if err := o.transition(ctx, item, queue.StatusSolvingChallenge); err != nil {
		return directLink{}, "", err
	}
	if err := o.sleep(ctx, o.challengeWait); err != nil {
		return directLink{}, "", err
	}

	if err := o.transition(ctx, item, queue.StatusExtractingLink); err != nil {
		return directLink{}, "", err
	}

	cookies, _ := intermediary.Cookies(ctx)
	base := directLink{referrer: intermediary.URL(), cookies: cookies}

	policy := browse.WaitPolicy{Timeout: o.elementWait}
	if element := o.locateAny(ctx, intermediary, o.linkSelectors, policy); element != nil {
		href, err := element.ReadAttribute(ctx, "href")
		if err == nil && href != "" {
			link := base
			link.url = href
			return link, "", nil
		}
		if err != nil {
			logger.Debug("href read failed", logging.Int("attempt", attempt), logging.Error(err))
		}
	}

	if event, err := intermediary.AwaitDownloadEvent(ctx, browse.WaitPolicy{Timeout: o.elementWait}); err == nil && event.URL != "" {
		link := base
		link.url = event.URL
		link.suggestedName = event.SuggestedName
		return link, "", nil
	}

	// Distinguish a stuck challenge from plain missing markup.
	if marker := o.locateAny(ctx, intermediary, []string{challengeSelector}, browse.WaitPolicy{}); marker != nil {
		if visible, err := marker.IsVisible(ctx); err == nil && visible {
			item.ErrorMessage = "challenge not cleared on intermediary page"
			return directLink{}, queue.StatusChallengeFailed, nil
		}
	}
	item.ErrorMessage = "no direct link on intermediary page"
	return directLink{}, queue.StatusExtractionFailed, nil
}

// betweenAttempts applies the linear inter-attempt delay, skipping it after
// the final attempt.
func (o *Orchestrator) betweenAttempts(ctx context.Context, attempt int) error {
	if attempt >= o.maxAttempts {
		return nil
	}
	return o.sleep(ctx, o.attemptRetryDelay)
}

func (o *Orchestrator) download(ctx context.Context, item *queue.Item, link directLink, logger *slog.Logger) (string, queue.Status, error) {
	if err := o.transition(ctx, item, queue.StatusDownloading); err != nil {
		return "", "", err
	}
	localPath, err := o.fetcher.Fetch(ctx, FetchRequest{
		URL:           link.url,
		Referrer:      link.referrer,
		Cookies:       link.cookies,
		SuggestedName: link.suggestedName,
		ItemTitle:     item.Title,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		logger.Warn("download failed", logging.Error(err))
		item.ErrorMessage = fmt.Sprintf("download: %v", err)
		return "", queue.StatusDownloadFailed, nil
	}
	return localPath, "", nil
}

// upload pushes the staged file and finishes the item. The scratch file is
// removed only on success; an upload failure keeps both the scratch file and
// the direct link on the item so the transfer can be retried by hand.
func (o *Orchestrator) upload(ctx context.Context, item *queue.Item, localPath string, link directLink, logger *slog.Logger) error {
	if err := o.transition(ctx, item, queue.StatusUploading); err != nil {
		return err
	}

	desiredName := link.suggestedName
	if desiredName == "" {
		desiredName = item.Title
	}
	result, err := o.uploader.PutAsset(ctx, localPath, desiredName)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		logger.Warn("upload failed", logging.Error(err))
		item.ErrorMessage = fmt.Sprintf("upload: %v", err)
		return o.finish(ctx, item, queue.StatusUploadFailed, logger)
	}

	item.RemoteID = result.RemoteID
	item.RemoteURL = result.RemoteURL
	if removeErr := os.Remove(localPath); removeErr != nil && !os.IsNotExist(removeErr) {
		logger.Warn("scratch cleanup failed",
			logging.String("path", localPath), logging.Error(removeErr))
	}
	return o.finish(ctx, item, queue.StatusSucceeded, logger)
}

func (o *Orchestrator) transition(ctx context.Context, item *queue.Item, status queue.Status) error {
	item.Status = status
	if err := o.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist status %s: %w", status, err)
	}
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, item *queue.Item, status queue.Status, logger *slog.Logger) error {
	if err := o.transition(ctx, item, status); err != nil {
		return err
	}
	if status == queue.StatusSucceeded {
		logger.Info("acquisition succeeded",
			logging.Int("attempts", item.Attempts),
			logging.String("remote_url", item.RemoteURL),
		)
	} else {
		logger.Warn("acquisition ended",
			logging.String(logging.FieldJobState, string(status)),
			logging.String("error", item.ErrorMessage),
		)
	}
	return nil
}
