package acquire

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reelsync/internal/browse"
	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/queue"
	"reelsync/internal/storage"
)

type fakeElement struct {
	visible  bool
	enabled  bool
	clickErr error
	clicks   int
	attrs    map[string]string
}

func (e *fakeElement) IsVisible(ctx context.Context) (bool, error) { return e.visible, nil }
func (e *fakeElement) IsEnabled(ctx context.Context) (bool, error) { return e.enabled, nil }
func (e *fakeElement) Click(ctx context.Context) error {
	e.clicks++
	return e.clickErr
}
func (e *fakeElement) ReadAttribute(ctx context.Context, name string) (string, error) {
	if e.attrs == nil {
		return "", nil
	}
	return e.attrs[name], nil
}

type fakePage struct {
	url           string
	navErr        error
	elements      map[string]browse.Element
	afterScroll   map[string]browse.Element
	scrolled      bool
	downloadEvent browse.DownloadEvent
	downloadErr   error
	cookies       []*http.Cookie
	closed        bool
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.navErr != nil {
		return p.navErr
	}
	p.url = url
	return nil
}
func (p *fakePage) URL() string { return p.url }
func (p *fakePage) Locate(ctx context.Context, selector string, policy browse.WaitPolicy) (browse.Element, error) {
	if element, ok := p.elements[selector]; ok {
		return element, nil
	}
	if p.scrolled {
		if element, ok := p.afterScroll[selector]; ok {
			return element, nil
		}
	}
	return nil, errors.New("not found")
}
func (p *fakePage) ScrollToBottom(ctx context.Context) error {
	p.scrolled = true
	return nil
}
func (p *fakePage) AwaitDownloadEvent(ctx context.Context, policy browse.WaitPolicy) (browse.DownloadEvent, error) {
	if p.downloadErr != nil {
		return browse.DownloadEvent{}, p.downloadErr
	}
	if p.downloadEvent.URL == "" {
		return browse.DownloadEvent{}, errors.New("no download observed")
	}
	return p.downloadEvent, nil
}
func (p *fakePage) Cookies(ctx context.Context) ([]*http.Cookie, error) { return p.cookies, nil }
func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type pageResult struct {
	page *fakePage
	err  error
}

type fakeSession struct {
	listing  *fakePage
	newPages []pageResult
	awaits   int
}

func (s *fakeSession) OpenPage(ctx context.Context) (browse.Page, error) { return s.listing, nil }
func (s *fakeSession) AwaitNewPage(ctx context.Context, policy browse.WaitPolicy) (browse.Page, error) {
	if s.awaits >= len(s.newPages) {
		return nil, errors.New("no new page")
	}
	result := s.newPages[s.awaits]
	s.awaits++
	if result.err != nil {
		return nil, result.err
	}
	return result.page, nil
}
func (s *fakeSession) Close() error { return nil }

type fakeUploader struct {
	calls   int
	err     error
	results []error
}

func (u *fakeUploader) PutAsset(ctx context.Context, localPath, desiredName string) (storage.PutResult, error) {
	call := u.calls
	u.calls++
	if u.err != nil {
		return storage.PutResult{}, u.err
	}
	if call < len(u.results) && u.results[call] != nil {
		return storage.PutResult{}, u.results[call]
	}
	return storage.PutResult{RemoteID: "remote-1", RemoteURL: "https://example.com/remote-1"}, nil
}

type fakeFetcher struct {
	dir     string
	err     error
	errs    []error
	calls   int
	lastReq FetchRequest
}

func (f *fakeFetcher) Fetch(ctx context.Context, req FetchRequest) (string, error) {
	call := f.calls
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	if call < len(f.errs) && f.errs[call] != nil {
		return "", f.errs[call]
	}
	path := filepath.Join(f.dir, "scratch.bin")
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func testAcquisition() config.Acquisition {
	return config.Acquisition{
		MaxAttempts:       3,
		AttemptRetryDelay: 1,
		ElementWait:       1,
		NewContextWait:    1,
		ChallengeWait:     1,
		DownloadTimeout:   1,
	}
}

func newTestStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func enqueue(t *testing.T, store *queue.Store) *queue.Item {
	t.Helper()
	item, err := store.Enqueue(context.Background(), &queue.Item{
		Title: "Movie Name (2023)",
		URL:   "https://catalog.example.com/movie-name",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return item
}

func clickableTrigger() *fakeElement {
	return &fakeElement{visible: true, enabled: true}
}

func intermediaryWithLink(url string) *fakePage {
	return &fakePage{
		url: "https://intermediary.example.com/gate",
		elements: map[string]browse.Element{
			"a.btn.btn-success": &fakeElement{
				visible: true, enabled: true,
				attrs: map[string]string{"href": url},
			},
		},
	}
}

func TestProcessHappyPath(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	trigger := clickableTrigger()
	session := &fakeSession{
		listing: &fakePage{elements: map[string]browse.Element{
			"a.btn.btn-primary.download-btn": trigger,
		}},
		newPages: []pageResult{{page: intermediaryWithLink("https://cdn.example.com/file.mkv")}},
	}
	uploader := &fakeUploader{}
	fetcher := &fakeFetcher{dir: t.TempDir()}

	orch := New(session, store, uploader, fetcher, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if item.Status != queue.StatusSucceeded {
		t.Fatalf("status = %q, want succeeded", item.Status)
	}
	if item.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", item.Attempts)
	}
	if item.DownloadURL != "https://cdn.example.com/file.mkv" {
		t.Fatalf("download url = %q", item.DownloadURL)
	}
	if item.RemoteURL != "https://example.com/remote-1" {
		t.Fatalf("remote url = %q", item.RemoteURL)
	}
	if fetcher.lastReq.Referrer != "https://intermediary.example.com/gate" {
		t.Fatalf("referrer = %q", fetcher.lastReq.Referrer)
	}
	if _, err := os.Stat(filepath.Join(fetcher.dir, "scratch.bin")); !os.IsNotExist(err) {
		t.Fatal("scratch file should be removed after successful upload")
	}

	persisted, err := store.GetByID(context.Background(), item.ID)
	if err != nil || persisted == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if persisted.Status != queue.StatusSucceeded {
		t.Fatalf("persisted status = %q", persisted.Status)
	}
}

func TestProcessSucceedsOnThirdAttempt(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	trigger := clickableTrigger()
	session := &fakeSession{
		listing: &fakePage{elements: map[string]browse.Element{
			"a.btn.btn-primary.download-btn": trigger,
		}},
		newPages: []pageResult{
			{err: errors.New("timeout")},
			{err: errors.New("timeout")},
			{page: intermediaryWithLink("https://cdn.example.com/file.mkv")},
		},
	}

	orch := New(session, store, &fakeUploader{}, &fakeFetcher{dir: t.TempDir()}, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if item.Status != queue.StatusSucceeded {
		t.Fatalf("status = %q, want succeeded", item.Status)
	}
	if item.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", item.Attempts)
	}
	if trigger.clicks != 3 {
		t.Fatalf("trigger clicked %d times, want 3", trigger.clicks)
	}
}

func TestProcessExhaustsAttempts(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	trigger := clickableTrigger()
	session := &fakeSession{
		listing: &fakePage{elements: map[string]browse.Element{
			"a.btn.btn-primary.download-btn": trigger,
		}},
		// Every attempt times out waiting for the intermediary tab.
	}

	orch := New(session, store, &fakeUploader{}, &fakeFetcher{dir: t.TempDir()}, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if item.Status != queue.StatusExhaustedRetries {
		t.Fatalf("status = %q, want exhausted_retries", item.Status)
	}
	if trigger.clicks != 3 {
		t.Fatalf("trigger clicked %d times, want exactly 3", trigger.clicks)
	}
	if item.ErrorMessage == "" {
		t.Fatal("exhausted item should carry the last error")
	}
}

func TestProcessNoTriggerFound(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	listing := &fakePage{elements: map[string]browse.Element{}}
	session := &fakeSession{listing: listing}

	orch := New(session, store, &fakeUploader{}, &fakeFetcher{dir: t.TempDir()}, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if item.Status != queue.StatusNoLinkFound {
		t.Fatalf("status = %q, want no_link_found", item.Status)
	}
	if !listing.scrolled {
		t.Fatal("expected a scroll retry before giving up")
	}
}

func TestProcessTriggerRevealedByScroll(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	trigger := clickableTrigger()
	session := &fakeSession{
		listing: &fakePage{
			elements:    map[string]browse.Element{},
			afterScroll: map[string]browse.Element{"a.dl-button": trigger},
		},
		newPages: []pageResult{{page: intermediaryWithLink("https://cdn.example.com/file.mkv")}},
	}

	orch := New(session, store, &fakeUploader{}, &fakeFetcher{dir: t.TempDir()}, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if item.Status != queue.StatusSucceeded {
		t.Fatalf("status = %q, want succeeded", item.Status)
	}
}

func TestProcessNotClickableIsImmediatelyTerminal(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	trigger := &fakeElement{visible: true, enabled: false}
	session := &fakeSession{
		listing: &fakePage{elements: map[string]browse.Element{
			"a.btn.btn-primary.download-btn": trigger,
		}},
	}

	orch := New(session, store, &fakeUploader{}, &fakeFetcher{dir: t.TempDir()}, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if item.Status != queue.StatusNotClickable {
		t.Fatalf("status = %q, want not_clickable", item.Status)
	}
	if trigger.clicks != 0 {
		t.Fatalf("disabled trigger clicked %d times", trigger.clicks)
	}
}

func TestProcessDownloadEventFallback(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	intermediary := &fakePage{
		url: "https://intermediary.example.com/gate",
		downloadEvent: browse.DownloadEvent{
			URL:           "https://cdn.example.com/event.mkv",
			SuggestedName: "Movie.Name.2023.mkv",
		},
	}
	session := &fakeSession{
		listing: &fakePage{elements: map[string]browse.Element{
			"a.btn.btn-primary.download-btn": clickableTrigger(),
		}},
		newPages: []pageResult{{page: intermediary}},
	}
	fetcher := &fakeFetcher{dir: t.TempDir()}

	orch := New(session, store, &fakeUploader{}, fetcher, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if item.Status != queue.StatusSucceeded {
		t.Fatalf("status = %q, want succeeded", item.Status)
	}
	if fetcher.lastReq.URL != "https://cdn.example.com/event.mkv" {
		t.Fatalf("fetched %q, want event url", fetcher.lastReq.URL)
	}
	if fetcher.lastReq.SuggestedName != "Movie.Name.2023.mkv" {
		t.Fatalf("suggested name = %q", fetcher.lastReq.SuggestedName)
	}
}

func TestProcessExtractionFailure(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	// Intermediary opens but never exposes a link or download event.
	session := &fakeSession{
		listing: &fakePage{elements: map[string]browse.Element{
			"a.btn.btn-primary.download-btn": clickableTrigger(),
		}},
		newPages: []pageResult{
			{page: &fakePage{url: "https://intermediary.example.com/1"}},
			{page: &fakePage{url: "https://intermediary.example.com/2"}},
			{page: &fakePage{url: "https://intermediary.example.com/3"}},
		},
	}

	orch := New(session, store, &fakeUploader{}, &fakeFetcher{dir: t.TempDir()}, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if item.Status != queue.StatusExtractionFailed {
		t.Fatalf("status = %q, want extraction_failed", item.Status)
	}
	for i, result := range session.newPages {
		if !result.page.closed {
			t.Errorf("intermediary %d left open", i)
		}
	}
}

func TestProcessChallengeFailure(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	stuck := &fakePage{
		url: "https://intermediary.example.com/gate",
		elements: map[string]browse.Element{
			"#challenge-stage": &fakeElement{visible: true, enabled: true},
		},
	}
	session := &fakeSession{
		listing: &fakePage{elements: map[string]browse.Element{
			"a.btn.btn-primary.download-btn": clickableTrigger(),
		}},
		newPages: []pageResult{{page: stuck}, {page: stuck}, {page: stuck}},
	}

	orch := New(session, store, &fakeUploader{}, &fakeFetcher{dir: t.TempDir()}, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if item.Status != queue.StatusChallengeFailed {
		t.Fatalf("status = %q, want challenge_failed", item.Status)
	}
}

func TestProcessDownloadFailureExhaustsAttempts(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	// Every attempt extracts the link fine but the fetch keeps failing, so
	// the item burns its full attempt budget before going terminal.
	trigger := clickableTrigger()
	session := &fakeSession{
		listing: &fakePage{elements: map[string]browse.Element{
			"a.btn.btn-primary.download-btn": trigger,
		}},
		newPages: []pageResult{
			{page: intermediaryWithLink("https://cdn.example.com/file.mkv")},
			{page: intermediaryWithLink("https://cdn.example.com/file.mkv")},
			{page: intermediaryWithLink("https://cdn.example.com/file.mkv")},
		},
	}
	fetcher := &fakeFetcher{dir: t.TempDir(), err: errors.New("connection reset")}

	orch := New(session, store, &fakeUploader{}, fetcher, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if item.Status != queue.StatusDownloadFailed {
		t.Fatalf("status = %q, want download_failed", item.Status)
	}
	if item.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", item.Attempts)
	}
	if trigger.clicks != 3 {
		t.Fatalf("trigger clicked %d times, want 3", trigger.clicks)
	}
	if fetcher.calls != 3 {
		t.Fatalf("fetch called %d times, want 3", fetcher.calls)
	}
	if item.DownloadURL != "https://cdn.example.com/file.mkv" {
		t.Fatalf("download url should be recorded, got %q", item.DownloadURL)
	}
}

func TestProcessDownloadRecoversWithinAttemptBudget(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	trigger := clickableTrigger()
	session := &fakeSession{
		listing: &fakePage{elements: map[string]browse.Element{
			"a.btn.btn-primary.download-btn": trigger,
		}},
		newPages: []pageResult{
			{page: intermediaryWithLink("https://cdn.example.com/file.mkv")},
			{page: intermediaryWithLink("https://cdn.example.com/file.mkv")},
			{page: intermediaryWithLink("https://cdn.example.com/file.mkv")},
		},
	}
	fetcher := &fakeFetcher{
		dir:  t.TempDir(),
		errs: []error{errors.New("connection reset"), errors.New("connection reset")},
	}

	orch := New(session, store, &fakeUploader{}, fetcher, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if item.Status != queue.StatusSucceeded {
		t.Fatalf("status = %q, want succeeded", item.Status)
	}
	if item.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", item.Attempts)
	}
	if trigger.clicks != 3 {
		t.Fatalf("trigger clicked %d times, want a fresh click per fetch attempt", trigger.clicks)
	}
}

func TestProcessUploadFailureKeepsDownloadURL(t *testing.T) {
	store := newTestStore(t)
	item := enqueue(t, store)

	session := &fakeSession{
		listing: &fakePage{elements: map[string]browse.Element{
			"a.btn.btn-primary.download-btn": clickableTrigger(),
		}},
		newPages: []pageResult{{page: intermediaryWithLink("https://cdn.example.com/file.mkv")}},
	}
	uploader := &fakeUploader{err: errors.New("storage rejected the file")}
	fetcher := &fakeFetcher{dir: t.TempDir()}

	orch := New(session, store, uploader, fetcher, testAcquisition(), logging.NewNop(), WithSleep(noSleep))
	if err := orch.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if item.Status != queue.StatusUploadFailed {
		t.Fatalf("status = %q, want upload_failed", item.Status)
	}
	if item.DownloadURL != "https://cdn.example.com/file.mkv" {
		t.Fatal("upload failure must keep the direct link for manual retry")
	}
	if item.ErrorMessage == "" {
		t.Fatal("upload failure must record the error")
	}
	if _, err := os.Stat(filepath.Join(fetcher.dir, "scratch.bin")); err != nil {
		t.Fatal("scratch file must survive an upload failure")
	}

	persisted, err := store.GetByID(context.Background(), item.ID)
	if err != nil || persisted == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if persisted.Status != queue.StatusUploadFailed || persisted.DownloadURL == "" {
		t.Fatalf("persisted item inconsistent: %+v", persisted)
	}
}
