package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"reelsync/internal/services"
	"reelsync/internal/title"
)

// FetchRequest describes one direct-link download. Cookies and Referrer come
// from the browsing session that produced the link; some hosts refuse
// requests without them.
type FetchRequest struct {
	URL           string
	Referrer      string
	Cookies       []*http.Cookie
	SuggestedName string
	ItemTitle     string
}

// Fetcher streams a direct link into the staging directory and returns the
// local scratch path.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (string, error)
}

// Downloader is the HTTP Fetcher used in production.
type Downloader struct {
	client     *http.Client
	stagingDir string
	timeout    time.Duration
	progress   bool
}

// NewDownloader builds a downloader that stages files under stagingDir.
// Each fetch is bounded by timeout. Progress rendering is enabled only when
// stderr is a terminal.
func NewDownloader(stagingDir string, timeout time.Duration) *Downloader {
	return &Downloader{
		// The per-fetch context carries the deadline; the client itself
		// must not cut off slow but progressing transfers.
		client:     &http.Client{},
		stagingDir: stagingDir,
		timeout:    timeout,
		progress:   isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
}

// Fetch downloads the request URL into the staging directory. The scratch
// file name combines the item title, a timestamp, and the host-suggested
// name so concurrent runs never collide.
func (d *Downloader) Fetch(ctx context.Context, req FetchRequest) (string, error) {
	if req.URL == "" {
		return "", services.Wrap(services.ErrValidation, "download", "fetch", "empty url", nil)
	}

	fetchCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "download", "fetch", "build request", err)
	}
	if req.Referrer != "" {
		httpReq.Header.Set("Referer", req.Referrer)
	}
	for _, cookie := range req.Cookies {
		httpReq.AddCookie(cookie)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "download", "fetch", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := services.ErrValidation
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			marker = services.ErrTransient
		}
		return "", services.Wrap(marker, "download", "fetch",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	localPath := filepath.Join(d.stagingDir, scratchName(req.ItemTitle, req.SuggestedName))
	out, err := os.Create(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "download", "fetch", "create scratch file", err)
	}

	var writer io.Writer = out
	if d.progress {
		bar := progressbar.DefaultBytes(resp.ContentLength, "downloading")
		writer = io.MultiWriter(out, bar)
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(localPath)
		return "", services.Wrap(services.ErrTransient, "download", "fetch", "stream body", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(localPath)
		return "", services.Wrap(services.ErrConfiguration, "download", "fetch", "close scratch file", err)
	}
	return localPath, nil
}

func scratchName(itemTitle, suggestedName string) string {
	prefix := title.ScratchPrefix(itemTitle, 40)
	stamp := time.Now().UTC().Format("20060102T150405")
	suffix := title.SanitizeFileName(suggestedName)
	if suffix == "" {
		suffix = "download.bin"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, stamp, suffix)
}
