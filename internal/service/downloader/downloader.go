// Package downloader fetches release artifacts over HTTP(S).
//
// Every request carries a context and a bounded client timeout. Non-2xx
// responses and transport errors surface as *formula.DownloadError with the
// attempted URL. An optional cache keyed by SHA-256 digest lets repeated
// installs skip the network; cached bytes are only reused when they verify.
package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	"github.com/sam-phinizy/beer-hall/internal/integrity"
	"github.com/sam-phinizy/beer-hall/internal/version"
	"github.com/sam-phinizy/beer-hall/internal/logger"
)

const (
	// DefaultTimeout bounds a download when no option overrides it.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxSize caps the accepted payload.
	DefaultMaxSize int64 = 512 << 20

	progressThrottle = 100 * time.Millisecond
	progressWidth    = 30
)

var errTooLarge = errors.New("artifact exceeds size limit")

// Downloader handles single-artifact HTTP downloads.
type Downloader struct {
	client   *http.Client
	maxSize  int64
	cacheDir string
	progress io.Writer
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithTimeout sets the overall client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// WithMaxSize caps the payload size.
func WithMaxSize(limit int64) Option {
	return func(d *Downloader) {
		if limit > 0 {
			d.maxSize = limit
		}
	}
}

// WithCacheDir enables the digest-keyed cache.
func WithCacheDir(dir string) Option {
	return func(d *Downloader) {
		d.cacheDir = dir
	}
}

// WithProgress renders a progress bar to w while downloading.
func WithProgress(w io.Writer) Option {
	return func(d *Downloader) {
		d.progress = w
	}
}

// WithHTTPClient replaces the HTTP client. Its timeout is kept unless WithTimeout follows.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// New creates a downloader.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		client:  &http.Client{Timeout: DefaultTimeout},
		maxSize: DefaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Fetch downloads url into memory.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &formula.DownloadError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", version.UserAgent())

	logger.DebugKV(ctx, "Downloading artifact", "url", url)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &formula.DownloadError{URL: url, Err: err}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &formula.DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	if resp.ContentLength > d.maxSize {
		return nil, &formula.DownloadError{URL: url, Err: fmt.Errorf("%d bytes: %w", resp.ContentLength, errTooLarge)}
	}

	var (
		buf  bytes.Buffer
		sink io.Writer = &buf
	)

	if d.progress != nil {
		bar := d.newBar(resp.ContentLength, path.Base(req.URL.Path))
		defer func() {
			_ = bar.Finish()
		}()

		sink = io.MultiWriter(&buf, bar)
	}

	n, err := io.Copy(sink, io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, &formula.DownloadError{URL: url, Err: err}
	}

	if n > d.maxSize {
		return nil, &formula.DownloadError{URL: url, Err: errTooLarge}
	}

	logger.DebugKV(ctx, "Downloaded artifact", "url", url, "bytes", n)

	return buf.Bytes(), nil
}

func (d *Downloader) newBar(size int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(d.progress),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(progressWidth),
		progressbar.OptionThrottle(progressThrottle),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Cached returns cached bytes for digest when they still verify.
// Corrupt cache entries are removed.
func (d *Downloader) Cached(ctx context.Context, digest string) ([]byte, bool) {
	if d.cacheDir == "" {
		return nil, false
	}

	cachePath := d.CachePath(digest)

	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, false
	}

	if err = integrity.Verify(data, digest); err != nil {
		logger.WarnKV(ctx, "Discarding corrupt cache entry", "path", cachePath, "error", err)
		_ = os.Remove(cachePath)

		return nil, false
	}

	return data, true
}

// Store writes verified bytes into the cache. Failures are logged, not returned.
func (d *Downloader) Store(ctx context.Context, digest string, data []byte) {
	if d.cacheDir == "" {
		return
	}

	if err := os.MkdirAll(d.cacheDir, 0o755); err != nil {
		logger.WarnKV(ctx, "Unable to create cache directory", "path", d.cacheDir, "error", err)
		return
	}

	// Write to temp file first, then rename.
	cachePath := d.CachePath(digest)
	tmpPath := cachePath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		logger.WarnKV(ctx, "Unable to write cache entry", "path", tmpPath, "error", err)
		return
	}

	if err := os.Rename(tmpPath, cachePath); err != nil {
		_ = os.Remove(tmpPath)
		logger.WarnKV(ctx, "Unable to store cache entry", "path", cachePath, "error", err)
	}
}

// CachePath returns the cache location for a digest.
func (d *Downloader) CachePath(digest string) string {
	return filepath.Join(d.cacheDir, filepath.Base(digest))
}
