package rbn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/config"
	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/couchcryptid/rbn-top-calls/internal/observability"
	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
)

// ErrEmptyArchive is returned when a download completes with zero bytes.
var ErrEmptyArchive = errors.New("empty archive")

// Client downloads daily RBN archives into a local cache directory.
// It implements pipeline.Fetcher.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	dataDir    string
	retries    int
	backoff    time.Duration
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an archive client from the fetch settings in cfg.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		dataDir:   cfg.DataDir,
		retries:   cfg.FetchRetries,
		backoff:   cfg.FetchBackoff,
		clock:     clockwork.NewRealClock(),
		metrics:   metrics,
		logger:    logger,
	}
}

// URL returns the remote location of day's archive.
func (c *Client) URL(day time.Time) string {
	return fmt.Sprintf("%s/%s.zip", c.baseURL, domain.DayStem(day))
}

// ArchivePath returns where day's archive lives in the cache.
func (c *Client) ArchivePath(day time.Time) string {
	return filepath.Join(c.dataDir, domain.DayStem(day)+".zip")
}

// Cached returns the path of day's archive if a non-empty copy is already
// in the cache. It never touches the network.
func (c *Client) Cached(day time.Time) (string, bool) {
	path := c.ArchivePath(day)
	return path, nonEmpty(path)
}

// Fetch makes sure day's archive is in the cache and returns its path.
// A non-empty cached copy is reused without a request. Otherwise the archive
// is downloaded, retrying with linear backoff. The returned error is already
// logged; callers should skip the day rather than abort.
func (c *Client) Fetch(ctx context.Context, day time.Time) (string, error) {
	dst, ok := c.Cached(day)
	if ok {
		c.metrics.ArchiveFetches.WithLabelValues("hit").Inc()
		return dst, nil
	}
	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		c.metrics.ArchiveFetches.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("create data dir: %w", err)
	}

	u := c.URL(day)
	var err error
	attempt := 1
	for ; attempt <= c.retries; attempt++ {
		var n int64
		n, err = c.download(ctx, u, dst)
		if err == nil {
			c.metrics.ArchiveFetches.WithLabelValues("downloaded").Inc()
			c.metrics.DownloadBytes.Add(float64(n))
			c.logger.Debug("archive downloaded", "url", u, "size", humanize.Bytes(uint64(n)), "attempt", attempt)
			return dst, nil
		}
		if attempt == c.retries || ctx.Err() != nil {
			break
		}
		c.logger.Debug("archive download failed, retrying", "url", u, "attempt", attempt, "error", err)
		if !c.sleep(ctx, time.Duration(attempt)*c.backoff) {
			break
		}
	}

	c.metrics.ArchiveFetches.WithLabelValues("failed").Inc()
	c.logger.Warn("archive fetch failed", "url", u, "attempts", min(attempt, c.retries), "error", err)
	return "", fmt.Errorf("fetch %s: %w", u, err)
}

// download writes the response body to a temp file next to dst and renames
// it into place once complete, so a partial file is never taken for a hit.
func (c *Client) download(ctx context.Context, u, dst string) (int64, error) {
	start := time.Now()
	defer func() { c.metrics.DownloadDuration.Observe(time.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	n, copyErr := io.Copy(tmp, resp.Body)
	chmodErr := tmp.Chmod(0o644)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, chmodErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("write archive: %w", err)
	}
	if n == 0 {
		_ = os.Remove(tmp.Name())
		return 0, ErrEmptyArchive
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("move archive into place: %w", err)
	}
	return n, nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}

func nonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
