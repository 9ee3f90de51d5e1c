package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"
)

// FetchExhaustedError reports a page download that failed every allowed
// attempt.
type FetchExhaustedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("fetch of %s exhausted after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }

// Fetcher downloads single page images. The http.Client is shared by all
// concurrent fetches; it is stateless per request so no locking is needed.
type Fetcher struct {
	client *http.Client

	// MaxAttempts bounds the retry loop. 0 retries forever, matching the
	// old "eventually succeeds or hangs" behavior for supervised runs.
	MaxAttempts int
}

// NewFetcher wraps client, falling back to http.DefaultClient if nil.
func NewFetcher(client *http.Client, maxAttempts int) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, MaxAttempts: maxAttempts}
}

// Fetch retrieves url into destPath. The body is written to a temporary
// .part file and renamed into place only after a complete, flushed write,
// so a failed attempt never leaves a partial file behind. Transient
// failures are retried with exponential backoff and jitter until success,
// MaxAttempts, or context cancellation.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) error {
	var lastErr error
	for attempt := 0; f.MaxAttempts == 0 || attempt < f.MaxAttempts; attempt++ {
		if attempt > 0 {
			slog.Warn("Page fetch failed, will retry.",
				"url", url,
				"attempt", attempt,
				"error", lastErr,
			)
			select {
			case <-time.After(backoffFn(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = f.fetchOnce(ctx, url, destPath); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return &FetchExhaustedError{URL: url, Attempts: f.MaxAttempts, Err: lastErr}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	partPath := destPath + ".part"
	file, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", partPath, err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(partPath)
		return fmt.Errorf("failed to write body: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(partPath)
		return fmt.Errorf("failed to flush %s: %w", partPath, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(partPath)
		return err
	}
	return os.Rename(partPath, destPath)
}

// backoffFn is swapped out in tests.
var backoffFn = backoff

// backoff returns the wait before retry n (0-indexed), capped at 30s, with
// up to 50% jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
