package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"edukadl/internal/models"
)

// ImageExt is the extension of every downloaded page image.
const ImageExt = ".png"

// PagePath returns the on-disk path for a page index inside dir. The
// zero-based index is the whole base name, so a numeric sort of the
// directory reproduces page order exactly.
func PagePath(dir string, index int) string {
	return filepath.Join(dir, strconv.Itoa(index)+ImageExt)
}

// Coordinator drives page fetches over a book's locator list in strict
// lock-step batches: all fetches of one batch are launched together and the
// batch must fully drain before the next one starts, so no more than
// BatchSize transfers are ever in flight.
type Coordinator struct {
	fetcher *Fetcher

	// BatchSize is the concurrency bound. Batch boundaries follow the
	// locator sequence position, not completion order.
	BatchSize int

	// Progress enables a terminal progress bar.
	Progress bool
}

// DefaultBatchSize matches the original pipeline's group size.
const DefaultBatchSize = 10

// NewCoordinator returns a Coordinator over fetcher. batchSize values < 1
// fall back to DefaultBatchSize.
func NewCoordinator(fetcher *Fetcher, batchSize int) *Coordinator {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Coordinator{fetcher: fetcher, BatchSize: batchSize}
}

// Download fetches every locator into dir, one file per page named by its
// index. Pages already recorded complete in the sidecar manifest are
// skipped, so re-running over a partially downloaded directory only fetches
// what is missing and a complete directory performs zero writes.
func (c *Coordinator) Download(ctx context.Context, dir string, pages []models.PageLocator) error {
	manifest, err := LoadManifest(dir, len(pages))
	if err != nil {
		return err
	}

	var pending []models.PageLocator
	for _, page := range pages {
		if manifest.Done(page.Index) {
			continue
		}
		pending = append(pending, page)
	}
	if len(pending) == 0 {
		slog.Info("All pages already downloaded.", "dir", dir, "pageCount", len(pages))
		return nil
	}
	slog.Info("Starting page download.",
		"dir", dir,
		"pageCount", len(pages),
		"pending", len(pending),
		"batchSize", c.BatchSize,
	)

	var bar *progressbar.ProgressBar
	if c.Progress {
		bar = progressbar.Default(int64(len(pending)), "downloading pages")
	}

	for start := 0; start < len(pending); start += c.BatchSize {
		end := start + c.BatchSize
		if end > len(pending) {
			end = len(pending)
		}

		eg, gctx := errgroup.WithContext(ctx)
		for _, page := range pending[start:end] {
			eg.Go(func() error {
				dest := PagePath(dir, page.Index)
				if err := c.fetcher.Fetch(gctx, page.URL, dest); err != nil {
					return fmt.Errorf("page %d: %w", page.Index, err)
				}
				if err := manifest.MarkDone(page.Index); err != nil {
					return fmt.Errorf("page %d: %w", page.Index, err)
				}
				slog.Debug("Page downloaded.", "pageIndex", page.Index)
				if bar != nil {
					bar.Add(1)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}

	if bar != nil {
		bar.Close()
	}
	slog.Info("All pages downloaded.", "dir", dir, "pageCount", len(pages))
	return nil
}
