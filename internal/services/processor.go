package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"edukadl/internal/archive"
	"edukadl/internal/assemble"
	"edukadl/internal/download"
	"edukadl/internal/eduka"
	"edukadl/internal/models"
	"edukadl/internal/outline"
)

// ProcessorConfig carries the knobs for one run.
type ProcessorConfig struct {
	OutDir        string
	BatchSize     int
	MaxAttempts   int
	OCR           bool
	OCRLanguage   string
	ArchiveBucket string
	Progress      bool
}

// BookProcessor runs the full pipeline for one book: download every page
// image, assemble the PDF, attach the corrected outline, and optionally
// mirror the result to a storage bucket.
type BookProcessor struct {
	client      *eduka.Client
	coordinator *download.Coordinator
	assembler   *assemble.Assembler
	uploader    *archive.Uploader
	config      ProcessorConfig
}

// NewBookProcessor wires the pipeline around an authenticated platform
// client. The page fetcher reuses the client's session so image requests
// carry the login cookies.
func NewBookProcessor(ctx context.Context, client *eduka.Client, config ProcessorConfig) (*BookProcessor, error) {
	if config.OutDir == "" {
		config.OutDir = "."
	}
	fetcher := download.NewFetcher(client.HTTPClient(), config.MaxAttempts)
	coordinator := download.NewCoordinator(fetcher, config.BatchSize)
	coordinator.Progress = config.Progress

	p := &BookProcessor{
		client:      client,
		coordinator: coordinator,
		assembler:   &assemble.Assembler{OCR: config.OCR, OCRLanguage: config.OCRLanguage},
		config:      config,
	}
	if config.ArchiveBucket != "" {
		uploader, err := archive.New(ctx, config.ArchiveBucket)
		if err != nil {
			return nil, err
		}
		p.uploader = uploader
	}
	return p, nil
}

// Close releases any clients held by the processor.
func (p *BookProcessor) Close() error {
	if p.uploader != nil {
		return p.uploader.Close()
	}
	return nil
}

// ProcessPackage downloads and prepares every teaching tool in a package.
// Book failures are isolated: one book aborting does not stop the rest.
// The combined per-book errors are returned once all books were attempted.
func (p *BookProcessor) ProcessPackage(ctx context.Context, packageID int64) error {
	pkg, err := p.client.Package(ctx, packageID)
	if err != nil {
		return fmt.Errorf("package %d: %w", packageID, err)
	}
	slog.Info("Package resolved.", "packageId", packageID, "tools", len(pkg.TeachingTools))

	var errs error
	for _, tool := range pkg.TeachingTools {
		if err := p.ProcessBook(ctx, tool.Book); err != nil {
			slog.Error("Book processing failed.", "bookId", tool.Book.ID, "title", tool.Book.Title, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("book %d (%s): %w", tool.Book.ID, tool.Book.Title, err))
		}
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
	}
	return errs
}

// ProcessBook runs download, assembly, outline attachment and archival for
// one book.
func (p *BookProcessor) ProcessBook(ctx context.Context, book *models.Book) error {
	logCtx := slog.With("bookId", book.ID, "title", book.Title)
	if len(book.PageURLs) == 0 {
		return fmt.Errorf("book %d has no pages", book.ID)
	}

	dir := p.BookDir(book)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create book directory: %w", err)
	}

	if err := p.coordinator.Download(ctx, dir, book.Pages()); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	pdfPath := assemble.DocumentPath(dir, book.ID)
	if _, err := os.Stat(pdfPath); err == nil {
		logCtx.Info("Document already assembled, skipping assembly.", "pdf", pdfPath)
	} else {
		if pdfPath, err = p.assembler.Assemble(ctx, dir, book.ID); err != nil {
			return fmt.Errorf("assembly: %w", err)
		}
	}

	if err := p.attachOutline(book, pdfPath); err != nil {
		return err
	}

	if p.uploader != nil {
		object := strconv.FormatInt(book.ID, 10) + ".pdf"
		if err := p.uploader.Upload(ctx, pdfPath, object); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		logCtx.Info("Book archived.", "bucket", p.config.ArchiveBucket, "object", object)
	}

	logCtx.Info("Book prepared.", "pdf", pdfPath)
	return nil
}

// attachOutline builds the outline entries against the real page count and
// installs them. Chapters that failed to resolve are reported but do not
// prevent the rest of the outline from being attached.
func (p *BookProcessor) attachOutline(book *models.Book, pdfPath string) error {
	if len(book.Chapters) == 0 {
		slog.Info("Book has no chapters, skipping outline.", "bookId", book.ID)
		return nil
	}
	pageCount, err := assemble.PageCount(pdfPath)
	if err != nil {
		return err
	}
	entries, buildErrs := outline.Build(book.Chapters, book.PageShift, pageCount)
	for _, err := range multierr.Errors(buildErrs) {
		slog.Error("Chapter skipped.", "bookId", book.ID, "error", err)
	}
	if len(entries) == 0 && buildErrs != nil {
		return fmt.Errorf("outline: no chapter resolved: %w", buildErrs)
	}
	if err := outline.Attach(pdfPath, entries); err != nil {
		return err
	}
	return buildErrs
}

// BookDir returns the directory a book downloads into. The layout follows
// the original tool: "<title> ;;; <id>" under the output directory, with
// path separators stripped from the title.
func (p *BookProcessor) BookDir(book *models.Book) string {
	title := strings.Map(func(r rune) rune {
		if r == '/' || r == filepath.Separator {
			return '-'
		}
		return r
	}, book.Title)
	return filepath.Join(p.config.OutDir, title+" ;;; "+strconv.FormatInt(book.ID, 10))
}
