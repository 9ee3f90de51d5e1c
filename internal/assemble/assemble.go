// Package assemble turns a directory of sequentially numbered page images
// into a single PDF file.
package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/maruel/natural"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"edukadl/internal/download"
)

// Assembler builds one PDF per book directory. The external img2pdf and
// ocrmypdf tools are treated as opaque subprocesses; when OCR is disabled
// the PDF is built in-process with pdfcpu instead.
type Assembler struct {
	// OCR runs ocrmypdf over the assembled PDF to add a text layer.
	OCR bool
	// OCRLanguage is the tesseract language code passed to ocrmypdf.
	OCRLanguage string
}

// DocumentPath returns the PDF path for a book id inside dir.
func DocumentPath(dir string, bookID int64) string {
	return filepath.Join(dir, strconv.FormatInt(bookID, 10)+".pdf")
}

// Images lists the page images in dir in page order. Filenames are bare
// page indices, so a natural (numeric-aware) sort reproduces index order
// where a plain lexicographic sort would put 10.png before 2.png.
func Images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != download.ImageExt {
			continue
		}
		images = append(images, e.Name())
	}
	sort.Sort(natural.StringSlice(images))
	for i, name := range images {
		images[i] = filepath.Join(dir, name)
	}
	return images, nil
}

// Assemble produces the book's PDF from the images in dir and returns its
// path. Any failure aborts before an outline could be attached; no partial
// document is left at the target path.
func (a *Assembler) Assemble(ctx context.Context, dir string, bookID int64) (string, error) {
	images, err := Images(dir)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", fmt.Errorf("no page images found in %s", dir)
	}
	pdfPath := DocumentPath(dir, bookID)
	log := slog.With("dir", dir, "bookId", bookID, "pageCount", len(images))

	if a.OCR {
		if err := a.assembleWithOCR(ctx, images, pdfPath); err != nil {
			os.Remove(pdfPath)
			return "", err
		}
	} else {
		if err := importImages(images, pdfPath); err != nil {
			os.Remove(pdfPath)
			return "", err
		}
	}
	log.Info("Document assembled.", "pdf", pdfPath)
	return pdfPath, nil
}

// assembleWithOCR shells out to img2pdf and ocrmypdf, the original
// toolchain. img2pdf writes a raw image PDF to a temp file, ocrmypdf reads
// it and writes the final document.
func (a *Assembler) assembleWithOCR(ctx context.Context, images []string, pdfPath string) error {
	raw, err := os.CreateTemp(filepath.Dir(pdfPath), "assemble-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	raw.Close()
	defer os.Remove(raw.Name())

	args := append([]string{"-o", raw.Name()}, images...)
	if out, err := exec.CommandContext(ctx, "img2pdf", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("img2pdf failed: %w: %s", err, out)
	}

	lang := a.OCRLanguage
	if lang == "" {
		lang = "lit"
	}
	if out, err := exec.CommandContext(ctx, "ocrmypdf", "-l", lang, raw.Name(), pdfPath).CombinedOutput(); err != nil {
		return fmt.Errorf("ocrmypdf failed: %w: %s", err, out)
	}
	return nil
}

// importImages builds the PDF in-process, one page per image.
func importImages(images []string, pdfPath string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ImportImagesFile(images, pdfPath, nil, conf); err != nil {
		return fmt.Errorf("image import failed: %w", err)
	}
	return nil
}

// PageCount reports the number of pages in the assembled document, used to
// validate outline targets before they are attached.
func PageCount(pdfPath string) (int, error) {
	n, err := api.PageCountFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages of %s: %w", pdfPath, err)
	}
	return n, nil
}
