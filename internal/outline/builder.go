package outline

import (
	"fmt"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/multierr"

	"edukadl/internal/models"
)

// Entry is one resolved outline entry. Parent is the arena index of the
// parent entry, or -1 at the root level. Entries appear in pre-order, so a
// parent always precedes its children.
type Entry struct {
	Title  string
	Page   int
	Parent int
}

// Build walks the chapter tree in pre-order and resolves every chapter to a
// physical page, validating it against pageCount. A chapter that fails to
// resolve, or whose page falls outside the document, contributes a
// PageMismatchError (or ErrNoPage) and its subtree is skipped; sibling
// chapters are still processed. The combined per-chapter errors are
// returned alongside the entries that did build.
func Build(chapters []models.Chapter, shift, pageCount int) ([]Entry, error) {
	var entries []Entry
	var errs error

	var walk func(chapters []models.Chapter, parent int)
	walk = func(chapters []models.Chapter, parent int) {
		for i := range chapters {
			ch := &chapters[i]
			page, err := Resolve(ch, shift)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if page < 1 || page > pageCount {
				errs = multierr.Append(errs, &PageMismatchError{
					Title:     ch.Title,
					Page:      page,
					PageCount: pageCount,
				})
				// The lessons below carry page numbers from the same
				// shifted range, so they are not attempted either.
				continue
			}
			entries = append(entries, Entry{
				Title:  SanitizeTitle(ch.Title),
				Page:   page,
				Parent: parent,
			})
			walk(ch.Lessons, len(entries)-1)
		}
	}
	walk(chapters, -1)
	return entries, errs
}

// Bookmarks converts an entry arena into pdfcpu's nested bookmark tree,
// preserving insertion order at every level.
func Bookmarks(entries []Entry) []pdfcpu.Bookmark {
	// One node per entry; kids are appended in arena order, which is the
	// source child order.
	nodes := make([]*pdfcpu.Bookmark, len(entries))
	var roots []*pdfcpu.Bookmark
	for i, e := range entries {
		nodes[i] = &pdfcpu.Bookmark{Title: e.Title, PageFrom: e.Page}
		if e.Parent < 0 {
			roots = append(roots, nodes[i])
		} else {
			parent := nodes[e.Parent]
			parent.Kids = append(parent.Kids, *nodes[i])
			// Re-point at the slice element so grandchildren land inside
			// the parent's Kids, not on a detached copy.
			nodes[i] = &parent.Kids[len(parent.Kids)-1]
		}
	}
	bms := make([]pdfcpu.Bookmark, 0, len(roots))
	for _, r := range roots {
		bms = append(bms, *r)
	}
	return bms
}

// Attach installs entries as pdfPath's outline, replacing any outline the
// document already has.
func Attach(pdfPath string, entries []Entry) error {
	if len(entries) == 0 {
		slog.Warn("No outline entries to attach.", "pdf", pdfPath)
		return nil
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.AddBookmarksFile(pdfPath, "", Bookmarks(entries), true, conf); err != nil {
		return fmt.Errorf("failed to attach outline to %s: %w", pdfPath, err)
	}
	slog.Info("Outline attached.", "pdf", pdfPath, "entries", len(entries))
	return nil
}
