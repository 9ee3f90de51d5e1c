// Package outline maps a book's chapter tree onto the assembled PDF's
// bookmark outline, correcting for the platform's page shift.
package outline

import (
	"errors"
	"fmt"

	"edukadl/internal/models"
)

// ErrNoPage indicates a chapter with no start page of its own and no first
// lesson to borrow one from.
var ErrNoPage = errors.New("chapter has no start page and no lessons")

// PageMismatchError indicates a chapter resolved to a physical page that
// does not exist in the assembled document. The chapter's subtree is
// skipped; siblings are unaffected.
type PageMismatchError struct {
	Title     string
	Page      int
	PageCount int
}

func (e *PageMismatchError) Error() string {
	return fmt.Sprintf("chapter %q resolves to page %d, document has %d pages", e.Title, e.Page, e.PageCount)
}

// Resolve returns the physical page a chapter anchors to. A StartPage of 0
// means the platform assigned no page; the chapter then anchors to its
// first lesson's start page. The shift is subtracted uniformly:
// physical = logical - shift.
func Resolve(ch *models.Chapter, shift int) (int, error) {
	logical := ch.StartPage
	if logical == 0 {
		if len(ch.Lessons) == 0 {
			return 0, fmt.Errorf("%w: %q", ErrNoPage, ch.Title)
		}
		logical = ch.Lessons[0].StartPage
	}
	return logical - shift, nil
}
