package models

// PageLocator identifies one remote page image and its position in the
// assembled document. Index is zero-based and contiguous; it becomes the
// base filename of the downloaded image and therefore fixes final page
// order.
type PageLocator struct {
	Index int
	URL   string
}

// Chapter is one table-of-contents node as reported by the platform.
// StartPage is the platform's logical page number; 0 means "no page
// assigned" and the chapter anchors to its first lesson instead.
type Chapter struct {
	Title     string    `json:"title"`
	StartPage int       `json:"startPage"`
	Lessons   []Chapter `json:"lessons"`
}

// Book is the fully resolved metadata for one downloadable book.
// PageShift is the offset between the platform's logical page numbers and
// the physical page numbers of the assembled PDF: physical = logical - shift.
type Book struct {
	ID                 int64
	Title              string
	CollectionTitle    string
	PageShift          int
	NativeDownloadable bool
	PageURLs           []string
	Chapters           []Chapter
}

// Pages returns the book's page locators in discovery order.
func (b *Book) Pages() []PageLocator {
	pages := make([]PageLocator, len(b.PageURLs))
	for i, u := range b.PageURLs {
		pages[i] = PageLocator{Index: i, URL: u}
	}
	return pages
}

// TeachingTool pairs a platform teaching-tool id with its resolved book.
type TeachingTool struct {
	ID   int64 `json:"id"`
	Book *Book `json:"-"`
}

// Package is a teaching package grouping several teaching tools.
type Package struct {
	ID              int64          `json:"id"`
	Authors         string         `json:"authors"`
	PublishingHouse string         `json:"publishing_house"`
	TeachingTools   []TeachingTool `json:"teaching_tools"`
}
