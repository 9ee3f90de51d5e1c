package eduka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/publicsuffix"

	"edukadl/internal/models"
)

// DefaultBaseURL is the production platform endpoint.
const DefaultBaseURL = "https://klase.eduka.lt"

// ErrUnexpectedResponse indicates the platform returned data that does not
// match any known shape. The affected book is aborted before any download
// begins.
var ErrUnexpectedResponse = errors.New("eduka: unexpected response")

// ErrLoginFailed indicates the login endpoint rejected the credentials.
var ErrLoginFailed = errors.New("eduka: login failed")

// Client talks to the platform API. The underlying http.Client carries a
// cookie jar so the session established by Login is shared by every
// subsequent call, including page image fetches.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client against baseURL (DefaultBaseURL if empty).
func New(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Jar: jar},
	}, nil
}

// HTTPClient exposes the session-carrying client for page downloads.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Login establishes an authenticated session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal login payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/anonymously/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
	}
	return nil
}

// partsResponse is the shape of part/show-by-teaching-tool. The top-level
// title is the collection title, not the book title.
type partsResponse struct {
	Title string `json:"title"`
	Parts []struct {
		Title string `json:"title"`
	} `json:"parts"`
}

type downloadableResponse struct {
	IsDownloadable bool `json:"isDownloadable"`
}

// pagesResponse is the shape of teaching-tool/pages. Each page carries a
// map of image variants keyed by pixel width.
type pagesResponse struct {
	Pages []struct {
		Img map[string]string `json:"img"`
	} `json:"pages"`
	PageShift int               `json:"pageShift"`
	Chapters  []models.Chapter  `json:"chapters"`
}

// imageVariant is the page image width requested from the platform.
const imageVariant = "1140"

// TeachingTool resolves the full book metadata for one teaching-tool id:
// title and parts, native downloadability, page image URLs, page shift and
// the chapter tree.
func (c *Client) TeachingTool(ctx context.Context, id int64) (*models.Book, error) {
	log := slog.With("teachingToolId", id)

	var parts partsResponse
	if err := c.getJSON(ctx, "/api/authenticated/part/show-by-teaching-tool/"+strconv.FormatInt(id, 10), &parts); err != nil {
		return nil, err
	}
	if len(parts.Parts) == 0 {
		return nil, fmt.Errorf("%w: teaching tool %d has no parts", ErrUnexpectedResponse, id)
	}

	var dl downloadableResponse
	if err := c.getJSON(ctx, "/api/authenticated/teaching-tool/is-downloadable/"+strconv.FormatInt(id, 10), &dl); err != nil {
		return nil, err
	}

	var pages pagesResponse
	if err := c.getJSON(ctx, "/api/authenticated/teaching-tool/pages/"+strconv.FormatInt(id, 10), &pages); err != nil {
		return nil, err
	}

	book := &models.Book{
		ID:                 id,
		Title:              parts.Title + ": " + parts.Parts[0].Title,
		CollectionTitle:    parts.Title,
		PageShift:          pages.PageShift,
		NativeDownloadable: dl.IsDownloadable,
		Chapters:           pages.Chapters,
	}
	for i, page := range pages.Pages {
		frag, ok := page.Img[imageVariant]
		if !ok || frag == "" {
			log.Warn("Page has no usable image variant, skipping.", "pageIndex", i)
			continue
		}
		book.PageURLs = append(book.PageURLs, c.absoluteURL(frag))
	}
	return book, nil
}

// Package fetches a teaching package and fills in the book metadata of
// every teaching tool in it.
func (c *Client) Package(ctx context.Context, id int64) (*models.Package, error) {
	u := fmt.Sprintf("/api/authenticated/teaching-package/%d?%s", id, url.Values{"withTeachingTools": {"1"}}.Encode())
	var pkg models.Package
	if err := c.getJSON(ctx, u, &pkg); err != nil {
		return nil, err
	}
	for i := range pkg.TeachingTools {
		book, err := c.TeachingTool(ctx, pkg.TeachingTools[i].ID)
		if err != nil {
			return nil, err
		}
		pkg.TeachingTools[i].Book = book
	}
	return &pkg, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: GET %s returned status %d", ErrUnexpectedResponse, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrUnexpectedResponse, path, err)
	}
	return nil
}

// absoluteURL resolves an image path fragment against the platform host.
func (c *Client) absoluteURL(frag string) string {
	if strings.HasPrefix(frag, "http://") || strings.HasPrefix(frag, "https://") {
		return frag
	}
	if !strings.HasPrefix(frag, "/") {
		frag = "/" + frag
	}
	return c.baseURL + frag
}
