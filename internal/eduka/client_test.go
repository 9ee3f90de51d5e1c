package eduka

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, pagesJSON string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/anonymously/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
	})
	mux.HandleFunc("/api/authenticated/part/show-by-teaching-tool/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"Lietuviu kalba","parts":[{"title":"5 klase"},{"title":"6 klase"}]}`)
	})
	mux.HandleFunc("/api/authenticated/teaching-tool/is-downloadable/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"isDownloadable":true}`)
	})
	mux.HandleFunc("/api/authenticated/teaching-tool/pages/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pagesJSON)
	})
	mux.HandleFunc("/api/authenticated/part/show-by-teaching-tool/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"No parts","parts":[]}`)
	})
	return httptest.NewServer(mux)
}

const samplePagesJSON = `{
	"pageShift": 2,
	"pages": [
		{"img": {"1140": "/img/p0.png", "570": "/small/p0.png"}},
		{"img": {"1140": "https://cdn.example.com/p1.png"}},
		{"img": {"570": "/small/p2.png"}},
		{"img": {"1140": "/img/p3.png"}}
	],
	"chapters": [
		{"title": "Įvadas", "startPage": 5, "lessons": [
			{"title": "Pirma pamoka", "startPage": 6}
		]},
		{"title": "Skyrius", "startPage": 0, "lessons": []}
	]
}`

func TestTeachingTool(t *testing.T) {
	srv := newTestServer(t, samplePagesJSON)
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	book, err := c.TeachingTool(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if book.Title != "Lietuviu kalba: 5 klase" {
		t.Errorf("title = %q", book.Title)
	}
	if book.PageShift != 2 {
		t.Errorf("pageShift = %d", book.PageShift)
	}
	if !book.NativeDownloadable {
		t.Error("expected NativeDownloadable")
	}

	// The page without a 1140 variant is skipped; relative fragments are
	// resolved against the platform host, absolute ones pass through.
	wantURLs := []string{
		srv.URL + "/img/p0.png",
		"https://cdn.example.com/p1.png",
		srv.URL + "/img/p3.png",
	}
	if len(book.PageURLs) != len(wantURLs) {
		t.Fatalf("pageURLs = %v", book.PageURLs)
	}
	for i, want := range wantURLs {
		if book.PageURLs[i] != want {
			t.Errorf("pageURLs[%d] = %q, want %q", i, book.PageURLs[i], want)
		}
	}

	if len(book.Chapters) != 2 {
		t.Fatalf("chapters = %+v", book.Chapters)
	}
	if book.Chapters[0].Title != "Įvadas" || book.Chapters[0].StartPage != 5 {
		t.Errorf("chapter 0 = %+v", book.Chapters[0])
	}
	if len(book.Chapters[0].Lessons) != 1 || book.Chapters[0].Lessons[0].StartPage != 6 {
		t.Errorf("chapter 0 lessons = %+v", book.Chapters[0].Lessons)
	}
}

func TestTeachingTool_NoParts(t *testing.T) {
	srv := newTestServer(t, samplePagesJSON)
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.TeachingTool(context.Background(), 7); !errors.Is(err, ErrUnexpectedResponse) {
		t.Fatalf("expected ErrUnexpectedResponse, got %v", err)
	}
}

func TestTeachingTool_MalformedPages(t *testing.T) {
	srv := newTestServer(t, `{"pages": "not-an-array"}`)
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.TeachingTool(context.Background(), 42); !errors.Is(err, ErrUnexpectedResponse) {
		t.Fatalf("expected ErrUnexpectedResponse, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, samplePagesJSON)
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Login(context.Background(), "user", "pass"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Login(context.Background(), "user", "wrong"); !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
}

func TestPackage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/authenticated/teaching-package/100", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("withTeachingTools") != "1" {
			t.Error("missing withTeachingTools query parameter")
		}
		fmt.Fprint(w, `{"id":100,"authors":"A. Autorius","publishing_house":"Leidykla","teaching_tools":[{"id":42}]}`)
	})
	mux.HandleFunc("/api/authenticated/part/show-by-teaching-tool/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"Matematika","parts":[{"title":"7 klase"}]}`)
	})
	mux.HandleFunc("/api/authenticated/teaching-tool/is-downloadable/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"isDownloadable":false}`)
	})
	mux.HandleFunc("/api/authenticated/teaching-tool/pages/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pageShift":1,"pages":[{"img":{"1140":"/img/0.png"}}],"chapters":[]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	pkg, err := c.Package(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pkg.ID != 100 || len(pkg.TeachingTools) != 1 {
		t.Fatalf("package = %+v", pkg)
	}
	book := pkg.TeachingTools[0].Book
	if book == nil || book.Title != "Matematika: 7 klase" || book.PageShift != 1 {
		t.Fatalf("book = %+v", book)
	}
}
