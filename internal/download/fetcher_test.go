package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func noBackoff(t *testing.T) {
	t.Helper()
	orig := backoffFn
	backoffFn = func(int) time.Duration { return 0 }
	t.Cleanup(func() { backoffFn = orig })
}

func TestFetch_WritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "0.png")
	f := NewFetcher(srv.Client(), 1)
	if err := f.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("destination not written: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("unexpected content %q", data)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Errorf("partial file left behind")
	}
}

func TestFetch_RetriesUntilSuccess(t *testing.T) {
	noBackoff(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "0.png")
	f := NewFetcher(srv.Client(), 5)
	if err := f.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestFetch_Exhaustion(t *testing.T) {
	noBackoff(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "0.png")
	f := NewFetcher(srv.Client(), 3)
	err := f.Fetch(context.Background(), srv.URL, dest)
	var exhausted *FetchExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *FetchExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 || exhausted.URL != srv.URL {
		t.Errorf("unexpected error details: %+v", exhausted)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("destination exists after exhausted fetch")
	}
	if _, statErr := os.Stat(dest + ".part"); !os.IsNotExist(statErr) {
		t.Errorf("partial file left behind after exhausted fetch")
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	noBackoff(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := NewFetcher(srv.Client(), 0) // retry forever
	err := f.Fetch(ctx, srv.URL, filepath.Join(t.TempDir(), "0.png"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
