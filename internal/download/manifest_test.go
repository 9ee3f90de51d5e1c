package download

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestManifest_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	m, err := LoadManifest(dir, 4)
	if err != nil {
		t.Fatalf("fresh load: %v", err)
	}
	if m.Complete() {
		t.Error("fresh manifest reported complete")
	}
	if err := m.MarkDone(1); err != nil {
		t.Fatal(err)
	}
	if err := m.MarkDone(3); err != nil {
		t.Fatal(err)
	}

	// Reload from disk and check the state survived.
	m2, err := LoadManifest(dir, 4)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !m2.Done(1) || !m2.Done(3) || m2.Done(0) {
		t.Errorf("reloaded completion state wrong: %+v", m2.Completed)
	}
	if got, want := m2.Missing(), []int{0, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Missing() = %v, want %v", got, want)
	}

	if err := m2.MarkDone(0); err != nil {
		t.Fatal(err)
	}
	if err := m2.MarkDone(2); err != nil {
		t.Fatal(err)
	}
	if !m2.Complete() {
		t.Error("fully marked manifest not complete")
	}
}

func TestManifest_ZeroPagesNeverComplete(t *testing.T) {
	m, err := LoadManifest(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Complete() {
		t.Error("zero-page manifest reported complete")
	}
}

func TestManifest_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(dir, 3); err == nil {
		t.Fatal("expected an error for a corrupt manifest")
	}
}
