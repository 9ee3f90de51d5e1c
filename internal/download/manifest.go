package download

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ManifestName is the sidecar file recording per-page completion inside a
// book directory. A bare directory-existence check cannot tell a partial
// download from a complete one; the manifest can.
const ManifestName = ".edukadl-manifest.json"

// Manifest tracks which page indices have been fully written to disk.
type Manifest struct {
	mu        sync.Mutex
	path      string
	PageCount int          `json:"pageCount"`
	Completed map[int]bool `json:"completed"`
}

// LoadManifest reads the manifest in dir, or returns a fresh one for
// pageCount pages if none exists yet.
func LoadManifest(dir string, pageCount int) (*Manifest, error) {
	m := &Manifest{
		path:      filepath.Join(dir, ManifestName),
		PageCount: pageCount,
		Completed: make(map[int]bool),
	}
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", m.path, err)
	}
	if m.Completed == nil {
		m.Completed = make(map[int]bool)
	}
	m.PageCount = pageCount
	return m, nil
}

// Done reports whether page index has been recorded complete.
func (m *Manifest) Done(index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Completed[index]
}

// MarkDone records index as complete and persists the manifest. The write
// goes through a temp file and rename so a crash never leaves a truncated
// manifest.
func (m *Manifest) MarkDone(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completed[index] = true
	return m.save()
}

// Complete reports whether every page is recorded complete.
func (m *Manifest) Complete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PageCount == 0 {
		return false
	}
	for i := 0; i < m.PageCount; i++ {
		if !m.Completed[i] {
			return false
		}
	}
	return true
}

// Missing returns the page indices not yet recorded complete, in order.
func (m *Manifest) Missing() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var missing []int
	for i := 0; i < m.PageCount; i++ {
		if !m.Completed[i] {
			missing = append(missing, i)
		}
	}
	sort.Ints(missing)
	return missing
}

func (m *Manifest) save() error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return os.Rename(tmp, m.path)
}
