package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"
)

// ManifestEntry records one indexed document.
type ManifestEntry struct {
	Checksum  string    `json:"checksum"`
	Chunks    int       `json:"chunks"`
	IndexedAt time.Time `json:"indexed_at"`
}

// Manifest caches content checksums of indexed documents so unchanged
// corpus files are skipped on re-runs. An empty path keeps the manifest in
// memory only.
type Manifest struct {
	path string

	mu      sync.Mutex
	entries map[string]ManifestEntry
}

// NewManifest returns an empty manifest persisted at path.
func NewManifest(path string) *Manifest {
	return &Manifest{path: path, entries: make(map[string]ManifestEntry)}
}

// LoadManifest reads the manifest at path. A missing file is an empty
// manifest, not an error.
func LoadManifest(path string) (*Manifest, error) {
	m := NewManifest(path)
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &m.entries); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Current reports whether docID was last indexed from identical content.
func (m *Manifest) Current(docID, checksum string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[docID]
	return ok && e.Checksum == checksum
}

// Record stores the outcome of one indexed document. Save persists it.
func (m *Manifest) Record(docID, checksum string, chunks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[docID] = ManifestEntry{Checksum: checksum, Chunks: chunks, IndexedAt: time.Now().UTC()}
}

// Forget drops one document so the next run re-indexes it.
func (m *Manifest) Forget(docID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, docID)
}

// Len returns the number of recorded documents.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Save writes the manifest atomically via a temp file. An in-memory
// manifest saves as a no-op.
func (m *Manifest) Save() error {
	if m.path == "" {
		return nil
	}
	m.mu.Lock()
	data, err := json.MarshalIndent(m.entries, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("manifest %s: %w", m.path, err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("manifest %s: %w", m.path, err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("manifest %s: %w", m.path, err)
	}
	return nil
}
