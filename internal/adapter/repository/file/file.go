// Package file provides a snapshot store that keeps every entry in a single JSON document on disk.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

type urlJSON struct {
	ShortURL   string     `json:"short_url"`
	LongURL    string     `json:"long_url"`
	Note       string     `json:"note"`
	VisitCount uint64     `json:"visit_count"`
	LastVisit  *time.Time `json:"last_visit"`
}

func fromEntity(e entity.URLEntry) urlJSON {
	return urlJSON{
		ShortURL:   e.ShortCode,
		LongURL:    e.LongURL,
		Note:       e.Note,
		VisitCount: e.VisitCount,
		LastVisit:  e.LastVisit,
	}
}

func (u urlJSON) toEntity() entity.URLEntry {
	return entity.URLEntry{
		ShortCode:  u.ShortURL,
		LongURL:    u.LongURL,
		Note:       u.Note,
		VisitCount: u.VisitCount,
		LastVisit:  u.LastVisit,
	}
}

// Store persists the registry as one pretty-printed JSON object keyed by short code.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the backing document.
func (s *Store) Path() string {
	return s.path
}

// Load reads the backing document. A missing file yields an empty map and no error.
// An unreadable or malformed file yields an empty map and an error wrapping entity.ErrStoreUnreadable.
func (s *Store) Load(_ context.Context) (map[string]entity.URLEntry, error) {
	const op = "adapter.repository.file.Store.Load"

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[string]entity.URLEntry)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entries, nil
		}

		return entries, fmt.Errorf("%s: %w: %w", op, entity.ErrStoreUnreadable, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}

	var raw map[string]urlJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return entries, fmt.Errorf("%s: %w: failed to decode %s: %w", op, entity.ErrStoreUnreadable, s.path, err)
	}

	for code, u := range raw {
		e := u.toEntity()
		// The map key is authoritative.
		e.ShortCode = code
		entries[code] = e
	}

	return entries, nil
}

// Save replaces the backing document with the given entries. The new document is written to a
// temporary file in the same directory and renamed over the old one.
func (s *Store) Save(_ context.Context, entries map[string]entity.URLEntry) error {
	const op = "adapter.repository.file.Store.Save"

	raw := make(map[string]urlJSON, len(entries))
	for code, e := range entries {
		raw[code] = fromEntity(e)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w: failed to encode entries: %w", op, entity.ErrStoreWriteFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("%s: %w: failed to create directory: %w", op, entity.ErrStoreWriteFailed, err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("%s: %w: %w", op, entity.ErrStoreWriteFailed, err)
	}

	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return syncDir(filepath.Dir(path))
}

// syncDir flushes the directory entry so the rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open directory: %w", err)
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync directory: %w", err)
	}

	return nil
}
