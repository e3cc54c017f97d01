// Package filestore persists pipeline state as small JSON documents, one
// file per key under a single data directory. Mutations go through Update,
// which holds a per-key lock for the whole read-transform-write cycle and
// stages writes through a temp file plus rename, so concurrent updaters
// serialize and readers never observe a torn document.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tom-villanueva/marea-tigre/internal/domain"
)

// Store owns a data directory of JSON documents.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New opens a store rooted at dir, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Ping verifies the data directory is still writable.
func (s *Store) Ping() error {
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}

func (s *Store) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Read returns the document stored under key, or def when the file is
// absent or does not decode. It never fails: a corrupt document is reported
// and replaced by the default so callers keep serving.
func Read[T any](s *Store, key string, def T) T {
	doc, _ := readDoc(s, key, def)
	return doc
}

// Write replaces the document under key.
func Write[T any](s *Store, key string, doc T) error {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()
	return writeLocked(s, key, doc)
}

// Update applies transform to the current document (def when absent or
// corrupt) and persists the result, all under the key's exclusive lock.
// The transform sees a private copy and must not block on the store.
func Update[T any](s *Store, key string, def T, transform func(T) T) error {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()
	doc, _ := readDoc(s, key, def)
	return writeLocked(s, key, transform(doc))
}

// Append pushes record onto the named subsequence of key's document,
// keeping only the most recent maxRecords entries. The document is a map
// of subsequences so that unrelated subkeys under the same key survive.
func Append[T any](s *Store, key, subkey string, record T, maxRecords int) error {
	return Update(s, key, map[string][]T{}, func(doc map[string][]T) map[string][]T {
		if doc == nil {
			doc = make(map[string][]T)
		}
		seq := append(doc[subkey], record)
		if maxRecords > 0 && len(seq) > maxRecords {
			seq = seq[len(seq)-maxRecords:]
		}
		doc[subkey] = seq
		return doc
	})
}

func readDoc[T any](s *Store, key string, def T) (T, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("document unreadable, using default", "key", key, "error", err)
		}
		return def, false
	}
	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("document corrupt, using default", "key", key, "error", err)
		return def, false
	}
	return doc, true
}

func writeLocked[T any](s *Store, key string, doc T) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", domain.ErrStorageFailure, key, err)
	}
	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: stage %s: %v", domain.ErrStorageFailure, key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: stage %s: %v", domain.ErrStorageFailure, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: stage %s: %v", domain.ErrStorageFailure, key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: swap %s: %v", domain.ErrStorageFailure, key, err)
	}
	return nil
}
