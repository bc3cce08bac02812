// Package cas implements the build info store.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultPath is where the store lives relative to the working directory.
const DefaultPath = ".pake/buildinfo.json"

var _ ports.BuildInfoStore = (*Store)(nil)

// Store implements ports.BuildInfoStore using a flat JSON file keyed by target name.
type Store struct {
	path  string
	mu    sync.RWMutex
	cache map[string]domain.BuildInfo

	once    sync.Once
	onError func(error)
}

// NewStore creates a new BuildInfoStore backed by the file at the given path.
func NewStore(path string) (*Store, error) {
	s := newEmptyStore(path)
	var err error
	s.once.Do(func() { err = s.load() })
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Open returns a store that reads the file at path on first use, so a relative
// path resolves against the working directory of that moment. An unreadable file
// is passed to onError and the store starts empty.
func Open(path string, onError func(error)) *Store {
	s := newEmptyStore(path)
	s.onError = onError
	return s
}

func (s *Store) ensureLoaded() {
	s.once.Do(func() {
		if err := s.load(); err != nil {
			s.mu.Lock()
			s.cache = make(map[string]domain.BuildInfo)
			s.mu.Unlock()
			if s.onError != nil {
				s.onError(err)
			}
		}
	})
}

func newEmptyStore(path string) *Store {
	return &Store{
		path:  filepath.Clean(path),
		cache: make(map[string]domain.BuildInfo),
	}
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(errors.Join(domain.ErrStoreReadFailed, err), "path", s.path)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.cache); err != nil {
		return zerr.With(errors.Join(domain.ErrStoreReadFailed, err), "path", s.path)
	}
	return nil
}

// save must be called with mu held.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.cache, "", "  ")
	if err != nil {
		return zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "path", s.path)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "path", s.path)
	}

	//nolint:gosec // Path is cleaned and provided by trusted caller
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "path", s.path)
	}
	return nil
}

// Get retrieves the build info for a given target name.
func (s *Store) Get(target string) (*domain.BuildInfo, error) {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.cache[target]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

// Put stores the build info and persists the store.
func (s *Store) Put(info domain.BuildInfo) error {
	s.ensureLoaded()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[info.Target] = info
	return s.save()
}

// Reset drops every record and removes the backing file.
func (s *Store) Reset() error {
	s.ensureLoaded()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[string]domain.BuildInfo)
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(errors.Join(domain.ErrStoreWriteFailed, err), "path", s.path)
	}
	return nil
}
