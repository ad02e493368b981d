// Package scratch provides scoped temporary storage. A Dir owns a topic's
// working directory; a Scope owns the intermediate files of one unit of work.
// Both release everything they hold when closed, whatever the exit path.
package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Dir is a temporary directory removed by Close
type Dir struct {
	path string
	once sync.Once
	err  error
}

// New creates a fresh directory under parent (os.TempDir when empty)
func New(parent, pattern string) (*Dir, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("create scratch parent: %w", err)
	}
	path, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path is the directory location
func (d *Dir) Path() string { return d.path }

// File joins name onto the directory
func (d *Dir) File(name string) string { return filepath.Join(d.path, name) }

// Close removes the directory and everything in it. Safe to call twice.
func (d *Dir) Close() error {
	d.once.Do(func() {
		d.err = os.RemoveAll(d.path)
	})
	return d.err
}

// Scope collects files to delete once a unit of work ends
type Scope struct {
	mu    sync.Mutex
	paths []string
}

// Track registers path for removal and returns it
func (s *Scope) Track(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
	return path
}

// Tracked returns the registered paths
func (s *Scope) Tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Release deletes every tracked file. Files already gone are not an error.
func (s *Scope) Release() error {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
