package fsutil

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/banshee-data/viewplan/internal/security"
)

// ScratchDir is a per-run working directory holding the files exchanged
// with the tour solver.
type ScratchDir struct {
	fs   FileSystem
	Path string
}

// NewScratchDir creates <root>/<id>. It fails if the directory already
// exists so two runs never share files, and when id is not a plain file
// name.
func NewScratchDir(fsys FileSystem, root, id string) (*ScratchDir, error) {
	if err := security.ValidateName(id); err != nil {
		return nil, fmt.Errorf("scratch directory: %w", err)
	}
	path := filepath.Join(root, id)
	if fsys.Exists(path) {
		return nil, fmt.Errorf("scratch directory %s already exists", path)
	}
	if err := fsys.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &ScratchDir{fs: fsys, Path: path}, nil
}

// File returns the path of name inside the directory.
func (s *ScratchDir) File(name string) string {
	return filepath.Join(s.Path, name)
}

// Remove deletes the directory and everything in it.
func (s *ScratchDir) Remove() error {
	return s.fs.RemoveAll(s.Path)
}

// ScratchRegistry tracks live scratch directories so that they can all be
// removed on shutdown.
type ScratchRegistry struct {
	mu   sync.Mutex
	dirs map[string]*ScratchDir
}

// NewScratchRegistry returns an empty registry.
func NewScratchRegistry() *ScratchRegistry {
	return &ScratchRegistry{dirs: make(map[string]*ScratchDir)}
}

// Register records d until Release or RemoveAll.
func (r *ScratchRegistry) Register(d *ScratchDir) {
	r.mu.Lock()
	r.dirs[d.Path] = d
	r.mu.Unlock()
}

// Release removes d and forgets it.
func (r *ScratchRegistry) Release(d *ScratchDir) error {
	r.mu.Lock()
	delete(r.dirs, d.Path)
	r.mu.Unlock()
	return d.Remove()
}

// Len returns the number of live directories.
func (r *ScratchRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dirs)
}

// RemoveAll removes every live directory, ignoring errors.
func (r *ScratchRegistry) RemoveAll() {
	r.mu.Lock()
	for path, d := range r.dirs {
		d.Remove() // ignore errors
		delete(r.dirs, path)
	}
	r.mu.Unlock()
}
