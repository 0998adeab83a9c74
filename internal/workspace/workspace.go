// Package workspace manages the per-request scratch directories that hold an
// upload and everything derived from it.
package workspace

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"lukechampine.com/blake3"
)

var (
	// ErrEmpty is returned by Store when the upload holds no bytes.
	ErrEmpty = errors.New("workspace: upload is empty")
	// ErrTooLarge is returned by Store when the upload exceeds the size limit.
	ErrTooLarge = errors.New("workspace: upload exceeds size limit")
)

const sourceName = "source"

// Manager hands out workspaces below a single root directory.
type Manager struct {
	root string
	log  logrus.FieldLogger

	mu     sync.Mutex
	active map[string]struct{}
}

// NewManager creates root if needed.
func NewManager(root string, log logrus.FieldLogger) (*Manager, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace: root directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		root:   root,
		log:    log.WithField("component", "workspace"),
		active: make(map[string]struct{}),
	}, nil
}

// Root returns the directory under which workspaces are created.
func (m *Manager) Root() string { return m.root }

// Acquire creates a fresh, uniquely named workspace directory.
func (m *Manager) Acquire() (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	if err := os.Mkdir(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	m.mu.Lock()
	m.active[id] = struct{}{}
	m.mu.Unlock()
	return &Workspace{
		ID:      id,
		Dir:     dir,
		manager: m,
		log:     m.log.WithField("workspace", id),
	}, nil
}

// Workspace is one request's directory. Every file placed in it through Path
// or Store is tracked and removed by Release.
type Workspace struct {
	ID  string
	Dir string

	manager  *Manager
	mu       sync.Mutex
	files    []string
	released bool
	log      logrus.FieldLogger
}

// Stored describes an upload copied into a workspace.
type Stored struct {
	Path     string
	Size     int64
	Checksum string
}

// Path returns the path of name inside the workspace and tracks it for removal.
func (w *Workspace) Path(name string) string {
	p := filepath.Join(w.Dir, filepath.Base(name))
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range w.files {
		if f == p {
			return p
		}
	}
	w.files = append(w.files, p)
	return p
}

// Store copies r into the workspace as "source" plus the extension of the
// original filename, computing a BLAKE3 checksum on the way. A limit of zero
// disables the size check.
func (w *Workspace) Store(r io.Reader, filename string, limit int64) (*Stored, error) {
	path := w.Path(sourceName + Extension(filename))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	h := blake3.New(32, nil)
	n, err := io.Copy(io.MultiWriter(f, h), src)
	if err != nil {
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if n == 0 {
		return nil, ErrEmpty
	}
	if limit > 0 && n > limit {
		return nil, fmt.Errorf("%w: more than %s", ErrTooLarge, humanize.IBytes(uint64(limit)))
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close upload file: %w", err)
	}

	w.log.WithFields(logrus.Fields{
		"path": path,
		"size": humanize.IBytes(uint64(n)),
	}).Debug("upload stored")
	return &Stored{Path: path, Size: n, Checksum: hex.EncodeToString(h.Sum(nil))}, nil
}

// Release removes every tracked file and then the directory itself. Failures
// are logged and never returned. Calling Release again does nothing.
func (w *Workspace) Release() {
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		return
	}
	w.released = true
	files := w.files
	w.files = nil
	w.mu.Unlock()
	defer w.manager.forget(w.ID)

	for i := len(files) - 1; i >= 0; i-- {
		if err := os.Remove(files[i]); err != nil && !os.IsNotExist(err) {
			w.log.WithError(err).WithField("path", files[i]).Warn("failed to remove workspace file")
		}
	}
	if err := os.Remove(w.Dir); err != nil && !os.IsNotExist(err) {
		// Something untracked was left behind; take the whole directory.
		if err := os.RemoveAll(w.Dir); err != nil {
			w.log.WithError(err).WithField("path", w.Dir).Warn("failed to remove workspace directory")
			return
		}
	}
	w.log.Debug("workspace released")
}

// Touch marks the workspace as in use so a sweep in another process does not
// take it for a leftover.
func (w *Workspace) Touch() {
	now := time.Now()
	if err := os.Chtimes(w.Dir, now, now); err != nil && !os.IsNotExist(err) {
		w.log.WithError(err).Debug("failed to touch workspace")
	}
}

// Active reports whether the workspace named id is held by this process.
func (m *Manager) Active(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[id]
	return ok
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

// Extension returns the lower-cased extension of a client supplied filename,
// or "" when it is missing or contains anything but letters and digits.
func Extension(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(base))
	if len(ext) < 2 || len(ext) > 11 || len(ext) == len(base) {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
