// Package store implements the media file store: a hierarchical
// read/write/list/delete abstraction rooted at the removable-media
// directory. All operations are synchronous and blocking against the
// underlying media.
package store

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/obscuracam/obscurad/internal/apperr"
)

// DirEntry is a read-only projection of one child of a directory. It is
// re-enumerated on every List call, never cached.
type DirEntry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Object is an opened media file ready to be served.
type Object struct {
	io.ReadCloser
	Name        string
	Size        int64
	ContentType string
}

// Media is the file store rooted at the media directory.
type Media struct {
	root string // absolute path to the media root
}

// NewMedia creates a store rooted at the given directory, which must
// already exist (the mount itself is the storage driver's job).
func NewMedia(root string) (*Media, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("store: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("store: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store: root is not a directory: %s", abs)
	}
	return &Media{root: abs}, nil
}

// Root returns the absolute media root directory.
func (m *Media) Root() string {
	return m.root
}

// safePath resolves a request path against the media root and rejects
// any result that escapes it (directory traversal).
func (m *Media) safePath(rel string) (string, error) {
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return m.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("store: %w: %s", apperr.ErrBadPath, rel)
	}
	joined := filepath.Join(m.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("store: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, m.root+string(os.PathSeparator)) && abs != m.root {
		return "", fmt.Errorf("store: %w: escapes media root: %s", apperr.ErrBadPath, rel)
	}
	return abs, nil
}

// isRoot reports whether the request path names the media root itself.
func isRoot(p string) bool {
	return p == "" || p == "/"
}

// Exists reports whether a node exists at the request path.
func (m *Media) Exists(p string) bool {
	abs, err := m.safePath(p)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Open resolves and opens a media file for serving.
//
// A path ending in "/" serves index.htm under it, as does a path that
// resolves to a directory. A path ending in ".src" is served as plain
// text with the suffix stripped from the name used to locate the bytes,
// so "/index.htm.src" serves "/index.htm" as literal text. The content
// type is otherwise derived from the final extension; download forces
// application/octet-stream regardless.
func (m *Media) Open(p string, download bool) (*Object, error) {
	if strings.HasSuffix(p, "/") {
		p += "index.htm"
	}

	ctype := typeText
	if strings.HasSuffix(p, srcSuffix) {
		p = strings.TrimSuffix(p, srcSuffix)
	} else {
		ctype = typeForName(p)
	}

	abs, err := m.safePath(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err == nil && info.IsDir() {
		p = p + "/index.htm"
		ctype = typeHTML
		abs = filepath.Join(abs, "index.htm")
		info, err = os.Stat(abs)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", p, apperr.ErrNotFound)
	}

	if download {
		ctype = typeBinary
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", p, apperr.ErrNotFound)
	}
	return &Object{
		ReadCloser:  f,
		Name:        path.Base(p),
		Size:        info.Size(),
		ContentType: ctype,
	}, nil
}

// List enumerates the children of a directory.
func (m *Media) List(dir string) ([]DirEntry, error) {
	abs, err := m.safePath(dir)
	if err != nil {
		return nil, err
	}
	if !isRoot(dir) {
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("store: list %s: %w", dir, apperr.ErrNotFound)
		}
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if info, statErr := os.Stat(abs); statErr == nil && !info.IsDir() {
			return nil, fmt.Errorf("store: list %s: %w", dir, apperr.ErrNotADirectory)
		}
		return nil, fmt.Errorf("store: list %s: %w", dir, err)
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		de := DirEntry{Name: e.Name(), IsDir: e.IsDir()}
		if info, infoErr := e.Info(); infoErr == nil {
			de.Size = info.Size()
			de.ModTime = info.ModTime()
		}
		out = append(out, de)
	}
	return out, nil
}

// Create makes a new node. A final segment containing an extension
// marker becomes an empty file, anything else a directory.
func (m *Media) Create(p string) error {
	if isRoot(p) {
		return fmt.Errorf("store: create %s: %w", p, apperr.ErrBadPath)
	}
	if m.Exists(p) {
		return fmt.Errorf("store: create %s: %w", p, apperr.ErrAlreadyExists)
	}
	abs, err := m.safePath(p)
	if err != nil {
		return err
	}
	if strings.Contains(path.Base(p), ".") {
		f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return fmt.Errorf("store: create file %s: %w", p, err)
		}
		return f.Close()
	}
	if err := os.Mkdir(abs, 0o755); err != nil {
		return fmt.Errorf("store: create dir %s: %w", p, err)
	}
	return nil
}

// Delete removes the node at p, recursing into directories depth-first:
// files are removed as encountered and the emptied directory last.
func (m *Media) Delete(p string) error {
	if isRoot(p) || !m.Exists(p) {
		return fmt.Errorf("store: delete %s: %w", p, apperr.ErrBadPath)
	}
	abs, err := m.safePath(p)
	if err != nil {
		return err
	}
	return deleteRecursive(abs)
}

func deleteRecursive(abs string) error {
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	if !info.IsDir() {
		if err := os.Remove(abs); err != nil {
			return fmt.Errorf("store: delete file: %w", err)
		}
		return nil
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("store: delete: read dir: %w", err)
	}
	for _, e := range entries {
		if err := deleteRecursive(filepath.Join(abs, e.Name())); err != nil {
			return err
		}
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("store: delete dir: %w", err)
	}
	return nil
}

// Write replaces any existing node at p, then streams r to a new file
// segment by segment in arrival order. An interrupted stream leaves a
// partial file behind; there is no rollback.
func (m *Media) Write(p string, r io.Reader) error {
	abs, err := m.safePath(p)
	if err != nil {
		return err
	}
	if m.Exists(p) {
		if err := deleteRecursive(abs); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("store: write %s: %w", p, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("store: write %s: %w", p, err)
	}
	return f.Close()
}

// Read returns the full contents of the file at p.
func (m *Media) Read(p string) ([]byte, error) {
	abs, err := m.safePath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", p, apperr.ErrNotFound)
	}
	return data, nil
}

// CreateNew opens p for exclusive creation, ensuring the parent
// directory exists. Used by the capture pipeline so a sequence number
// can never overwrite an earlier image.
func (m *Media) CreateNew(p string) (io.WriteCloser, error) {
	abs, err := m.safePath(p)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir: %w", err)
	}
	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: create new %s: %w", p, err)
	}
	return f, nil
}
