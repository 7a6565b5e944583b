// Package store keeps uploaded files in a flat directory. The sanitized file
// name is the public identifier of a file.
package store

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"lanshare/internal/sanitize"
)

// TimeLayout renders modification times in listings. Lexical order of this
// layout is chronological order.
const TimeLayout = "2006-01-02 15:04:05"

// StoredFile describes one file in a store directory.
type StoredFile struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	MTime   string    `json:"mtime"`
	ModTime time.Time `json:"-"`
}

// SavedFile is the outcome of a successful Save.
type SavedFile struct {
	Name string `json:"filename"`
	Size int64  `json:"size"`
}

// File is an opened stored file.
type File interface {
	io.ReadSeekCloser
}

// Store is a flat directory of files. It holds no state besides its root,
// so concurrent writes to one name race on the file system and the last
// writer wins.
type Store struct {
	root string
}

// New returns a store rooted at dir. The directory is created on first write
// or listing.
func New(dir string) *Store {
	return &Store{root: filepath.Clean(dir)}
}

// Root returns the directory backing the store.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) ensure() error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("create store directory %s: %w", s.root, err)
	}
	return nil
}

// checkName rejects ids that are not a single plain entry of the root.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\\x00") || !filepath.IsLocal(name) {
		return ErrInvalidName
	}
	return nil
}

// openRoot opens the store directory for confined access: lookups through
// the returned root cannot leave it, even by following a symlink.
func (s *Store) openRoot() (*os.Root, error) {
	root, err := os.OpenRoot(s.root)
	if err != nil {
		return nil, notFound(s.root, err)
	}
	return root, nil
}

// Save sanitizes name and writes the content of r under it, replacing any
// existing file of that name.
func (s *Store) Save(name string, r io.Reader) (SavedFile, error) {
	safe := sanitize.Filename(name)
	if err := checkName(safe); err != nil {
		return SavedFile{}, fmt.Errorf("save %q: %w", name, err)
	}
	if err := s.ensure(); err != nil {
		return SavedFile{}, err
	}
	root, err := s.openRoot()
	if err != nil {
		return SavedFile{}, err
	}
	defer root.Close()

	dst, err := root.Create(safe)
	if err != nil {
		return SavedFile{}, fmt.Errorf("create %s: %w", safe, err)
	}

	n, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		root.Remove(safe)
		return SavedFile{}, fmt.Errorf("write %s: %w", safe, err)
	}

	slog.Info("File saved", "dir", s.root, "original", name, "name", safe, "size", n)
	return SavedFile{Name: safe, Size: n}, nil
}

// List returns the regular files of the root, newest first. Symlinks that
// lead outside the root are skipped.
func (s *Store) List() ([]StoredFile, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	root, err := s.openRoot()
	if err != nil {
		return nil, err
	}
	defer root.Close()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read store directory %s: %w", s.root, err)
	}

	files := make([]StoredFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		// Stat follows symlinks that stay inside the root.
		info, err := root.Stat(e.Name())
		if err != nil {
			slog.Warn("Skipping unreadable file", "dir", s.root, "name", e.Name(), "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, StoredFile{
			ID:      e.Name(),
			Name:    e.Name(),
			Size:    info.Size(),
			MTime:   info.ModTime().Local().Format(TimeLayout),
			ModTime: info.ModTime(),
		})
	}

	slices.SortStableFunc(files, func(a, b StoredFile) int {
		if c := cmp.Compare(b.MTime, a.MTime); c != 0 {
			return c
		}
		if c := b.ModTime.Compare(a.ModTime); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return files, nil
}

// Stat returns the file info of a stored file.
func (s *Store) Stat(name string) (fs.FileInfo, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	root, err := s.openRoot()
	if err != nil {
		return nil, err
	}
	defer root.Close()
	return stat(root, name)
}

func stat(root *os.Root, name string) (fs.FileInfo, error) {
	info, err := root.Stat(name)
	if err != nil {
		return nil, lookupErr(root, name, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return info, nil
}

// Open opens a stored file for reading.
func (s *Store) Open(name string) (File, fs.FileInfo, error) {
	if err := checkName(name); err != nil {
		return nil, nil, err
	}
	root, err := s.openRoot()
	if err != nil {
		return nil, nil, err
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		return nil, nil, lookupErr(root, name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return f, info, nil
}

// Delete removes a stored file.
func (s *Store) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	root, err := s.openRoot()
	if err != nil {
		return err
	}
	defer root.Close()

	if _, err := stat(root, name); err != nil {
		return err
	}
	if err := root.Remove(name); err != nil {
		return notFound(name, err)
	}
	slog.Info("File deleted", "dir", s.root, "name", name)
	return nil
}

// lookupErr maps a failed lookup through root. A symlink leading outside
// the root is reported as missing.
func lookupErr(root *os.Root, name string, err error) error {
	if li, lerr := root.Lstat(name); lerr == nil && li.Mode()&fs.ModeSymlink != 0 {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return notFound(name, err)
}

func notFound(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", name, err)
}
