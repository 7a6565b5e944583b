package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSave_SanitizesAndWrites(t *testing.T) {
	s := New(t.TempDir())

	saved, err := s.Save(`re:port?.txt`, strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Name != "report.txt" {
		t.Errorf("expected name 'report.txt', got '%s'", saved.Name)
	}
	if saved.Size != 5 {
		t.Errorf("expected size 5, got %d", saved.Size)
	}

	data, err := os.ReadFile(filepath.Join(s.Root(), "report.txt"))
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected content 'hello', got '%s'", data)
	}
}

func TestSave_CreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "received_files")
	s := New(root)

	if _, err := s.Save("a.bin", bytes.NewReader([]byte{1, 2, 3})); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a.bin")); err != nil {
		t.Errorf("expected file under lazily created root: %v", err)
	}
}

func TestSave_OverwritesSilently(t *testing.T) {
	s := New(t.TempDir())

	if _, err := s.Save("a?.txt", strings.NewReader("first")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save("a?.txt", strings.NewReader("second!")); err != nil {
		t.Fatal(err)
	}

	files, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Name != "a.txt" || files[0].Size != 7 {
		t.Errorf("expected a.txt of 7 bytes, got %s of %d", files[0].Name, files[0].Size)
	}
}

func TestSave_InvalidNames(t *testing.T) {
	s := New(t.TempDir())

	for _, name := range []string{"", "???", ".", "..", "/\\"} {
		_, err := s.Save(name, strings.NewReader("x"))
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("Save(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSave_RemovesPartialFile(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Save("broken.bin", io.MultiReader(strings.NewReader("partial"), failingReader{}))
	if err == nil {
		t.Fatal("expected error from failing reader")
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "broken.bin")); !os.IsNotExist(err) {
		t.Errorf("expected partial file to be removed, stat err = %v", err)
	}
}

func TestList_ReturnsEveryWrittenFile(t *testing.T) {
	s := New(t.TempDir())
	want := map[string]int{"one.txt": 1, "two.txt": 22, "three.bin": 333}

	for name, size := range want {
		if _, err := s.Save(name, bytes.NewReader(make([]byte, size))); err != nil {
			t.Fatal(err)
		}
	}
	// Directories are not listed.
	if err := os.Mkdir(filepath.Join(s.Root(), "subdir"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %d", len(want), len(files))
	}
	for _, f := range files {
		size, ok := want[f.Name]
		if !ok {
			t.Errorf("unexpected file %s", f.Name)
			continue
		}
		if f.ID != f.Name {
			t.Errorf("expected id == name, got %s != %s", f.ID, f.Name)
		}
		if f.Size != int64(size) {
			t.Errorf("%s: expected size %d, got %d", f.Name, size, f.Size)
		}
		if _, err := time.ParseInLocation(TimeLayout, f.MTime, time.Local); err != nil {
			t.Errorf("%s: mtime %q not in %s layout", f.Name, f.MTime, TimeLayout)
		}
	}
}

func TestList_EmptyDirectory(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "shared_files"))

	files, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if files == nil || len(files) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", files)
	}
}

func TestList_NewestFirst(t *testing.T) {
	s := New(t.TempDir())
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	// Written in an order that differs from the mtime order.
	offsets := map[string]time.Duration{
		"b.txt": 3 * time.Minute,
		"a.txt": 1 * time.Minute,
		"d.txt": 4 * time.Minute,
		"c.txt": 2 * time.Minute,
	}
	for name, off := range offsets {
		if _, err := s.Save(name, strings.NewReader(name)); err != nil {
			t.Fatal(err)
		}
		mt := base.Add(off)
		if err := os.Chtimes(filepath.Join(s.Root(), name), mt, mt); err != nil {
			t.Fatal(err)
		}
	}

	files, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, f := range files {
		got = append(got, f.Name)
	}
	if fmt.Sprint(got) != "[d.txt b.txt c.txt a.txt]" {
		t.Errorf("expected newest first, got %v", got)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1].MTime <= files[i].MTime {
			t.Errorf("mtime not strictly descending at %d: %s then %s", i, files[i-1].MTime, files[i].MTime)
		}
	}
}

func TestOpen(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Save("data.bin", bytes.NewReader([]byte{0, 1, 2, 255})); err != nil {
		t.Fatal(err)
	}

	f, info, err := s.Open("data.bin")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, _ := io.ReadAll(f)
	if !bytes.Equal(data, []byte{0, 1, 2, 255}) {
		t.Errorf("unexpected content %v", data)
	}
	if info.Size() != 4 {
		t.Errorf("expected size 4, got %d", info.Size())
	}
}

func TestOpen_NotFound(t *testing.T) {
	s := New(t.TempDir())

	if _, _, err := s.Open("missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpen_RejectsTraversal(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "shared_files")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}
	s := New(root)

	for _, name := range []string{"..", "../secret.txt", `..\secret.txt`, "/etc/passwd", "a\x00b"} {
		if _, _, err := s.Open(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Open(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestDelete(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Save("gone.txt", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete("gone.txt"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete("gone.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDelete_RefusesDirectories(t *testing.T) {
	s := New(t.TempDir())
	if err := os.Mkdir(filepath.Join(s.Root(), "keep"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete("keep"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a directory, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "keep")); err != nil {
		t.Errorf("directory should still exist: %v", err)
	}
}

func TestSymlinks_StayInsideRoot(t *testing.T) {
	parent := t.TempDir()
	s := New(filepath.Join(parent, "shared_files"))
	if _, err := s.Save("inside.txt", strings.NewReader("inside")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(parent, "secret.txt"), filepath.Join(s.Root(), "escape.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink("inside.txt", filepath.Join(s.Root(), "alias.txt")); err != nil {
		t.Fatal(err)
	}

	files, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "alias.txt,inside.txt" && strings.Join(names, ",") != "inside.txt,alias.txt" {
		t.Errorf("expected only in-root files to be listed, got %v", names)
	}

	if _, _, err := s.Open("escape.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open through escaping link: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Preview("escape.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Preview through escaping link: expected ErrNotFound, got %v", err)
	}

	f, _, err := s.Open("alias.txt")
	if err != nil {
		t.Fatalf("Open through in-root link failed: %v", err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "inside" {
		t.Errorf("unexpected content through link %q", data)
	}
}
