package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalFS_ReadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLocalFS(dir)
	entries, err := l.ReadDir("")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "b.txt" || !entries[0].IsRegular() {
		t.Errorf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Name != "sub" || !entries[1].IsDir {
		t.Errorf("unexpected second entry %+v", entries[1])
	}

	content, err := l.ReadFile("sub/a.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "a" {
		t.Errorf("unexpected content %q", content)
	}
}

func TestLocalFS_Stat(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLocalFS(dir)

	info, err := l.Stat("f.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.IsDir || info.Size != 5 || info.Name != "f.txt" {
		t.Errorf("unexpected info %+v", info)
	}

	if _, err := l.Stat("missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLocalFS_Symlink(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "target.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("target.txt", filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	l := NewLocalFS(dir)

	entries, err := l.ReadDir("")
	if err != nil {
		t.Fatal(err)
	}
	var link DirEntry
	for _, e := range entries {
		if e.Name == "link.txt" {
			link = e
		}
	}
	if !link.IsSymlink() {
		t.Fatalf("expected link.txt to be reported as symlink, got %+v", link)
	}
	info, err := l.Stat("link.txt")
	if err != nil {
		t.Fatal(err)
	}
	if info.IsDir || info.Size != 1 {
		t.Errorf("expected Stat to follow the link, got %+v", info)
	}
}
