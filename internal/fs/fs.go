// Package fs provides filesystem abstractions for reading project trees from local disk or git refs.
package fs

import (
	iofs "io/fs"
	"time"
)

// FileInfo holds file metadata.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// DirEntry represents a single directory entry.
// Type carries the entry's type bits (symlink, irregular); it is zero for regular files.
type DirEntry struct {
	Name  string
	IsDir bool
	Type  iofs.FileMode
}

// IsSymlink reports whether the entry is a symbolic link.
func (e DirEntry) IsSymlink() bool {
	return e.Type&iofs.ModeSymlink != 0
}

// IsRegular reports whether the entry is a regular file.
func (e DirEntry) IsRegular() bool {
	return !e.IsDir && e.Type&iofs.ModeType == 0
}

// FileSystem abstracts read access to a project tree so callers can work with either
// the local filesystem or a git object database. Paths are slash-separated and
// relative to Root; "" and "." name the root itself.
type FileSystem interface {
	Root() string
	ReadFile(path string) ([]byte, error)
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]DirEntry, error)
}
