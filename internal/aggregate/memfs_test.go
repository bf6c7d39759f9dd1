package aggregate

import (
	iofs "io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/CageChen/ctxhub/internal/fs"
)

// memFS is an in-memory FileSystem with listing order fixed by insertion and
// per-path error injection.
type memFS struct {
	root    string
	dirs    map[string][]fs.DirEntry
	files   map[string][]byte
	readErr map[string]error
	listErr map[string]error

	mu     sync.Mutex
	reads  []string
	onRead func(p string)
}

func newMemFS(root string) *memFS {
	return &memFS{
		root:    root,
		dirs:    map[string][]fs.DirEntry{"": nil},
		files:   map[string][]byte{},
		readErr: map[string]error{},
		listErr: map[string]error{},
	}
}

func (m *memFS) addFile(p string, content string) *memFS {
	m.files[p] = []byte(content)
	m.link(p, false)
	return m
}

func (m *memFS) addDir(p string) *memFS {
	m.link(p, true)
	return m
}

func (m *memFS) link(p string, isDir bool) {
	dir, name := path.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	if _, ok := m.dirs[dir]; !ok {
		m.link(dir, true)
	}
	if isDir {
		if _, ok := m.dirs[p]; ok {
			return
		}
		m.dirs[p] = nil
	}
	var mode iofs.FileMode
	if isDir {
		mode = iofs.ModeDir
	}
	m.dirs[dir] = append(m.dirs[dir], fs.DirEntry{Name: name, IsDir: isDir, Type: mode})
}

func (m *memFS) Root() string { return m.root }

func (m *memFS) ReadFile(p string) ([]byte, error) {
	m.mu.Lock()
	m.reads = append(m.reads, p)
	onRead := m.onRead
	m.mu.Unlock()
	if onRead != nil {
		onRead(p)
	}
	if err, ok := m.readErr[p]; ok {
		return nil, err
	}
	content, ok := m.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return content, nil
}

func (m *memFS) Stat(p string) (fs.FileInfo, error) {
	if _, ok := m.dirs[p]; ok {
		return fs.FileInfo{Name: path.Base(p), IsDir: true}, nil
	}
	if content, ok := m.files[p]; ok {
		return fs.FileInfo{Name: path.Base(p), Size: int64(len(content))}, nil
	}
	return fs.FileInfo{}, os.ErrNotExist
}

func (m *memFS) ReadDir(p string) ([]fs.DirEntry, error) {
	if err, ok := m.listErr[p]; ok {
		return nil, err
	}
	entries, ok := m.dirs[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return entries, nil
}
