package fs

import (
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitFS implements FileSystem by reading from a git ref (branch, tag, or commit).
// The ref is resolved once, on first use; later commits to the branch are not seen.
// It is safe for concurrent use.
type GitFS struct {
	repoPath string
	ref      string

	once    sync.Once
	repo    *git.Repository
	tree    *object.Tree
	modTime time.Time
	openErr error

	// mu guards tree and repo: go-git caches tree lookups in unsynchronized maps.
	mu sync.Mutex
}

// maxLinkHops bounds symlink chains, matching the usual ELOOP limit.
const maxLinkHops = 40

// NewGitFS creates a GitFS that reads files from the given ref in the repository at repoPath.
func NewGitFS(repoPath, ref string) *GitFS {
	return &GitFS{repoPath: repoPath, ref: ref}
}

// Root returns the repository path.
func (g *GitFS) Root() string {
	return g.repoPath
}

// Ref returns the ref the filesystem reads from.
func (g *GitFS) Ref() string {
	return g.ref
}

func (g *GitFS) open() error {
	g.once.Do(func() {
		repo, err := git.PlainOpen(g.repoPath)
		if err != nil {
			g.openErr = fmt.Errorf("open repository %s: %w", g.repoPath, err)
			return
		}
		hash, err := repo.ResolveRevision(plumbing.Revision(g.ref))
		if err != nil {
			g.openErr = fmt.Errorf("resolve %s: %w", g.ref, os.ErrNotExist)
			return
		}
		commit, err := repo.CommitObject(*hash)
		if err != nil {
			g.openErr = fmt.Errorf("read commit %s: %w", hash, err)
			return
		}
		tree, err := commit.Tree()
		if err != nil {
			g.openErr = fmt.Errorf("read tree of %s: %w", hash, err)
			return
		}
		g.repo = repo
		g.tree = tree
		g.modTime = commit.Committer.When
	})
	return g.openErr
}

func cleanPath(p string) string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}
	return p
}

// resolve finds the entry at objPath, following symlinks within the tree.
// Links that leave the tree or do not resolve report os.ErrNotExist.
// The caller holds g.mu.
func (g *GitFS) resolve(objPath string) (*object.TreeEntry, error) {
	for range maxLinkHops {
		if objPath == "" {
			return &object.TreeEntry{Mode: filemode.Dir}, nil
		}
		entry, err := g.tree.FindEntry(objPath)
		if err != nil {
			return nil, os.ErrNotExist
		}
		if entry.Mode != filemode.Symlink {
			return entry, nil
		}
		target, err := g.readBlob(entry.Hash)
		if err != nil {
			return nil, err
		}
		next := path.Join(path.Dir(objPath), string(target))
		if path.IsAbs(string(target)) || next == ".." || strings.HasPrefix(next, "../") {
			return nil, os.ErrNotExist
		}
		objPath = cleanPath(next)
	}
	return nil, fmt.Errorf("%s: too many levels of symbolic links", objPath)
}

func (g *GitFS) readBlob(h plumbing.Hash) ([]byte, error) {
	blob, err := g.repo.BlobObject(h)
	if err != nil {
		return nil, err
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// ReadFile reads the contents of the file at the given path from the git ref.
// Symlinks are followed within the tree.
func (g *GitFS) ReadFile(p string) ([]byte, error) {
	if err := g.open(); err != nil {
		return nil, err
	}
	objPath := cleanPath(p)
	if objPath == "" {
		return nil, fmt.Errorf("cannot read directory as file")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	entry, err := g.resolve(objPath)
	if err != nil {
		return nil, err
	}
	switch entry.Mode {
	case filemode.Dir:
		return nil, fmt.Errorf("%s: is a directory", objPath)
	case filemode.Submodule:
		return nil, fmt.Errorf("%s: is a submodule", objPath)
	}
	return g.readBlob(entry.Hash)
}

// Stat returns metadata for the file or directory at the given path in the git ref,
// following symlinks like os.Stat. ModTime is the commit time of the ref for every entry.
func (g *GitFS) Stat(p string) (FileInfo, error) {
	if err := g.open(); err != nil {
		return FileInfo{}, err
	}
	objPath := cleanPath(p)
	if objPath == "" {
		return FileInfo{
			Name:    g.ref,
			IsDir:   true,
			ModTime: g.modTime,
		}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	entry, err := g.resolve(objPath)
	if err != nil {
		return FileInfo{}, err
	}
	if entry.Mode == filemode.Dir {
		return FileInfo{
			Name:    path.Base(objPath),
			IsDir:   true,
			ModTime: g.modTime,
		}, nil
	}

	var size int64
	if entry.Mode != filemode.Submodule {
		if blob, err := g.repo.BlobObject(entry.Hash); err == nil {
			size = blob.Size
		}
	}
	return FileInfo{
		Name:    path.Base(objPath),
		IsDir:   false,
		Size:    size,
		ModTime: g.modTime,
	}, nil
}

// ReadDir lists the immediate children of the directory at the given path in the git ref,
// in tree order.
func (g *GitFS) ReadDir(p string) ([]DirEntry, error) {
	if err := g.open(); err != nil {
		return nil, err
	}
	objPath := cleanPath(p)

	g.mu.Lock()
	defer g.mu.Unlock()
	tree := g.tree
	if objPath != "" {
		sub, err := g.tree.Tree(objPath)
		if err != nil {
			return nil, os.ErrNotExist
		}
		tree = sub
	}

	entries := make([]DirEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, DirEntry{
			Name:  e.Name,
			IsDir: e.Mode == filemode.Dir,
			Type:  entryType(e.Mode),
		})
	}
	return entries, nil
}

func entryType(m filemode.FileMode) iofs.FileMode {
	switch m {
	case filemode.Dir:
		return iofs.ModeDir
	case filemode.Symlink:
		return iofs.ModeSymlink
	case filemode.Submodule:
		return iofs.ModeIrregular
	default:
		return 0
	}
}
