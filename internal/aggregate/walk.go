package aggregate

import (
	"context"
	"iter"
	"path"

	"github.com/CageChen/ctxhub/internal/fs"
)

// Visit is one candidate file produced by Walk. Path is slash-separated and
// relative to the filesystem root. A non-nil Err means the entry at Path could
// not be listed; for the root itself Path is "".
type Visit struct {
	Path string
	Err  error
}

type frame struct {
	dir     string
	entries []fs.DirEntry
	next    int
}

// Walk returns a depth-first, pre-order sequence of the files under the root
// of fsys. Entries are visited in the order ReadDir returns them and a
// subdirectory is entered before its later siblings. Directories are never
// yielded.
//
// A symlink is stat-ed: a link whose target is a directory is skipped,
// anything else (including a dangling link) is yielded. Whether a link
// resolves is up to fsys; LocalFS and GitFS both follow links for Stat.
// Other non-regular entries are skipped. A subdirectory that cannot be listed
// is yielded once with Err set.
//
// The sequence stops early when ctx is done. Each call walks from scratch.
func Walk(ctx context.Context, fsys fs.FileSystem) iter.Seq[Visit] {
	return func(yield func(Visit) bool) {
		walk(ctx, fsys, yield)
	}
}

// walk drives the traversal and returns ctx.Err() when ctx ended it before
// every entry was visited. It returns nil when the tree was exhausted or
// yield asked to stop.
func walk(ctx context.Context, fsys fs.FileSystem, yield func(Visit) bool) error {
	entries, err := fsys.ReadDir("")
	if err != nil {
		yield(Visit{Err: err})
		return nil
	}
	stack := []*frame{{entries: entries}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		e := top.entries[top.next]
		top.next++
		p := path.Join(top.dir, e.Name)

		switch {
		case e.IsDir:
			children, err := fsys.ReadDir(p)
			if err != nil {
				if !yield(Visit{Path: p, Err: err}) {
					return nil
				}
				continue
			}
			stack = append(stack, &frame{dir: p, entries: children})
		case e.IsSymlink():
			if info, err := fsys.Stat(p); err == nil && info.IsDir {
				continue
			}
			if !yield(Visit{Path: p}) {
				return nil
			}
		case e.IsRegular():
			if !yield(Visit{Path: p}) {
				return nil
			}
		}
	}
	return nil
}
