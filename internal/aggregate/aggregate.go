// Package aggregate builds a size-capped textual snapshot of a project tree
// for use as language model context.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/CageChen/ctxhub/internal/fs"
)

var (
	ErrRootNotFound = errors.New("root does not exist")
	ErrRootNotDir   = errors.New("root is not a directory")
)

// RootError reports a problem with the aggregation root. No partial result
// accompanies it.
type RootError struct {
	Root string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("aggregate %s: %v", e.Root, e.Err)
}

func (e *RootError) Unwrap() error { return e.Err }

// Reason says why a file was left out of the view.
type Reason string

const (
	ReasonBinary     Reason = "binary"
	ReasonBudget     Reason = "budget"
	ReasonUnreadable Reason = "unreadable"
)

// SkippedFile is a file that was discovered but not included.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason Reason `json:"reason"`
	Error  string `json:"error,omitempty"`
	Err    error  `json:"-"`
}

// Block is one serialized file in the view.
type Block struct {
	Path string `json:"path"`
	Text string `json:"-"`
}

// Result is the outcome of one aggregation run. Paths are absolute and listed
// in visitation order.
type Result struct {
	Root        string        `json:"root"`
	Budget      int           `json:"budget"`
	Size        int           `json:"size"`
	Blocks      []Block       `json:"-"`
	Included    []string      `json:"included"`
	Skipped     []SkippedFile `json:"skipped"`
	Complete    bool          `json:"complete"`
	Interrupted bool          `json:"interrupted"`
	Started     time.Time     `json:"started"`
	Elapsed     time.Duration `json:"elapsed"`
}

// View returns the concatenated file blocks.
func (r *Result) View() string {
	var b strings.Builder
	b.Grow(r.Size)
	for _, blk := range r.Blocks {
		b.WriteString(blk.Text)
	}
	return b.String()
}

// SkippedFiles returns the skipped paths without reasons.
func (r *Result) SkippedFiles() []string {
	paths := make([]string, len(r.Skipped))
	for i, s := range r.Skipped {
		paths[i] = s.Path
	}
	return paths
}

// SkippedBy returns the skipped paths with the given reason.
func (r *Result) SkippedBy(reason Reason) []string {
	var paths []string
	for _, s := range r.Skipped {
		if s.Reason == reason {
			paths = append(paths, s.Path)
		}
	}
	return paths
}

func (r *Result) skip(path string, reason Reason, err error) {
	s := SkippedFile{Path: path, Reason: reason, Err: err}
	if err != nil {
		s.Error = err.Error()
	}
	r.Skipped = append(r.Skipped, s)
}

// Options tune an Aggregator.
type Options struct {
	// Budget is the maximum size of the view in bytes.
	Budget int
	// SampleSize is the number of leading bytes checked for NUL.
	SampleSize int
	// Workers is the number of concurrent file readers. 1 reads sequentially.
	Workers int
}

// DefaultOptions returns the default budget, sample size and a sequential reader.
func DefaultOptions() Options {
	return Options{
		Budget:     DefaultBudget,
		SampleSize: DefaultSampleSize,
		Workers:    1,
	}
}

// Aggregator produces snapshots. It holds no per-run state and may be used
// from multiple goroutines.
type Aggregator struct {
	opts     Options
	notifier Notifier
}

// New creates an Aggregator. Non-positive options fall back to their defaults.
// notifier may be nil.
func New(opts Options, notifier Notifier) *Aggregator {
	def := DefaultOptions()
	if opts.Budget <= 0 {
		opts.Budget = def.Budget
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = def.SampleSize
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	return &Aggregator{opts: opts, notifier: notifier}
}

// Options returns the effective options.
func (a *Aggregator) Options() Options {
	return a.opts
}

// AggregateDir snapshots a local directory.
func (a *Aggregator) AggregateDir(ctx context.Context, dir string) (*Result, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &RootError{Root: dir, Err: err}
	}
	return a.Aggregate(ctx, fs.NewLocalFS(abs))
}

// Aggregate walks fsys and builds a snapshot of its text files.
//
// Files that cannot be read are skipped and logged. If ctx ends before the
// walk finishes, the partial result is returned along with ctx.Err(), marked
// incomplete and interrupted. Problems with the root itself return a
// *RootError and no result.
func (a *Aggregator) Aggregate(ctx context.Context, fsys fs.FileSystem) (*Result, error) {
	runID := uuid.NewString()
	root := fsys.Root()
	a.notify(Event{
		Type:    EventLoading,
		RunID:   runID,
		Root:    root,
		Message: "Loading project files...",
		Budget:  a.opts.Budget,
	})

	res, err := a.run(ctx, fsys)
	if res == nil {
		a.notify(Event{
			Type:    EventFailed,
			RunID:   runID,
			Root:    root,
			Message: err.Error(),
			Budget:  a.opts.Budget,
		})
		return nil, err
	}

	ev := Event{
		Type:     EventDone,
		RunID:    runID,
		Root:     root,
		Message:  fmt.Sprintf("Loaded %d files (%d skipped)", len(res.Included), len(res.Skipped)),
		Included: len(res.Included),
		Skipped:  len(res.Skipped),
		Complete: res.Complete,
		Size:     res.Size,
		Budget:   res.Budget,
	}
	if err != nil {
		ev.Type = EventFailed
		ev.Message = fmt.Sprintf("Interrupted after %d files: %v", len(res.Included), err)
	}
	a.notify(ev)
	return res, err
}

func (a *Aggregator) notify(e Event) {
	if a.notifier != nil {
		a.notifier.Notify(e)
	}
}

func (a *Aggregator) run(ctx context.Context, fsys fs.FileSystem) (*Result, error) {
	root := fsys.Root()
	info, err := fsys.Stat("")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &RootError{Root: root, Err: ErrRootNotFound}
		}
		return nil, &RootError{Root: root, Err: err}
	}
	if !info.IsDir {
		return nil, &RootError{Root: root, Err: ErrRootNotDir}
	}

	res := &Result{
		Root:     root,
		Budget:   a.opts.Budget,
		Included: []string{},
		Skipped:  []SkippedFile{},
		Complete: true,
		Started:  time.Now(),
	}

	// cut is set by the loader when ctx ended the walk before it was exhausted.
	var cut error
	var loads iter.Seq[loaded]
	if a.opts.Workers > 1 {
		loads = a.loadConcurrent(ctx, fsys, &cut)
	} else {
		loads = a.loadSequential(ctx, fsys, &cut)
	}

	var rootErr error
	for l := range loads {
		if l.path == "" {
			rootErr = l.err
			break
		}
		a.accept(res, l)
	}
	res.Elapsed = time.Since(res.Started)

	if rootErr != nil {
		return nil, &RootError{Root: root, Err: rootErr}
	}
	if cut != nil {
		res.Complete = false
		res.Interrupted = true
		return res, cut
	}
	return res, nil
}

// loaded is a visited file after reading and classification.
type loaded struct {
	path    string
	content []byte
	binary  bool
	err     error
}

func (a *Aggregator) load(fsys fs.FileSystem, v Visit) loaded {
	if v.Err != nil {
		return loaded{path: v.Path, err: v.Err}
	}
	content, err := fsys.ReadFile(v.Path)
	if err != nil {
		return loaded{path: v.Path, err: err}
	}
	return loaded{
		path:    v.Path,
		content: content,
		binary:  IsBinary(content, a.opts.SampleSize),
	}
}

func (a *Aggregator) loadSequential(ctx context.Context, fsys fs.FileSystem, cut *error) iter.Seq[loaded] {
	return func(yield func(loaded) bool) {
		*cut = walk(ctx, fsys, func(v Visit) bool {
			return yield(a.load(fsys, v))
		})
	}
}

// loadConcurrent reads and classifies files on a bounded pool of workers and
// yields them in walk order. Each visit gets a one-slot channel that is queued
// before its worker starts, so the consumer receives results in sequence.
// cut is written before the queue closes.
func (a *Aggregator) loadConcurrent(ctx context.Context, fsys fs.FileSystem, cut *error) iter.Seq[loaded] {
	return func(yield func(loaded) bool) {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, gctx := errgroup.WithContext(wctx)
		g.SetLimit(a.opts.Workers)
		queue := make(chan chan loaded, a.opts.Workers)

		go func() {
			defer close(queue)
			var blocked error
			err := walk(gctx, fsys, func(v Visit) bool {
				slot := make(chan loaded, 1)
				select {
				case queue <- slot:
				case <-gctx.Done():
					blocked = gctx.Err()
					return false
				}
				g.Go(func() error {
					slot <- a.load(fsys, v)
					return nil
				})
				return true
			})
			if err == nil {
				err = blocked
			}
			if err != nil && ctx.Err() != nil {
				*cut = ctx.Err()
			}
		}()

		stopped := false
		for slot := range queue {
			if stopped {
				continue
			}
			if !yield(<-slot) {
				stopped = true
				cancel()
			}
		}
		_ = g.Wait()
	}
}

func (a *Aggregator) accept(res *Result, l loaded) {
	abs := filepath.Join(res.Root, filepath.FromSlash(l.path))
	if l.err != nil {
		log.Printf("Warning: skipping unreadable %s: %v", abs, l.err)
		res.skip(abs, ReasonUnreadable, l.err)
		return
	}
	if l.binary {
		res.skip(abs, ReasonBinary, nil)
		return
	}

	block := FormatBlock(abs, string(l.content))
	ok, total := TryAdd(len(block), res.Size, res.Budget)
	if !ok {
		res.skip(abs, ReasonBudget, nil)
		res.Complete = false
		return
	}
	res.Size = total
	res.Blocks = append(res.Blocks, Block{Path: abs, Text: block})
	res.Included = append(res.Included, abs)
}
