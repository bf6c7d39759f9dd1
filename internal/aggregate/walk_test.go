package aggregate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CageChen/ctxhub/internal/fs"
)

func collect(t *testing.T, ctx context.Context, fsys fs.FileSystem) []Visit {
	t.Helper()
	var visits []Visit
	for v := range Walk(ctx, fsys) {
		visits = append(visits, v)
	}
	return visits
}

func paths(visits []Visit) []string {
	out := make([]string, len(visits))
	for i, v := range visits {
		out[i] = v.Path
	}
	return out
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestWalk_PreOrder(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a/b/c.txt": "c",
		"a/z.txt":   "z",
		"a.txt":     "a",
		"b.txt":     "b",
	})

	visits := collect(t, context.Background(), fs.NewLocalFS(dir))
	assert.Equal(t, []string{"a/b/c.txt", "a/z.txt", "a.txt", "b.txt"}, paths(visits))
}

func TestWalk_ListingOrder(t *testing.T) {
	m := newMemFS("/proj").
		addFile("zeta.txt", "z").
		addFile("lib/util.go", "u").
		addFile("alpha.txt", "a").
		addFile("lib/deep/x.go", "x").
		addFile("lib/a.go", "a")

	visits := collect(t, context.Background(), m)
	assert.Equal(t, []string{"zeta.txt", "lib/util.go", "lib/deep/x.go", "lib/a.go", "alpha.txt"}, paths(visits))
}

func TestWalk_EmptyDirs(t *testing.T) {
	m := newMemFS("/proj").addDir("empty").addDir("also/empty")
	assert.Empty(t, collect(t, context.Background(), m))
}

func TestWalk_DeepNesting(t *testing.T) {
	m := newMemFS("/proj")
	p := "d"
	for range 2000 {
		p += "/d"
	}
	m.addFile(p+"/leaf.txt", "leaf")

	visits := collect(t, context.Background(), m)
	require.Len(t, visits, 1)
	assert.Equal(t, p+"/leaf.txt", visits[0].Path)
}

func TestWalk_UnlistableDir(t *testing.T) {
	boom := errors.New("permission denied")
	m := newMemFS("/proj").
		addFile("a/secret.txt", "s").
		addFile("b.txt", "b")
	m.listErr["a"] = boom

	visits := collect(t, context.Background(), m)
	require.Len(t, visits, 2)
	assert.Equal(t, "a", visits[0].Path)
	assert.ErrorIs(t, visits[0].Err, boom)
	assert.Equal(t, "b.txt", visits[1].Path)
	assert.NoError(t, visits[1].Err)
}

func TestWalk_RootListingError(t *testing.T) {
	boom := errors.New("io error")
	m := newMemFS("/proj")
	m.listErr[""] = boom

	visits := collect(t, context.Background(), m)
	require.Len(t, visits, 1)
	assert.Equal(t, "", visits[0].Path)
	assert.ErrorIs(t, visits[0].Err, boom)
}

func TestWalk_Symlinks(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"real/file.txt": "content",
	})
	if err := os.Symlink("real", filepath.Join(dir, "dirlink")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink("real/file.txt", filepath.Join(dir, "filelink")))
	require.NoError(t, os.Symlink("missing.txt", filepath.Join(dir, "dangling")))

	visits := collect(t, context.Background(), fs.NewLocalFS(dir))
	assert.Equal(t, []string{"dangling", "filelink", "real/file.txt"}, paths(visits))
}

func TestWalk_StopsOnCancel(t *testing.T) {
	m := newMemFS("/proj").
		addFile("a.txt", "a").
		addFile("b.txt", "b").
		addFile("c.txt", "c")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []string
	for v := range Walk(ctx, m) {
		got = append(got, v.Path)
		cancel()
	}
	assert.Equal(t, []string{"a.txt"}, got)
}

func TestWalk_EarlyBreak(t *testing.T) {
	m := newMemFS("/proj").addFile("a.txt", "a").addFile("b.txt", "b")

	var got []string
	for v := range Walk(context.Background(), m) {
		got = append(got, v.Path)
		break
	}
	assert.Equal(t, []string{"a.txt"}, got)
}

func TestWalk_Restartable(t *testing.T) {
	m := newMemFS("/proj").addFile("a.txt", "a").addFile("d/b.txt", "b")
	seq := Walk(context.Background(), m)

	var first, second []string
	for v := range seq {
		first = append(first, v.Path)
	}
	for v := range seq {
		second = append(second, v.Path)
	}
	assert.Equal(t, first, second)
}
