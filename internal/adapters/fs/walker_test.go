package fs_test

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/pake/internal/adapters/fs"
)

func TestWalker_WalkFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "sub/b.txt", ".git/HEAD", ".pake/buildinfo.json", "node_modules/x.js")

	var got []string
	for p := range fs.NewWalker().WalkFiles(root, []string{"node_modules"}) {
		rel, _ := filepath.Rel(root, p)
		got = append(got, filepath.ToSlash(rel))
	}
	slices.Sort(got)
	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, got)
}

func TestWalker_WalkFiles_MissingRoot(t *testing.T) {
	count := 0
	for range fs.NewWalker().WalkFiles(filepath.Join(t.TempDir(), "nope"), nil) {
		count++
	}
	assert.Zero(t, count)
}

func TestWalker_WalkFiles_EarlyStop(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a", "b", "c")

	count := 0
	for range fs.NewWalker().WalkFiles(root, nil) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
