package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pakefile = `version: "1"
variables:
  GREETING: hello
targets:
  all:
    kind: virtual
    deps: [out/greeting.txt, out/copy.txt]
  out/greeting.txt:
    deps: [in.txt]
    actions:
      - output: [sh, -c, "echo ${GREETING} && cat in.txt"]
  out/copy.txt:
    deps: [out/greeting.txt]
    actions:
      - copy: {sources: [out/greeting.txt], destination: "${TARGET}"}
  broken:
    kind: phony
    actions:
      - run: [sh, -c, "echo failing >&2; exit 3"]
  declared.txt:
  uses-declared:
    kind: phony
    deps: [declared.txt]
    actions:
      - info: never printed
  loop-a: {kind: virtual, deps: [loop-b]}
  loop-b: {kind: virtual, deps: [loop-a]}
`

func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pakefile.yaml"), []byte(pakefile), 0o600))
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("world\n"), 0o600))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(in, past, past))
	t.Chdir(dir)
	return dir
}

func TestRun(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		expectedExit int
	}{
		{name: "Default target", args: []string{"build"}, expectedExit: 0},
		{name: "Named target", args: []string{"build", "out/greeting.txt"}, expectedExit: 0},
		{name: "Dry run", args: []string{"build", "--dry-run"}, expectedExit: 0},
		{name: "Failing command", args: []string{"build", "broken"}, expectedExit: 1},
		{name: "Keep going", args: []string{"build", "-k", "broken", "all"}, expectedExit: 1},
		{name: "Missing declared input", args: []string{"build", "uses-declared"}, expectedExit: 1},
		{name: "Cycle", args: []string{"build", "loop-a"}, expectedExit: 2},
		{name: "Unknown target", args: []string{"build", "nope"}, expectedExit: 2},
		{name: "Missing pakefile", args: []string{"-f", "missing.yaml", "build"}, expectedExit: 2},
		{name: "Invalid define", args: []string{"-D", "NOVALUE", "build"}, expectedExit: 2},
		{name: "Targets", args: []string{"targets"}, expectedExit: 0},
		{name: "Version", args: []string{"version"}, expectedExit: 0},
		{name: "Clean", args: []string{"clean"}, expectedExit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupProject(t)
			assert.Equal(t, tt.expectedExit, run(tt.args))
		})
	}
}

func TestRun_BuildThenUpToDate(t *testing.T) {
	dir := setupProject(t)

	require.Equal(t, 0, run([]string{"build"}))

	data, err := os.ReadFile(filepath.Join(dir, "out", "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(data))
	copied, err := os.ReadFile(filepath.Join(dir, "out", "copy.txt"))
	require.NoError(t, err)
	assert.Equal(t, string(data), string(copied))

	info, err := os.Stat(filepath.Join(dir, ".pake", "buildinfo.json"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// Push the artifacts into the past so the second run sees them as fresh.
	older := time.Now().Add(-30 * time.Minute)
	oldest := time.Now().Add(-45 * time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "out", "greeting.txt"), oldest, oldest))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "out", "copy.txt"), older, older))

	trace := filepath.Join(dir, "trace.jsonl")
	require.Equal(t, 0, run([]string{"build", "--trace", trace}))

	after, err := os.Stat(filepath.Join(dir, "out", "copy.txt"))
	require.NoError(t, err)
	assert.True(t, after.ModTime().Equal(older), "up-to-date artifact was rebuilt")

	raw, err := os.ReadFile(trace)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, true, entry["cached"], line)
	}
}

func TestRun_Overrides(t *testing.T) {
	dir := setupProject(t)

	require.Equal(t, 0, run([]string{"-D", "GREETING=bonjour", "build", "out/greeting.txt"}))

	data, err := os.ReadFile(filepath.Join(dir, "out", "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bonjour\nworld\n", string(data))
}

func TestRun_Directory(t *testing.T) {
	dir := setupProject(t)
	t.Chdir(t.TempDir())

	require.Equal(t, 0, run([]string{"-C", dir, "build", "out/greeting.txt"}))
	assert.FileExists(t, filepath.Join(dir, "out", "greeting.txt"))
}

func TestRun_Clean(t *testing.T) {
	dir := setupProject(t)

	require.Equal(t, 0, run([]string{"build"}))
	require.Equal(t, 0, run([]string{"clean"}))

	assert.NoFileExists(t, filepath.Join(dir, "out", "greeting.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "out", "copy.txt"))
	assert.NoFileExists(t, filepath.Join(dir, ".pake", "buildinfo.json"))
	assert.FileExists(t, filepath.Join(dir, "in.txt"))
}
