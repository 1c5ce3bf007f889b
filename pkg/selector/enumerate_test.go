package selector

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/schema"
)

func runContext(t *testing.T, dir string) *Context {
	t.Helper()
	ctx, err := NewContext(schema.PhaseRun, dir)
	require.NoError(t, err)
	return ctx
}

func writeFile(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	if !mtime.IsZero() {
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
}

func matchPaths(matches []Match) []string {
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.Path
	}
	return paths
}

func TestEnumerateLiteral(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.json")
	writeFile(t, path, time.Time{})

	sel, err := NewLiteral(path)
	require.NoError(t, err)

	matches, err := Enumerate(sel, runContext(t, dir), false)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, path, matches[0].Path)
}

func TestEnumerateLiteralMissingIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	sel, err := NewLiteral(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)

	matches, err := Enumerate(sel, runContext(t, dir), false)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEnumerateLiteralDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	sel, err := NewLiteral(dir)
	require.NoError(t, err)

	_, err = Enumerate(sel, runContext(t, dir), false)
	require.Error(t, err)
	assert.True(t, errUtils.Is(err, errUtils.ErrSelectorConfig))
}

func TestEnumerateLiteralInterpolatesContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "conf", "app.json"), time.Time{})

	sel, err := NewLiteral("{CONTEXT}/conf/app.json")
	require.NoError(t, err)

	matches, err := Enumerate(sel, runContext(t, dir), false)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, filepath.Join(dir, "conf", "app.json"), matches[0].Path)
}

func TestEnumeratePatternDepthOrdersFirst(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	// The shallow file is newer; depth still ranks it lower.
	writeFile(t, filepath.Join(dir, "base.json"), now)
	writeFile(t, filepath.Join(dir, "prod", "override.json"), now.Add(-time.Hour))

	sel, err := NewPattern(dir, `.*\.json`)
	require.NoError(t, err)

	matches, err := Enumerate(sel, runContext(t, dir), false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "base.json"),
		filepath.Join(dir, "prod", "override.json"),
	}, matchPaths(matches))
	assert.Equal(t, 0, matches[0].Depth)
	assert.Equal(t, 1, matches[1].Depth)
}

func TestEnumeratePatternModTimeBreaksDepthTies(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, filepath.Join(dir, "old.json"), now.Add(-time.Hour))
	writeFile(t, filepath.Join(dir, "new.json"), now)

	sel, err := NewPattern(dir, `.*\.json`)
	require.NoError(t, err)

	matches, err := Enumerate(sel, runContext(t, dir), false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "old.json"),
		filepath.Join(dir, "new.json"),
	}, matchPaths(matches))
}

func TestEnumeratePatternPathBreaksRemainingTies(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	writeFile(t, filepath.Join(dir, "bbb.json"), stamp)
	writeFile(t, filepath.Join(dir, "aaa.json"), stamp)

	sel, err := NewPattern(dir, `.*\.json`)
	require.NoError(t, err)

	// Lowest precedence first, so the lexicographically-later path is last
	// and wins.
	matches, err := Enumerate(sel, runContext(t, dir), false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "aaa.json"),
		filepath.Join(dir, "bbb.json"),
	}, matchPaths(matches))

	reversed, err := Enumerate(sel, runContext(t, dir), true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bbb.json"), reversed[0].Path)
}

func TestEnumerateGlobPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "base.cue"), time.Time{})
	writeFile(t, filepath.Join(dir, "env", "prod.cue"), time.Time{})
	writeFile(t, filepath.Join(dir, "env", "notes.txt"), time.Time{})

	sel, err := NewPattern(dir, "**/*.cue", WithGlobSyntax())
	require.NoError(t, err)

	matches, err := Enumerate(sel, runContext(t, dir), false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "base.cue"),
		filepath.Join(dir, "env", "prod.cue"),
	}, matchPaths(matches))
}

func TestEnumeratePatternMissingRootIsEmpty(t *testing.T) {
	sel, err := NewPattern(filepath.Join(t.TempDir(), "nope"), `.*`)
	require.NoError(t, err)

	matches, err := Enumerate(sel, runContext(t, "/"), false)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEnumeratePatternUnsetTokenFails(t *testing.T) {
	dir := t.TempDir()
	ctx := runContext(t, dir)
	ctx.LookupEnv = func(string) (string, bool) { return "", false }

	sel, err := NewPattern(dir, `{DEPLOY_ENV}\.json`)
	require.NoError(t, err)

	_, err = Enumerate(sel, ctx, false)
	require.Error(t, err)
	assert.True(t, errUtils.Is(err, errUtils.ErrInterpolation))
}

func TestEnumeratePatternInvalidExpandedPatternFails(t *testing.T) {
	dir := t.TempDir()
	ctx := runContext(t, dir)
	ctx.LookupEnv = func(name string) (string, bool) { return "(", true }

	sel, err := NewPattern(dir, `{DEPLOY_ENV}`)
	require.NoError(t, err)

	_, err = Enumerate(sel, ctx, false)
	require.Error(t, err)
	assert.True(t, errUtils.Is(err, errUtils.ErrSelectorConfig))
}

func TestEnumerateSymlinkedFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "data", "real.json")
	writeFile(t, target, time.Time{})

	root := filepath.Join(dir, "root")
	require.NoError(t, os.MkdirAll(root, 0o755))
	link := filepath.Join(root, "link.json")
	require.NoError(t, os.Symlink(target, link))

	sel, err := NewPattern(root, `.*\.json`)
	require.NoError(t, err)

	ctx := runContext(t, dir)
	matches, err := Enumerate(sel, ctx, false)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	resolved, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, resolved, matches[0].Path)

	ctx.FollowLinks = false
	matches, err = Enumerate(sel, ctx, false)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPathDepth(t *testing.T) {
	assert.Equal(t, 0, pathDepth("."))
	assert.Equal(t, 0, pathDepth(""))
	assert.Equal(t, 0, pathDepth("/"))
	assert.Equal(t, 1, pathDepth("a"))
	assert.Equal(t, 2, pathDepth("a/b"))
}
