package bridge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/registry"
	"github.com/WaywardWizard/cuenim/pkg/schema"
	"github.com/WaywardWizard/cuenim/pkg/selector"
	"github.com/WaywardWizard/cuenim/pkg/source"
	"github.com/WaywardWizard/cuenim/pkg/store"
)

// passthroughTool reads fixtures holding JSON text, standing in for both
// collaborators.
type passthroughTool struct{}

func (passthroughTool) Translate(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (passthroughTool) Decrypt(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

func buildContext(t *testing.T, root string, environ []string) *selector.Context {
	t.Helper()
	ctx, err := selector.NewContext(schema.PhaseBuild, root)
	require.NoError(t, err)
	ctx.Environ = func() []string { return environ }
	ctx.LookupEnv = func(string) (string, bool) { return "", false }
	return ctx
}

func write(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

func registerLiteral(t *testing.T, reg *registry.Registry, path string) {
	t.Helper()
	sel, err := selector.NewLiteral(path)
	require.NoError(t, err)
	reg.RegisterSelector(sel)
}

func TestCommitAndLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "defaults.json"), `{"db": {"host": "build-host", "pool": 4}}`)
	write(t, filepath.Join(root, "build.cue"), `{"db": {"pool": 8}}`)

	reg := registry.NewRegistry(schema.PhaseBuild, nil)
	registerLiteral(t, reg, filepath.Join(root, "defaults.json"))
	registerLiteral(t, reg, filepath.Join(root, "build.cue"))
	reg.RegisterEnvPrefix(registry.EnvPrefix{Prefix: "BUILD_"})

	ctx := buildContext(t, root, []string{"BUILD_db_replicas=3"})
	snapPath := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, Commit(reg, ctx, passthroughTool{}, passthroughTool{}, snapPath))

	st := store.New(schema.PhaseRun)
	require.NoError(t, LoadSnapshot(st, snapPath))

	v, err := st.Get("db")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"host":     "build-host",
		"pool":     float64(8),
		"replicas": float64(3),
	}, v)
}

func TestCommitRequiresBuildContext(t *testing.T) {
	runCtx, err := selector.NewContext(schema.PhaseRun, t.TempDir())
	require.NoError(t, err)

	reg := registry.NewRegistry(schema.PhaseRun, nil)
	err = Commit(reg, runCtx, passthroughTool{}, passthroughTool{}, filepath.Join(t.TempDir(), "s.json"))
	assert.Error(t, err)
}

func TestCommitRejectsSecretSources(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "db.sops.json"), `{"password": "hunter2"}`)

	reg := registry.NewRegistry(schema.PhaseBuild, nil)
	registerLiteral(t, reg, filepath.Join(root, "db.sops.json"))

	snapPath := filepath.Join(t.TempDir(), "snapshot.json")
	err := Commit(reg, buildContext(t, root, nil), passthroughTool{}, passthroughTool{}, snapPath)
	require.Error(t, err)
	assert.True(t, errUtils.Is(err, errUtils.ErrSerialization))

	// Nothing is partially written.
	_, statErr := os.Stat(snapPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCommitIsIdempotent(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "defaults.json"), `{"x": 1}`)

	reg := registry.NewRegistry(schema.PhaseBuild, nil)
	registerLiteral(t, reg, filepath.Join(root, "defaults.json"))
	ctx := buildContext(t, root, nil)

	snapPath := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, Commit(reg, ctx, passthroughTool{}, passthroughTool{}, snapPath))
	first, err := os.ReadFile(snapPath)
	require.NoError(t, err)

	require.NoError(t, Commit(reg, ctx, passthroughTool{}, passthroughTool{}, snapPath))
	second, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadSnapshotMissingArtifactIsQuiet(t *testing.T) {
	st := store.New(schema.PhaseRun)
	require.NoError(t, LoadSnapshot(st, filepath.Join(t.TempDir(), "absent.json")))
	assert.Empty(t, st.SourceIdentities())
}

func TestApplySnapshotBytesChecksumNoOp(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "defaults.json"), `{"x": 1}`)

	reg := registry.NewRegistry(schema.PhaseBuild, nil)
	registerLiteral(t, reg, filepath.Join(root, "defaults.json"))
	snapPath := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, Commit(reg, buildContext(t, root, nil), passthroughTool{}, passthroughTool{}, snapPath))

	data, err := os.ReadFile(snapPath)
	require.NoError(t, err)

	st := store.New(schema.PhaseRun)
	require.NoError(t, ApplySnapshotBytes(st, data))
	require.NoError(t, ApplySnapshotBytes(st, data))

	v, err := st.Get("x")
	require.NoError(t, err)
	assert.Equal(t, float64(1), v)
	assert.Len(t, st.SourceIdentities(), 1)
}

func TestApplySnapshotBytesRejectsBadInput(t *testing.T) {
	st := store.New(schema.PhaseRun)

	err := ApplySnapshotBytes(st, []byte(`not json`))
	require.Error(t, err)
	assert.True(t, errUtils.Is(err, errUtils.ErrLoad))

	err = ApplySnapshotBytes(st, []byte(`{"version": 99, "records": []}`))
	require.Error(t, err)
	assert.True(t, errUtils.Is(err, errUtils.ErrLoad))
}

func TestSnapshotSurvivesRunPhaseActivity(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "defaults.json"), `{"from_build": true}`)

	reg := registry.NewRegistry(schema.PhaseBuild, nil)
	registerLiteral(t, reg, filepath.Join(root, "defaults.json"))
	snapPath := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, Commit(reg, buildContext(t, root, nil), passthroughTool{}, passthroughTool{}, snapPath))

	st := store.New(schema.PhaseRun)
	require.NoError(t, LoadSnapshot(st, snapPath))

	// Run-phase refreshes replace only run classes; the bridged build
	// content stays resolvable.
	st.ReplaceClasses(map[schema.Class][]*source.Source{
		schema.ClassRunJSON:       nil,
		schema.ClassRunStructured: nil,
		schema.ClassRunSecret:     nil,
		schema.ClassRunEnv:        nil,
	})
	v, err := st.Get("from_build")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}
