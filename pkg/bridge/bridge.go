// Package bridge carries configuration resolved during the build phase
// across to the run phase. Commit snapshots every build-phase registration
// into a flat JSON artifact; at run-phase start the snapshot is applied
// into the build-* precedence classes before any run-phase registration
// takes effect.
package bridge

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	jsoniter "github.com/json-iterator/go"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/perf"
	"github.com/WaywardWizard/cuenim/pkg/registry"
	"github.com/WaywardWizard/cuenim/pkg/schema"
	"github.com/WaywardWizard/cuenim/pkg/selector"
	"github.com/WaywardWizard/cuenim/pkg/source"
	"github.com/WaywardWizard/cuenim/pkg/store"
	"github.com/WaywardWizard/cuenim/pkg/toolchain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// snapshotVersion guards the artifact format.
const snapshotVersion = 1

// Snapshot is the serialized cross-phase artifact.
type Snapshot struct {
	Version int             `json:"version"`
	Records []source.Record `json:"records"`
}

// DefaultSnapshotPath returns the XDG-located artifact path.
func DefaultSnapshotPath() string {
	return filepath.Join(xdg.CacheHome, "cuenim", "snapshot.json")
}

// Commit loads every selector and prefix registered in the build-phase
// registry as of this call, using build-phase interpolation, serializes
// the results, and writes the artifact to path atomically. A secret-kind
// source fails the whole commit; nothing is partially written.
//
// Committing the same registrations twice produces a byte-identical
// artifact, so repeated commits are effectively no-ops.
func Commit(reg *registry.Registry, buildCtx *selector.Context, tr toolchain.Translator, de toolchain.Decryptor, path string) error {
	defer perf.Track(nil, "bridge.Commit")()

	if buildCtx.Phase != schema.PhaseBuild {
		return errUtils.Newf("commit requires a build-phase context, got %s", buildCtx.Phase)
	}
	if path == "" {
		path = DefaultSnapshotPath()
	}

	loaded, err := registry.LoadAll(reg, buildCtx, tr, de)
	if err != nil {
		return err
	}

	snap := Snapshot{Version: snapshotVersion}
	for _, class := range schema.PhaseClasses(schema.PhaseBuild) {
		for _, src := range loaded[class] {
			record, err := src.MarshalRecord()
			if err != nil {
				return err
			}
			snap.Records = append(snap.Records, record)
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errUtils.Wrap(err, "encoding snapshot")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errUtils.Wrapf(err, "creating %s", filepath.Dir(path))
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errUtils.Wrapf(err, "locking %s", path)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Debug("unlocking snapshot", "path", path, "error", err)
		}
	}()

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return errUtils.Wrapf(err, "writing %s", path)
	}

	log.Debug("snapshot committed", "path", path, "records", len(snap.Records))
	return nil
}

// LoadSnapshot reads the artifact at path and applies it to the store's
// build-phase buckets. A missing artifact is not an error; the build
// classes simply stay empty.
func LoadSnapshot(st *store.Store, path string) error {
	defer perf.Track(nil, "bridge.LoadSnapshot")()

	if path == "" {
		path = DefaultSnapshotPath()
	}

	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return errUtils.Wrapf(err, "locking %s", path)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Debug("unlocking snapshot", "path", path, "error", err)
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("no snapshot artifact", "path", path)
			return nil
		}
		return errUtils.Mark(errUtils.Wrapf(err, "reading %s", path), errUtils.ErrLoad)
	}
	return ApplySnapshotBytes(st, data)
}

// ApplySnapshotBytes applies serialized snapshot data (for example a
// go:embed-ded artifact) to the store's build-phase buckets. Applying data
// with the same checksum as the last-applied snapshot is a no-op.
func ApplySnapshotBytes(st *store.Store, data []byte) error {
	defer perf.Track(nil, "bridge.ApplySnapshotBytes")()

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return errUtils.Mark(errUtils.Wrap(err, "decoding snapshot"), errUtils.ErrLoad)
	}
	if snap.Version != snapshotVersion {
		return errUtils.Wrapf(errUtils.ErrLoad, "unsupported snapshot version %d", snap.Version)
	}

	loaded := map[schema.Class][]*source.Source{}
	for _, record := range snap.Records {
		src, err := source.FromRecord(record)
		if err != nil {
			return err
		}
		class := schema.ClassFor(schema.PhaseBuild, src.Kind())
		loaded[class] = append(loaded[class], src)
	}

	if applied := st.ApplySnapshot(loaded, checksum); !applied {
		log.Debug("snapshot unchanged, skipping apply", "checksum", checksum)
	}
	return nil
}
