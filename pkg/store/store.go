// Package store implements the precedence resolver: eight ordered
// precedence-class buckets, staleness tracking, and key lookup with the
// shadow/clobber merge semantics.
package store

import (
	"sync"

	"github.com/WaywardWizard/cuenim/pkg/perf"
	"github.com/WaywardWizard/cuenim/pkg/schema"
	"github.com/WaywardWizard/cuenim/pkg/source"
)

// bucket is an insertion-ordered collection of sources keyed by identity,
// held in ascending precedence order.
type bucket struct {
	order []string
	items map[string]*source.Source
}

func newBucket() bucket {
	return bucket{items: map[string]*source.Source{}}
}

func (b *bucket) add(s *source.Source) {
	id := s.Identity()
	if _, exists := b.items[id]; !exists {
		b.order = append(b.order, id)
	}
	b.items[id] = s
}

// ascending returns sources lowest precedence first.
func (b *bucket) ascending() []*source.Source {
	out := make([]*source.Source, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.items[id])
	}
	return out
}

// Store aggregates the eight precedence-class buckets for one phase's view
// of the configuration. A store is a per-phase singleton; the mutex
// serializes the check-staleness → refresh → read sequence when the host
// is multi-threaded.
type Store struct {
	mu sync.Mutex

	phase   schema.Phase
	buckets [schema.ClassCount]bucket

	stale bool

	// snapshotSum is the checksum of the last-applied cross-phase
	// snapshot; re-applying the same data is a no-op.
	snapshotSum string
}

// New creates an empty, stale store for the given phase.
func New(phase schema.Phase) *Store {
	s := &Store{phase: phase, stale: true}
	for i := range s.buckets {
		s.buckets[i] = newBucket()
	}
	return s
}

// Phase returns the phase the store resolves for.
func (s *Store) Phase() schema.Phase { return s.phase }

// Stale reports whether the buckets may not reflect current registrations.
func (s *Store) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// MarkStale flags the store for re-resolution on the next read.
func (s *Store) MarkStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = true
}

// ReplaceClasses installs freshly loaded sources for the given classes,
// replacing those buckets wholesale, and clears the staleness flag. The
// caller supplies each class's sources lowest precedence first. Classes
// not present in loaded are left untouched, which is what keeps build-*
// buckets alive across run-phase refreshes.
func (s *Store) ReplaceClasses(loaded map[schema.Class][]*source.Source) {
	defer perf.Track(nil, "store.ReplaceClasses")()

	s.mu.Lock()
	defer s.mu.Unlock()
	for class, sources := range loaded {
		b := newBucket()
		for _, src := range sources {
			b.add(src)
		}
		s.buckets[class] = b
	}
	s.stale = false
}

// ApplySnapshot installs reconstituted build-phase sources into the
// build-* buckets. checksum identifies the snapshot bytes; applying the
// same checksum twice is a no-op. Returns whether the snapshot was
// applied.
func (s *Store) ApplySnapshot(loaded map[schema.Class][]*source.Source, checksum string) bool {
	defer perf.Track(nil, "store.ApplySnapshot")()

	s.mu.Lock()
	defer s.mu.Unlock()
	if checksum != "" && checksum == s.snapshotSum {
		return false
	}
	for _, class := range schema.PhaseClasses(schema.PhaseBuild) {
		b := newBucket()
		for _, src := range loaded[class] {
			b.add(src)
		}
		s.buckets[class] = b
	}
	s.snapshotSum = checksum
	return true
}

// ClearPhase empties the given phase's four buckets and marks the store
// stale. Clearing the run phase never touches build-phase buckets.
func (s *Store) ClearPhase(phase schema.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, class := range schema.PhaseClasses(phase) {
		s.buckets[class] = newBucket()
	}
	s.stale = true
}

// SourceIdentities lists the human-readable names of every loaded source,
// lowest precedence class first. Used for diagnostics on lookup failures.
func (s *Store) SourceIdentities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceIdentitiesLocked()
}

func (s *Store) sourceIdentitiesLocked() []string {
	var names []string
	for class := schema.Class(0); class < schema.ClassCount; class++ {
		for _, src := range s.buckets[class].ascending() {
			names = append(names, class.String()+"/"+src.Name())
		}
	}
	return names
}
