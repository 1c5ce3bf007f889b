// Package perf provides lightweight call instrumentation.
//
// Usage:
//
//	defer perf.Track(nil, "store.Get")()
//
// Tracking is off by default and costs a single atomic load per call site
// when disabled. Enable it to accumulate per-function call counts and total
// durations, retrievable with Snapshot.
package perf

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var (
	enabled atomic.Bool

	mu    sync.Mutex
	stats = map[string]*Stat{}
)

// Stat holds accumulated metrics for one tracked function.
type Stat struct {
	Name  string
	Count int64
	Total time.Duration
	Max   time.Duration
}

// SetEnabled turns tracking on or off globally.
func SetEnabled(on bool) {
	enabled.Store(on)
}

// Enabled reports whether tracking is active.
func Enabled() bool {
	return enabled.Load()
}

// Track records one invocation of name. The first argument is reserved for a
// future per-call configuration hook and may be nil.
func Track(_ any, name string) func() {
	if !enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		mu.Lock()
		defer mu.Unlock()
		s, ok := stats[name]
		if !ok {
			s = &Stat{Name: name}
			stats[name] = s
		}
		s.Count++
		s.Total += elapsed
		if elapsed > s.Max {
			s.Max = elapsed
		}
	}
}

// Snapshot returns a copy of all accumulated stats, sorted by total time
// descending.
func Snapshot() []Stat {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Stat, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out
}

// Reset clears all accumulated stats.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	stats = map[string]*Stat{}
}
