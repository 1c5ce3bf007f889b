package store

import (
	"strings"

	"dario.cat/mergo"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/perf"
	"github.com/WaywardWizard/cuenim/pkg/schema"
)

// Get resolves a dotted key ("server.port") against the loaded sources.
//
// Classes are walked highest precedence first and the first source that
// contains the full key path decides the outcome. An object value triggers
// the shadow merge: every source defining an object at that path
// contributes, lowest precedence first, with colliding leaves overwritten
// by higher sources and arrays replaced wholesale. Scalars, arrays, and
// null clobber: the single highest-precedence hit is returned as-is.
func (s *Store) Get(key string) (any, error) {
	return s.GetPath(splitKey(key))
}

// GetPath is Get for a pre-segmented key path.
func (s *Store) GetPath(path []string) (any, error) {
	defer perf.Track(nil, "store.GetPath")()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(path) == 0 {
		return nil, errUtils.Wrap(errUtils.ErrKeyNotFound, "empty key")
	}

	top, found := s.firstHitLocked(path)
	if !found {
		err := errUtils.Wrapf(errUtils.ErrKeyNotFound, "key %q", strings.Join(path, "."))
		for _, name := range s.sourceIdentitiesLocked() {
			err = errUtils.WithDetail(err, "loaded source: "+name)
		}
		return nil, err
	}

	if _, isObject := top.(map[string]any); !isObject {
		return top, nil
	}
	return s.mergeObjectsLocked(path)
}

// Contains reports whether any source defines the key path. A path that is
// present with a JSON null value counts as present; only an absent path
// does not.
func (s *Store) Contains(key string) bool {
	defer perf.Track(nil, "store.Contains")()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, found := s.firstHitLocked(splitKey(key))
	return found
}

// firstHitLocked walks classes and sources highest precedence first and
// returns the value from the first source containing the full path.
func (s *Store) firstHitLocked(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	for class := schema.ClassCount - 1; class >= 0; class-- {
		sources := s.buckets[class].ascending()
		for i := len(sources) - 1; i >= 0; i-- {
			if v, found := lookupPath(sources[i].Value(), path); found {
				return v, true
			}
		}
	}
	return nil, false
}

// mergeObjectsLocked re-walks every source lowest precedence first and
// merges each object found at path into a fresh accumulator.
func (s *Store) mergeObjectsLocked(path []string) (map[string]any, error) {
	acc := map[string]any{}
	for class := schema.Class(0); class < schema.ClassCount; class++ {
		for _, src := range s.buckets[class].ascending() {
			v, found := lookupPath(src.Value(), path)
			if !found {
				continue
			}
			obj, isObject := v.(map[string]any)
			if !isObject {
				continue
			}
			// Merge a deep copy so the accumulator never aliases a
			// source's document. WithOverwriteWithEmptyValue lets null,
			// zero, and empty-array values from higher-precedence sources
			// clobber like any other value.
			if err := mergo.Merge(&acc, deepCopyMap(obj),
				mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
				return nil, errUtils.Wrapf(err, "merging %q from %s",
					strings.Join(path, "."), src.Name())
			}
		}
	}
	return acc, nil
}

// lookupPath descends into a parsed JSON value. It distinguishes a path
// present with a null value (nil, true) from an absent path (nil, false).
func lookupPath(v any, path []string) (any, bool) {
	current := v
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, present := obj[key]
		if !present {
			return nil, false
		}
		current = next
	}
	return current, true
}

// splitKey turns a dotted key into path segments.
func splitKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, ".")
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return deepCopyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
