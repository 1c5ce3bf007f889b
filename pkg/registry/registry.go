// Package registry holds the per-phase registrations (file selectors and
// environment prefixes) and drives the staleness-driven refresh pipeline
// that loads them into a store.
package registry

import (
	"fmt"

	"github.com/WaywardWizard/cuenim/pkg/schema"
	"github.com/WaywardWizard/cuenim/pkg/selector"
)

// EnvPrefix is a registered environment-variable prefix. Identity for
// deduplication is the prefix plus the case rule; DotenvFile is a flag
// updated in place on re-registration.
type EnvPrefix struct {
	Prefix        string
	CaseSensitive bool

	// DotenvFile optionally supplies extra variables, ranked below the
	// process environment.
	DotenvFile string
}

// Key returns the deduplication identity of the prefix registration.
func (p EnvPrefix) Key() string {
	return fmt.Sprintf("%s|%t", p.Prefix, p.CaseSensitive)
}

// Registry is one phase's set of registrations. Registrations never expire
// on their own; they persist until deregistered or cleared. Registrations
// and clears notify the onChange hook, which marks the owning store stale;
// deregistrations do not, so removals only take effect on an explicit
// refresh.
type Registry struct {
	phase schema.Phase

	selOrder  []string
	selectors map[string]*selector.Selector

	prefixOrder []string
	prefixes    map[string]EnvPrefix

	onChange func()
}

// NewRegistry creates an empty registry for a phase. onChange fires on
// every registration change and may be nil.
func NewRegistry(phase schema.Phase, onChange func()) *Registry {
	return &Registry{
		phase:     phase,
		selectors: map[string]*selector.Selector{},
		prefixes:  map[string]EnvPrefix{},
		onChange:  onChange,
	}
}

// Phase returns the phase the registry belongs to.
func (r *Registry) Phase() schema.Phase { return r.phase }

func (r *Registry) changed() {
	if r.onChange != nil {
		r.onChange()
	}
}

// RegisterSelector adds sel, deduplicating by its discriminant identity.
// Re-registering an existing selector updates its flags in place instead
// of creating a duplicate entry.
func (r *Registry) RegisterSelector(sel *selector.Selector) {
	key := sel.Key()
	if existing, ok := r.selectors[key]; ok {
		existing.UseFallback = sel.UseFallback
		existing.Required = sel.Required
	} else {
		r.selOrder = append(r.selOrder, key)
		r.selectors[key] = sel
	}
	r.changed()
}

// RegisterEnvPrefix adds an environment-prefix registration. Within the
// environment bucket, later-registered prefixes take precedence.
func (r *Registry) RegisterEnvPrefix(p EnvPrefix) {
	key := p.Key()
	if _, ok := r.prefixes[key]; ok {
		r.prefixes[key] = p
	} else {
		r.prefixOrder = append(r.prefixOrder, key)
		r.prefixes[key] = p
	}
	r.changed()
}

// DeregisterSelector removes the selector with the same identity as sel.
//
// Deregistration deliberately does not mark the store stale: already
// loaded sources stay visible until the caller triggers a refresh to
// observe the removal.
func (r *Registry) DeregisterSelector(sel *selector.Selector) bool {
	return r.removeSelectorKey(sel.Key())
}

// DeregisterSelectorFunc removes every selector the predicate matches and
// returns how many were removed.
func (r *Registry) DeregisterSelectorFunc(pred func(*selector.Selector) bool) int {
	removed := 0
	for _, key := range append([]string(nil), r.selOrder...) {
		if pred(r.selectors[key]) && r.removeSelectorKey(key) {
			removed++
		}
	}
	return removed
}

func (r *Registry) removeSelectorKey(key string) bool {
	if _, ok := r.selectors[key]; !ok {
		return false
	}
	delete(r.selectors, key)
	for i, k := range r.selOrder {
		if k == key {
			r.selOrder = append(r.selOrder[:i], r.selOrder[i+1:]...)
			break
		}
	}
	return true
}

// DeregisterEnvPrefix removes a prefix registration. Like selector
// deregistration, it does not mark the store stale.
func (r *Registry) DeregisterEnvPrefix(prefix string, caseSensitive bool) bool {
	key := EnvPrefix{Prefix: prefix, CaseSensitive: caseSensitive}.Key()
	if _, ok := r.prefixes[key]; !ok {
		return false
	}
	delete(r.prefixes, key)
	for i, k := range r.prefixOrder {
		if k == key {
			r.prefixOrder = append(r.prefixOrder[:i], r.prefixOrder[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every registration.
func (r *Registry) Clear() {
	r.selOrder = nil
	r.selectors = map[string]*selector.Selector{}
	r.prefixOrder = nil
	r.prefixes = map[string]EnvPrefix{}
	r.changed()
}

// Selectors returns the registered selectors in registration order.
func (r *Registry) Selectors() []*selector.Selector {
	out := make([]*selector.Selector, 0, len(r.selOrder))
	for _, key := range r.selOrder {
		out = append(out, r.selectors[key])
	}
	return out
}

// EnvPrefixes returns the registered prefixes in registration order,
// lowest precedence first.
func (r *Registry) EnvPrefixes() []EnvPrefix {
	out := make([]EnvPrefix, 0, len(r.prefixOrder))
	for _, key := range r.prefixOrder {
		out = append(out, r.prefixes[key])
	}
	return out
}
