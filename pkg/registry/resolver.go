package registry

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tidwall/jsonc"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/perf"
	"github.com/WaywardWizard/cuenim/pkg/schema"
	"github.com/WaywardWizard/cuenim/pkg/selector"
	"github.com/WaywardWizard/cuenim/pkg/source"
	"github.com/WaywardWizard/cuenim/pkg/store"
	"github.com/WaywardWizard/cuenim/pkg/toolchain"
)

// Resolver couples one phase's registry, store, and execution context with
// the external collaborators, and owns the staleness-driven refresh cycle.
// All operations are synchronous; the mutex serializes the
// check-staleness → refresh → read sequence.
type Resolver struct {
	mu sync.Mutex

	registry   *Registry
	store      *store.Store
	ctx        *selector.Context
	translator toolchain.Translator
	decryptor  toolchain.Decryptor
}

// NewResolver builds a resolver for the context's phase. Registration
// changes on the returned resolver's registry mark the store stale.
func NewResolver(ctx *selector.Context, st *store.Store, tr toolchain.Translator, de toolchain.Decryptor) *Resolver {
	r := &Resolver{
		store:      st,
		ctx:        ctx,
		translator: tr,
		decryptor:  de,
	}
	r.registry = NewRegistry(ctx.Phase, st.MarkStale)
	return r
}

// Registry exposes the resolver's registry for registrations.
func (r *Resolver) Registry() *Registry { return r.registry }

// Store exposes the underlying store.
func (r *Resolver) Store() *store.Store { return r.store }

// Context exposes the phase context the resolver enumerates in.
func (r *Resolver) Context() *selector.Context { return r.ctx }

// Translator exposes the structured-document collaborator.
func (r *Resolver) Translator() toolchain.Translator { return r.translator }

// Decryptor exposes the secret-decryption collaborator.
func (r *Resolver) Decryptor() toolchain.Decryptor { return r.decryptor }

// Refresh re-enumerates every registered selector and environment prefix
// and replaces the current phase's buckets. On any failure the store keeps
// its pre-refresh content and stays stale, so the next read retries.
func (r *Resolver) Refresh() error {
	defer perf.Track(nil, "registry.Refresh")()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked()
}

func (r *Resolver) refreshLocked() error {
	loaded, err := LoadAll(r.registry, r.ctx, r.translator, r.decryptor)
	if err != nil {
		return err
	}
	r.store.ReplaceClasses(loaded)

	count := 0
	for _, sources := range loaded {
		count += len(sources)
	}
	log.Debug("store refreshed", "phase", r.ctx.Phase, "sources", count)
	return nil
}

// RefreshIfStale refreshes only when a registration change has happened
// since the last refresh. A read on a fresh store performs no I/O.
func (r *Resolver) RefreshIfStale() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.store.Stale() {
		return nil
	}
	return r.refreshLocked()
}

// Get refreshes if stale, then resolves the key against the store.
func (r *Resolver) Get(key string) (any, error) {
	if err := r.RefreshIfStale(); err != nil {
		return nil, err
	}
	return r.store.Get(key)
}

// Contains refreshes if stale, then checks key presence.
func (r *Resolver) Contains(key string) (bool, error) {
	if err := r.RefreshIfStale(); err != nil {
		return false, err
	}
	return r.store.Contains(key), nil
}

// matchRef ties an enumerated match to the selector that produced it, so
// per-selector flags govern its load policy. src is set when the fallback
// policy already produced the source during enumeration.
type matchRef struct {
	match selector.Match
	sel   *selector.Selector
	src   *source.Source
}

// LoadAll runs the full load pipeline for a registry against a context:
// enumerate every selector, apply the same-basename exclusion, load each
// match through the collaborators (with the structured fallback policy),
// and scan every environment prefix. The result maps each of the phase's
// four classes to its sources, lowest precedence first.
//
// LoadAll performs no store mutation; callers apply the result atomically.
func LoadAll(reg *Registry, ctx *selector.Context, tr toolchain.Translator, de toolchain.Decryptor) (map[schema.Class][]*source.Source, error) {
	defer perf.Track(nil, "registry.LoadAll")()

	byKind := map[schema.OriginKind][]matchRef{}
	seen := map[string]bool{}

	for _, sel := range reg.Selectors() {
		matches, err := selector.Enumerate(sel, ctx, false)
		if err != nil {
			return nil, err
		}

		if len(matches) == 0 {
			ref, err := loadMissingLiteral(sel, ctx)
			if err != nil {
				return nil, err
			}
			if ref != nil {
				if !seen[ref.match.Path] {
					seen[ref.match.Path] = true
					byKind[schema.OriginStructured] = append(byKind[schema.OriginStructured], *ref)
				}
				continue
			}
			if sel.Required {
				return nil, errUtils.Wrapf(errUtils.ErrSelectorConfig,
					"required selector %s matched no files", sel)
			}
			continue
		}

		for _, m := range matches {
			kind, ok := toolchain.KindForPath(m.Path)
			if !ok {
				log.Debug("skipping file outside the extension contract", "path", m.Path)
				continue
			}
			if seen[m.Path] {
				continue
			}
			seen[m.Path] = true
			byKind[kind] = append(byKind[kind], matchRef{match: m, sel: sel})
		}
	}

	// Matches from different selectors interleave; restore the global
	// precedence order within each kind.
	for kind := range byKind {
		refs := byKind[kind]
		ms := make([]selector.Match, len(refs))
		for i, ref := range refs {
			ms[i] = ref.match
		}
		selector.SortMatches(ms)
		index := map[string]matchRef{}
		for _, ref := range refs {
			index[ref.match.Path] = ref
		}
		for i, m := range ms {
			refs[i] = index[m.Path]
		}
		byKind[kind] = refs
	}

	byKind[schema.OriginJSON] = excludeShadowedJSON(
		byKind[schema.OriginJSON], byKind[schema.OriginStructured])

	loaded := map[schema.Class][]*source.Source{}
	for _, class := range schema.PhaseClasses(ctx.Phase) {
		loaded[class] = nil
	}

	for kind, refs := range byKind {
		class := schema.ClassFor(ctx.Phase, kind)
		for _, ref := range refs {
			src, err := loadMatch(kind, ref, tr, de)
			if err != nil {
				return nil, err
			}
			loaded[class] = append(loaded[class], src)
		}
	}

	envClass := schema.ClassFor(ctx.Phase, schema.OriginEnvironment)
	for _, p := range reg.EnvPrefixes() {
		src, err := loadEnvPrefix(p, ctx)
		if err != nil {
			return nil, err
		}
		loaded[envClass] = append(loaded[envClass], src)
	}

	return loaded, nil
}

// loadMissingLiteral applies the fallback policy to a literal structured
// selector whose primary artifact does not exist. Returns a preloaded
// matchRef when the plain-JSON sibling could stand in, nil when the
// selector does not qualify for fallback or the sibling is unavailable.
func loadMissingLiteral(sel *selector.Selector, ctx *selector.Context) (*matchRef, error) {
	if !sel.IsLiteral() || !sel.UseFallback {
		return nil, nil
	}
	if kind, ok := toolchain.KindForPath(sel.Path()); !ok || kind != schema.OriginStructured {
		return nil, nil
	}

	path, err := ctx.Interpolate(sel.Path())
	if err != nil {
		return nil, err
	}
	src, err := loadFallbackSibling(path)
	if err != nil {
		if sel.Required {
			return nil, err
		}
		log.Debug("fallback sibling unavailable", "path", path, "error", err)
		return nil, nil
	}
	return &matchRef{match: selector.Match{Path: src.Path()}, sel: sel, src: src}, nil
}

// loadMatch produces a source for one enumerated match.
func loadMatch(kind schema.OriginKind, ref matchRef, tr toolchain.Translator, de toolchain.Decryptor) (*source.Source, error) {
	defer perf.Track(nil, "registry.loadMatch")()

	path := ref.match.Path
	if ref.src != nil {
		return ref.src, nil
	}

	switch kind {
	case schema.OriginJSON:
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, errUtils.Mark(errUtils.Wrapf(err, "reading %s", path), errUtils.ErrLoad)
		}
		return source.FromFile(schema.OriginJSON, path, text)

	case schema.OriginStructured:
		text, err := tr.Translate(context.Background(), path)
		if err == nil {
			return source.FromFile(schema.OriginStructured, path, text)
		}
		if !ref.sel.UseFallback {
			return nil, err
		}
		log.Debug("structured load failed, trying plain-JSON sibling",
			"path", path, "error", err)
		src, ferr := loadFallbackSibling(path)
		if ferr != nil {
			// One retry only; surface the original failure.
			return nil, errUtils.WithDetail(err, "fallback also failed: "+ferr.Error())
		}
		return src, nil

	case schema.OriginSecret:
		text, err := de.Decrypt(context.Background(), path)
		if err != nil {
			return nil, err
		}
		return source.FromFile(schema.OriginSecret, path, text)

	default:
		return nil, errUtils.Newf("unexpected kind %s for %s", kind, path)
	}
}

// loadFallbackSibling reads the plain-JSON sibling of a structured path
// (same basename, .json extension). The sibling stands in for the
// structured source, so it keeps the structured origin kind and class.
func loadFallbackSibling(structuredPath string) (*source.Source, error) {
	sibling := strings.TrimSuffix(structuredPath, toolchain.StructuredExtension) + toolchain.JSONExtension
	text, err := os.ReadFile(sibling)
	if err != nil {
		return nil, errUtils.Mark(errUtils.Wrapf(err, "reading %s", sibling), errUtils.ErrLoad)
	}
	return source.FromFile(schema.OriginStructured, sibling, jsonc.ToJSON(text))
}

// loadEnvPrefix scans the context environment (optionally extended with a
// dotenv file ranked below the process variables) for one prefix.
func loadEnvPrefix(p EnvPrefix, ctx *selector.Context) (*source.Source, error) {
	environ := ctx.EnvironSlice()
	if p.DotenvFile != "" {
		extra, err := source.EnvironFromDotenv(p.DotenvFile)
		if err != nil {
			return nil, err
		}
		// Dotenv entries first so the process environment wins.
		environ = append(extra, environ...)
	}
	return source.FromEnvironment(p.Prefix, p.CaseSensitive, environ)
}

// excludeShadowedJSON drops plain-JSON matches whose path, extension
// substituted, collides with a structured match. The structured file is
// the single source of truth; the sibling's keys never reach a bucket and
// cannot resurface during merge ("clobber, not shadow").
func excludeShadowedJSON(jsonRefs, structuredRefs []matchRef) []matchRef {
	if len(jsonRefs) == 0 || len(structuredRefs) == 0 {
		return jsonRefs
	}
	bases := make(map[string]struct{}, len(structuredRefs))
	for _, ref := range structuredRefs {
		bases[stripExtension(ref.match.Path)] = struct{}{}
	}
	kept := jsonRefs[:0]
	for _, ref := range jsonRefs {
		if _, shadowed := bases[stripExtension(ref.match.Path)]; shadowed {
			log.Debug("plain-JSON source shadowed by structured sibling",
				"path", ref.match.Path)
			continue
		}
		kept = append(kept, ref)
	}
	return kept
}

func stripExtension(path string) string {
	if i := strings.LastIndex(path, "."); i > 0 {
		return path[:i]
	}
	return path
}
