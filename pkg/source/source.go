// Package source defines the immutable configuration source: a tagged union
// over structured files, secret files, plain-JSON files, and environment
// blocks, each carrying raw JSON text and its parsed value.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/jsonc"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/perf"
	"github.com/WaywardWizard/cuenim/pkg/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Source is one loaded configuration document. Sources are immutable once
// created; a reload produces a replacement, never a mutation.
type Source struct {
	kind schema.OriginKind

	// path identifies file-backed sources.
	path string

	// prefix and caseSensitive identify environment-backed sources.
	prefix        string
	caseSensitive bool

	rawText string
	value   any
}

// FromFile builds a source from the JSON text produced for a file-backed
// origin. For OriginJSON the text may carry comments and trailing commas
// (it is normalized with jsonc before decoding); raw text is kept verbatim
// either way so identity reflects what was actually on disk.
func FromFile(kind schema.OriginKind, path string, text []byte) (*Source, error) {
	defer perf.Track(nil, "source.FromFile")()

	if kind == schema.OriginEnvironment {
		return nil, errUtils.Newf("FromFile called with environment kind for %s", path)
	}

	decodable := text
	if kind == schema.OriginJSON {
		decodable = jsonc.ToJSON(text)
	}

	var value any
	if err := json.Unmarshal(decodable, &value); err != nil {
		return nil, errUtils.Wrapf(errUtils.ErrLoad, "%s: invalid JSON: %v", path, err)
	}

	return &Source{
		kind:    kind,
		path:    path,
		rawText: string(text),
		value:   value,
	}, nil
}

// Kind returns the origin kind of the source.
func (s *Source) Kind() schema.OriginKind { return s.kind }

// Path returns the file path for file-backed sources, empty otherwise.
func (s *Source) Path() string { return s.path }

// Prefix returns the registered prefix for environment sources.
func (s *Source) Prefix() string { return s.prefix }

// CaseSensitive reports the prefix-matching rule of environment sources.
func (s *Source) CaseSensitive() bool { return s.caseSensitive }

// RawText returns the raw JSON text the source was loaded from.
func (s *Source) RawText() string { return s.rawText }

// Value returns the parsed JSON value. Callers must not mutate it.
func (s *Source) Value() any { return s.value }

// Identity returns a stable hash over the source's discriminant fields.
// Raw text is deliberately excluded: a reloaded source with changed content
// keeps the same identity and replaces the old entry in its bucket.
func (s *Source) Identity() string {
	h := sha256.New()
	switch s.kind {
	case schema.OriginEnvironment:
		fmt.Fprintf(h, "env|%s|%t", s.prefix, s.caseSensitive)
	default:
		fmt.Fprintf(h, "%s|%s", s.kind, s.path)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Name returns a human-readable identity for diagnostics.
func (s *Source) Name() string {
	if s.kind == schema.OriginEnvironment {
		return fmt.Sprintf("env:%s", s.prefix)
	}
	return fmt.Sprintf("%s:%s", s.kind, s.path)
}

// Equal reports whether two sources have the same identity and the same
// raw text. Used for deduplication and for detecting "no effective change"
// on reload.
func (s *Source) Equal(other *Source) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Identity() == other.Identity() && s.rawText == other.rawText
}
