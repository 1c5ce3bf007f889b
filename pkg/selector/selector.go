// Package selector implements registered file selectors: a literal path or
// a (search-root, pattern) pair, expanded with interpolation tokens and
// enumerated in precedence order over the filesystem.
package selector

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	errUtils "github.com/WaywardWizard/cuenim/errors"
)

// Syntax selects the pattern grammar of a pattern selector.
type Syntax int

const (
	// SyntaxRegex matches relative paths with an anchored regular
	// expression (RE2, a superset of POSIX extended syntax for the
	// constructs used here).
	SyntaxRegex Syntax = iota
	// SyntaxGlob matches relative paths with doublestar glob patterns.
	SyntaxGlob
)

func (s Syntax) String() string {
	if s == SyntaxGlob {
		return "glob"
	}
	return "regex"
}

// Selector describes candidate configuration files. Its identity (Key) is
// derived from the discriminant fields only; the flags can be updated in
// place by re-registration.
type Selector struct {
	// literal path, exclusive with root/pattern.
	path string

	root    string
	pattern string
	syntax  Syntax

	// UseFallback retries a sibling plain-JSON file when a structured
	// load fails.
	UseFallback bool
	// Required makes a refresh fail when the selector yields no matches.
	Required bool
}

// Option mutates selector flags at construction time.
type Option func(*Selector)

// WithFallback enables the structured-to-plain-JSON fallback.
func WithFallback() Option {
	return func(s *Selector) { s.UseFallback = true }
}

// WithRequired makes the selector mandatory at refresh time.
func WithRequired() Option {
	return func(s *Selector) { s.Required = true }
}

// WithGlobSyntax switches a pattern selector to glob matching.
func WithGlobSyntax() Option {
	return func(s *Selector) { s.syntax = SyntaxGlob }
}

// NewLiteral creates a literal-path selector.
func NewLiteral(path string, opts ...Option) (*Selector, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errUtils.Wrap(errUtils.ErrSelectorConfig, "empty literal path")
	}
	s := &Selector{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewPattern creates a pattern selector rooted at root. Registration
// validates pattern syntax only; interpolation tokens defer validation to
// enumeration time since the expanded text is not yet known.
func NewPattern(root, pattern string, opts ...Option) (*Selector, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errUtils.Wrap(errUtils.ErrSelectorConfig, "empty pattern")
	}
	if strings.TrimSpace(root) == "" {
		return nil, errUtils.Wrap(errUtils.ErrSelectorConfig, "empty search root")
	}
	s := &Selector{root: root, pattern: pattern}
	for _, opt := range opts {
		opt(s)
	}
	if !strings.Contains(pattern, "{") {
		if err := validatePattern(pattern, s.syntax); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func validatePattern(pattern string, syntax Syntax) error {
	switch syntax {
	case SyntaxGlob:
		if !doublestar.ValidatePattern(pattern) {
			return errUtils.Wrapf(errUtils.ErrSelectorConfig, "invalid glob pattern %q", pattern)
		}
	default:
		if _, err := regexp.Compile(pattern); err != nil {
			return errUtils.Wrapf(errUtils.ErrSelectorConfig, "invalid regex pattern %q: %v", pattern, err)
		}
	}
	return nil
}

// IsLiteral reports whether the selector is a literal path.
func (s *Selector) IsLiteral() bool { return s.path != "" }

// Path returns the literal path; empty for pattern selectors.
func (s *Selector) Path() string { return s.path }

// Root returns the search root of a pattern selector.
func (s *Selector) Root() string { return s.root }

// Pattern returns the pattern text of a pattern selector.
func (s *Selector) Pattern() string { return s.pattern }

// Syntax returns the pattern grammar.
func (s *Selector) Syntax() Syntax { return s.syntax }

// Key returns the deduplication identity, derived from discriminant fields
// only so re-registering with different flags updates the existing entry.
func (s *Selector) Key() string {
	if s.IsLiteral() {
		return "literal|" + s.path
	}
	return "pattern|" + s.syntax.String() + "|" + s.root + "|" + s.pattern
}

func (s *Selector) String() string {
	if s.IsLiteral() {
		return s.path
	}
	return s.root + string('/') + s.pattern + " (" + s.syntax.String() + ")"
}
