package source

import (
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/perf"
	"github.com/WaywardWizard/cuenim/pkg/scalar"
	"github.com/WaywardWizard/cuenim/pkg/schema"
)

// FromEnvironment builds an environment-block source by scanning environ
// (entries in "KEY=value" form, later entries overriding earlier ones for
// the same key).
//
// Variables whose name starts with prefix contribute a nested value: the
// remainder of the name is split on underscores into a key path and the
// value goes through the scalar grammar. A variable named exactly like the
// bare prefix is special: its value is parsed as a whole JSON object and
// merged into the top level of the block.
func FromEnvironment(prefix string, caseSensitive bool, environ []string) (*Source, error) {
	defer perf.Track(nil, "source.FromEnvironment")()

	doc := map[string]any{}

	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		remainder, matched := matchPrefix(name, prefix, caseSensitive)
		if !matched {
			continue
		}

		if remainder == "" {
			// Bare prefix: the value is a whole object merged at the top.
			parsed := scalar.Parse(value)
			obj, ok := parsed.(map[string]any)
			if !ok {
				log.Debug("bare-prefix variable is not a JSON object, skipping",
					"variable", name)
				continue
			}
			if err := mergo.Merge(&doc, obj,
				mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
				return nil, errUtils.Wrapf(errUtils.ErrLoad,
					"merging bare-prefix variable %s: %v", name, err)
			}
			continue
		}

		path := splitKeyPath(remainder)
		if len(path) == 0 {
			continue
		}
		setValueAtPath(doc, path, scalar.Parse(value))
	}

	rawText, err := json.MarshalToString(doc)
	if err != nil {
		return nil, errUtils.Wrapf(errUtils.ErrLoad, "encoding environment block %s: %v", prefix, err)
	}

	return &Source{
		kind:          schema.OriginEnvironment,
		prefix:        prefix,
		caseSensitive: caseSensitive,
		rawText:       rawText,
		value:         doc,
	}, nil
}

// matchPrefix reports whether name falls under prefix and returns the
// remainder of the name with any leading underscore delimiter removed.
func matchPrefix(name, prefix string, caseSensitive bool) (string, bool) {
	if len(name) < len(prefix) {
		return "", false
	}
	head := name[:len(prefix)]
	if caseSensitive {
		if head != prefix {
			return "", false
		}
	} else if !strings.EqualFold(head, prefix) {
		return "", false
	}
	return strings.TrimLeft(name[len(prefix):], "_"), true
}

// splitKeyPath splits the post-prefix remainder on underscores, dropping
// empty segments produced by doubled delimiters.
func splitKeyPath(remainder string) []string {
	parts := strings.Split(remainder, "_")
	path := parts[:0]
	for _, p := range parts {
		if p != "" {
			path = append(path, p)
		}
	}
	return path
}

// setValueAtPath writes value into doc at the nested key path, creating
// intermediate objects and replacing any non-object it runs into.
func setValueAtPath(doc map[string]any, path []string, value any) {
	current := doc
	for _, key := range path[:len(path)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}

// EnvironFromDotenv reads a dotenv file and returns its entries in
// "KEY=value" form, sorted by key for determinism. Entries are meant to be
// placed before os.Environ() so process variables take precedence.
func EnvironFromDotenv(path string) ([]string, error) {
	defer perf.Track(nil, "source.EnvironFromDotenv")()

	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, errUtils.Wrapf(errUtils.ErrLoad, "reading dotenv file %s: %v", path, err)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	environ := make([]string, 0, len(keys))
	for _, k := range keys {
		environ = append(environ, k+"="+vars[k])
	}
	return environ, nil
}
