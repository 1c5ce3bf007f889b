package selector

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/perf"
)

// Match is one existing path produced by enumeration, with the fields the
// precedence ranking is computed from.
type Match struct {
	Path    string
	Depth   int
	ModTime time.Time
}

// Enumerate expands the selector's interpolation tokens against ctx and
// returns the currently existing matches. Each call re-scans the
// filesystem; results are not cached.
//
// Matches come back lowest precedence first: depth ascending (shallower is
// lower), modification time ascending (older is lower), and the
// lexicographically-later full path winning ties. With reverse set the
// highest-precedence match comes first, which is the order "most specific
// wins" lookups consume.
func Enumerate(sel *Selector, ctx *Context, reverse bool) ([]Match, error) {
	defer perf.Track(nil, "selector.Enumerate")()

	var (
		matches []Match
		err     error
	)
	if sel.IsLiteral() {
		matches, err = enumerateLiteral(sel, ctx)
	} else {
		matches, err = enumeratePattern(sel, ctx)
	}
	if err != nil {
		return nil, err
	}

	SortMatches(matches)
	if reverse {
		for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
			matches[i], matches[j] = matches[j], matches[i]
		}
	}
	return matches, nil
}

// SortMatches orders matches lowest precedence first. The refresh pipeline
// re-sorts after it has merged the match sets of several selectors.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return lessPrecedent(matches[i], matches[j])
	})
}

// lessPrecedent orders a before b when a has lower precedence.
func lessPrecedent(a, b Match) bool {
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	if !a.ModTime.Equal(b.ModTime) {
		return a.ModTime.Before(b.ModTime)
	}
	// Final deterministic tiebreak: the lexicographically-later path wins.
	return a.Path < b.Path
}

func enumerateLiteral(sel *Selector, ctx *Context) ([]Match, error) {
	path, err := expandPath(sel.Path(), ctx)
	if err != nil {
		return nil, err
	}
	info, err := osFS.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errUtils.Mark(errUtils.Wrapf(err, "stat %s", path), errUtils.ErrLoad)
	}
	if info.IsDir() {
		return nil, errUtils.Wrapf(errUtils.ErrSelectorConfig, "%s is a directory", path)
	}
	return []Match{{
		Path:    path,
		Depth:   pathDepth(filepath.Dir(path)),
		ModTime: info.ModTime(),
	}}, nil
}

func enumeratePattern(sel *Selector, ctx *Context) ([]Match, error) {
	root, err := expandPath(sel.Root(), ctx)
	if err != nil {
		return nil, err
	}
	pattern, err := ctx.Interpolate(sel.Pattern())
	if err != nil {
		return nil, err
	}

	matchFn, err := compilePattern(pattern, sel.Syntax())
	if err != nil {
		return nil, err
	}

	if _, err := osFS.Stat(root); err != nil {
		if os.IsNotExist(err) {
			log.Debug("search root does not exist", "root", root)
			return nil, nil
		}
		return nil, errUtils.Mark(errUtils.Wrapf(err, "stat %s", root), errUtils.ErrLoad)
	}

	var matches []Match
	walkErr := osFS.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Debug("skipping unreadable path", "path", path, "error", err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		// Symlinked files are resolved to their real path before matching
		// when link following is enabled. Symlinked directories are never
		// descended into (Walk lstats, so they arrive here as files).
		if info.Mode()&os.ModeSymlink != 0 {
			if !ctx.FollowLinks {
				return nil
			}
			resolved, rerr := osFS.EvalSymlinks(path)
			if rerr != nil {
				log.Debug("skipping dangling symlink", "path", path, "error", rerr)
				return nil
			}
			rinfo, serr := osFS.Stat(resolved)
			if serr != nil || rinfo.IsDir() {
				return nil
			}
			path, info = resolved, rinfo
		}

		rel, rerr := filepath.Rel(root, path)
		if rerr != nil || strings.HasPrefix(rel, "..") {
			// Resolved outside the root; match on the full path.
			rel = path
		}
		if !matchFn(filepath.ToSlash(rel)) {
			return nil
		}

		matches = append(matches, Match{
			Path:    path,
			Depth:   pathDepth(filepath.Dir(rel)),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, errUtils.Mark(errUtils.Wrapf(walkErr, "walking %s", root), errUtils.ErrLoad)
	}
	return matches, nil
}

func compilePattern(pattern string, syntax Syntax) (func(string) bool, error) {
	switch syntax {
	case SyntaxGlob:
		if !doublestar.ValidatePattern(pattern) {
			return nil, errUtils.Wrapf(errUtils.ErrSelectorConfig, "invalid glob pattern %q", pattern)
		}
		return func(rel string) bool {
			ok, _ := doublestar.Match(pattern, rel)
			return ok
		}, nil
	default:
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, errUtils.Wrapf(errUtils.ErrSelectorConfig, "invalid regex pattern %q: %v", pattern, err)
		}
		return re.MatchString, nil
	}
}

// expandPath interpolates tokens and expands a leading ~.
func expandPath(path string, ctx *Context) (string, error) {
	expanded, err := ctx.Interpolate(path)
	if err != nil {
		return "", err
	}
	expanded, err = homedir.Expand(expanded)
	if err != nil {
		return "", errUtils.Wrapf(err, "expanding %s", path)
	}
	return filepath.Clean(expanded), nil
}

// pathDepth counts the directory components of dir. The root itself and
// "." count as zero.
func pathDepth(dir string) int {
	dir = filepath.ToSlash(filepath.Clean(dir))
	if dir == "." || dir == "/" || dir == "" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}
