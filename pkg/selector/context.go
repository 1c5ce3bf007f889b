package selector

import (
	"os"
	"regexp"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/perf"
	"github.com/WaywardWizard/cuenim/pkg/schema"
)

// ContextToken is the distinguished interpolation token that resolves to
// the context directory: the project root during the build phase and the
// working directory during the run phase.
const ContextToken = "CONTEXT"

var tokenPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Context carries the per-phase execution environment selectors are
// enumerated in. One Context exists per phase; the engine never relies on
// ambient globals to tell the phases apart.
type Context struct {
	Phase schema.Phase

	// ContextDir is what {CONTEXT} expands to.
	ContextDir string

	// FollowLinks resolves symlinked files to their real paths before
	// matching. Symlinked directories are never descended into.
	FollowLinks bool

	// LookupEnv resolves interpolation tokens; defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Environ supplies the variables environment sources scan; defaults
	// to os.Environ.
	Environ func() []string
}

// NewContext builds a phase context. For the run phase an empty contextDir
// defaults to the current working directory.
func NewContext(phase schema.Phase, contextDir string) (*Context, error) {
	if contextDir == "" {
		if phase == schema.PhaseBuild {
			return nil, errUtils.New("build-phase context requires an explicit project root")
		}
		wd, err := os.Getwd()
		if err != nil {
			return nil, errUtils.Wrap(err, "resolving working directory")
		}
		contextDir = wd
	}
	return &Context{
		Phase:       phase,
		ContextDir:  contextDir,
		FollowLinks: true,
		LookupEnv:   os.LookupEnv,
		Environ:     os.Environ,
	}, nil
}

func (c *Context) lookupEnv(name string) (string, bool) {
	if c.LookupEnv != nil {
		return c.LookupEnv(name)
	}
	return os.LookupEnv(name)
}

// EnvironSlice returns the context's environment block.
func (c *Context) EnvironSlice() []string {
	if c.Environ != nil {
		return c.Environ()
	}
	return os.Environ()
}

// Interpolate rewrites {NAME} tokens in s. {CONTEXT} expands to the
// context directory; any other token is looked up as an environment
// variable and fails with ErrInterpolation when unset or empty.
// Interpolation is strict: tokens are never left as literal text.
func (c *Context) Interpolate(s string) (string, error) {
	defer perf.Track(nil, "selector.Interpolate")()

	var tokenErr error
	out := tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1 : len(match)-1]
		if name == ContextToken {
			return c.ContextDir
		}
		value, ok := c.lookupEnv(name)
		if !ok || value == "" {
			if tokenErr == nil {
				tokenErr = errUtils.Wrapf(errUtils.ErrInterpolation,
					"token {%s} in %q", name, s)
			}
			return match
		}
		return value
	})
	if tokenErr != nil {
		return "", tokenErr
	}
	return out, nil
}
