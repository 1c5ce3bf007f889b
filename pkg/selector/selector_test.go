package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/WaywardWizard/cuenim/errors"
	"github.com/WaywardWizard/cuenim/pkg/schema"
)

func TestNewLiteralRejectsEmptyPath(t *testing.T) {
	_, err := NewLiteral("  ")
	require.Error(t, err)
	assert.True(t, errUtils.Is(err, errUtils.ErrSelectorConfig))
}

func TestNewPatternValidation(t *testing.T) {
	_, err := NewPattern("", "*.json")
	assert.True(t, errUtils.Is(err, errUtils.ErrSelectorConfig))

	_, err = NewPattern("/etc/app", "")
	assert.True(t, errUtils.Is(err, errUtils.ErrSelectorConfig))

	_, err = NewPattern("/etc/app", "(")
	assert.True(t, errUtils.Is(err, errUtils.ErrSelectorConfig))

	_, err = NewPattern("/etc/app", "a[", WithGlobSyntax())
	assert.True(t, errUtils.Is(err, errUtils.ErrSelectorConfig))
}

func TestNewPatternDefersTokenValidation(t *testing.T) {
	// "(" would be invalid regex, but the token makes the final text
	// unknowable until enumeration.
	sel, err := NewPattern("/etc/app", "{REGION}(")
	require.NoError(t, err)
	assert.False(t, sel.IsLiteral())
}

func TestSelectorKeyIgnoresFlags(t *testing.T) {
	plain, err := NewLiteral("/etc/app/base.cue")
	require.NoError(t, err)
	flagged, err := NewLiteral("/etc/app/base.cue", WithFallback(), WithRequired())
	require.NoError(t, err)

	assert.Equal(t, plain.Key(), flagged.Key())

	lit, err := NewLiteral("x")
	require.NoError(t, err)
	pat, err := NewPattern("x", "y")
	require.NoError(t, err)
	assert.NotEqual(t, lit.Key(), pat.Key())

	// Syntax is a discriminant: the same text under a different grammar is
	// a different selector.
	rePat, err := NewPattern("/r", "a.*")
	require.NoError(t, err)
	globPat, err := NewPattern("/r", "a.*", WithGlobSyntax())
	require.NoError(t, err)
	assert.NotEqual(t, rePat.Key(), globPat.Key())
}

func TestNewContextBuildRequiresRoot(t *testing.T) {
	_, err := NewContext(schema.PhaseBuild, "")
	assert.Error(t, err)

	ctx, err := NewContext(schema.PhaseBuild, "/src/app")
	require.NoError(t, err)
	assert.Equal(t, "/src/app", ctx.ContextDir)
}

func TestNewContextRunDefaultsToWorkingDirectory(t *testing.T) {
	ctx, err := NewContext(schema.PhaseRun, "")
	require.NoError(t, err)
	assert.NotEmpty(t, ctx.ContextDir)
}

func TestInterpolate(t *testing.T) {
	ctx := &Context{
		Phase:      schema.PhaseRun,
		ContextDir: "/work",
		LookupEnv: func(name string) (string, bool) {
			switch name {
			case "REGION":
				return "eu-west-1", true
			case "EMPTY":
				return "", true
			default:
				return "", false
			}
		},
	}

	out, err := ctx.Interpolate("{CONTEXT}/conf/{REGION}.cue")
	require.NoError(t, err)
	assert.Equal(t, "/work/conf/eu-west-1.cue", out)

	// No tokens passes through untouched.
	out, err = ctx.Interpolate("/etc/app/base.json")
	require.NoError(t, err)
	assert.Equal(t, "/etc/app/base.json", out)
}

func TestInterpolateStrictFailures(t *testing.T) {
	ctx := &Context{
		Phase:      schema.PhaseRun,
		ContextDir: "/work",
		LookupEnv: func(name string) (string, bool) {
			if name == "EMPTY" {
				return "", true
			}
			return "", false
		},
	}

	_, err := ctx.Interpolate("{UNSET}/app.json")
	require.Error(t, err)
	assert.True(t, errUtils.Is(err, errUtils.ErrInterpolation))

	// Set-but-empty is as fatal as unset.
	_, err = ctx.Interpolate("{EMPTY}/app.json")
	require.Error(t, err)
	assert.True(t, errUtils.Is(err, errUtils.ErrInterpolation))
}
