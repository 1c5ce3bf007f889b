package scalar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScalars(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"empty string", "", ""},
		{"whitespace only", "   ", ""},
		{"null lowercase", "null", nil},
		{"null mixed case", "NuLL", nil},
		{"true", "true", true},
		{"true uppercase", "TRUE", true},
		{"false", "False", false},
		{"lone plus is a string", "+", "+"},
		{"lone minus is a string", "-", "-"},
		{"integer", "42", int64(42)},
		{"negative integer", "-7", int64(-7)},
		{"underscore separators", "1_000_000", int64(1000000)},
		{"float", "3.14", float64(3.14)},
		{"leading dot float", ".5", float64(0.5)},
		{"exponent parses as float", "1e3", float64(1000)},
		{"two dots fall through to string", "1.2.3", "1.2.3"},
		{"hex-looking stays string", "0x10", "0x10"},
		{"plain string", "hello", "hello"},
		{"trimmed string", "  hello  ", "hello"},
		{"version-ish string", "v1.2", "v1.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestParseSpecialFloats(t *testing.T) {
	assert.Equal(t, math.Inf(1), Parse("inf"))
	assert.Equal(t, math.Inf(1), Parse("+Inf"))
	assert.Equal(t, math.Inf(-1), Parse("-INF"))

	nan, ok := Parse("nan").(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(nan))

	negNan, ok := Parse("-NaN").(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(negNan))
}

func TestParseArrays(t *testing.T) {
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, Parse("[1,2,3]"))
	assert.Equal(t, []any{}, Parse("[]"))
	assert.Equal(t, []any{"a", "b"}, Parse("[a, b]"))
	assert.Equal(t, []any{true, nil, "x"}, Parse("[true, null, x]"))
}

func TestParseArrayNumericPromotion(t *testing.T) {
	// A mixed int/float array promotes every element to float.
	assert.Equal(t, []any{float64(1), float64(2.5)}, Parse("[1,2.5]"))

	// Non-numeric elements block promotion.
	assert.Equal(t, []any{int64(1), "x", float64(2.5)}, Parse("[1,x,2.5]"))
}

func TestParseObject(t *testing.T) {
	got := Parse(`{"a": 1, "b": "two"}`)
	want := map[string]any{"a": float64(1), "b": "two"}
	assert.Equal(t, want, got)
}

func TestParseMalformedObjectFallsBackToString(t *testing.T) {
	raw := `{"a": }`
	assert.Equal(t, raw, Parse(raw))
}

func TestParseIsTotal(t *testing.T) {
	// Inputs that nearly match earlier rules must still come back as
	// values, never panic.
	for _, raw := range []string{"_", "...", "1__", "e5", "[", "{", "+-", "--1"} {
		assert.NotPanics(t, func() { Parse(raw) }, raw)
	}
}

func TestParseIntegerOverflowBecomesFloat(t *testing.T) {
	got := Parse("92233720368547758080") // > MaxInt64
	_, isFloat := got.(float64)
	assert.True(t, isFloat, "overflowing integer should parse as float, got %T", got)
}
