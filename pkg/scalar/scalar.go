// Package scalar converts raw environment-variable strings into typed JSON
// values using a fixed grammar.
//
// Parse is total: any input that matches no earlier rule comes back as a
// plain string. Integers parse to int64, floats to float64, objects to
// map[string]any, arrays to []any.
package scalar

import (
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/WaywardWizard/cuenim/pkg/perf"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Parse converts a raw string into a typed JSON value. It never fails; the
// fallback is the trimmed string itself.
//
// Array values are split on top-level commas without bracket awareness, so
// nested arrays or objects containing commas will mis-parse. This is a
// known limitation of the grammar.
func Parse(raw string) any {
	defer perf.Track(nil, "scalar.Parse")()

	s := strings.TrimSpace(raw)

	if s == "" {
		return ""
	}

	lower := strings.ToLower(s)
	switch lower {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}

	// A lone sign is a string, not a number prefix.
	if s == "+" || s == "-" {
		return s
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return parseArray(s[1 : len(s)-1])
	}

	if v, ok := parseSpecialFloat(lower); ok {
		return v
	}

	if v, ok := parseNumber(s); ok {
		return v
	}

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		var obj map[string]any
		if err := json.UnmarshalFromString(s, &obj); err == nil {
			return obj
		}
	}

	return s
}

// parseArray splits the bracket interior on commas and parses each element.
// If every element is numeric and at least one is a float, integer elements
// are promoted to floats so the array stays homogeneous.
func parseArray(inner string) []any {
	if strings.TrimSpace(inner) == "" {
		return []any{}
	}

	parts := strings.Split(inner, ",")
	elems := make([]any, 0, len(parts))
	for _, p := range parts {
		elems = append(elems, Parse(p))
	}

	allNumeric := true
	hasFloat := false
	for _, e := range elems {
		switch e.(type) {
		case int64:
		case float64:
			hasFloat = true
		default:
			allNumeric = false
		}
	}
	if allNumeric && hasFloat {
		for i, e := range elems {
			if n, ok := e.(int64); ok {
				elems[i] = float64(n)
			}
		}
	}
	return elems
}

// parseSpecialFloat handles case-insensitive inf/nan with an optional sign.
func parseSpecialFloat(lower string) (float64, bool) {
	body := lower
	neg := false
	if strings.HasPrefix(body, "+") || strings.HasPrefix(body, "-") {
		neg = body[0] == '-'
		body = body[1:]
	}
	switch body {
	case "inf":
		if neg {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	case "nan":
		return math.NaN(), true
	default:
		return 0, false
	}
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.' || c == '_'
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '_' || c == '.' ||
		c == 'e' || c == 'E' || c == '+' || c == '-'
}

// parseNumber applies the numeric rule: the leading character must be a
// digit, sign, dot, or underscore and the remainder must contain only
// number bytes. Underscores are digit separators and are stripped. Exactly
// one dot parses as a float, zero dots as an integer, more than one dot
// falls through to later rules.
func parseNumber(s string) (any, bool) {
	if !isNumberStart(s[0]) {
		return nil, false
	}
	for i := 1; i < len(s); i++ {
		if !isNumberByte(s[i]) {
			return nil, false
		}
	}

	cleaned := strings.ReplaceAll(s, "_", "")
	if cleaned == "" {
		return nil, false
	}

	switch strings.Count(cleaned, ".") {
	case 0:
		if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
			return n, true
		}
		// Exponent notation or overflow: retry as float.
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f, true
		}
		return nil, false
	case 1:
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f, true
		}
		return nil, false
	default:
		return nil, false
	}
}
