package selector

import (
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Same vocabulary as the usual boolean-object parsers; "1" and "0" never get
// here because they parse as numbers first.
var (
	trueTokens  = map[string]struct{}{"true": {}, "yes": {}, "on": {}, "y": {}, "t": {}}
	falseTokens = map[string]struct{}{"false": {}, "no": {}, "off": {}, "n": {}, "f": {}}
)

// Coerce types every string in v: numeric strings become int64 or float64,
// boolean tokens become bool, anything else stays a string. Lists and maps
// are coerced element-wise; integral floats become int64.
func Coerce(v any) any {
	switch t := v.(type) {
	case string:
		return coerceString(t)
	case float64:
		if i, ok := integral(t); ok {
			return i
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Coerce(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Coerce(e)
		}
		return out
	default:
		return v
	}
}

// Retype re-derives the type of a value from its string form, keeping list
// and map structure intact. Used when bindings cross from one environment to
// another.
func Retype(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Retype(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Retype(e)
		}
		return out
	default:
		return coerceString(String(v))
	}
}

func coerceString(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	if n, ok := parseNumber(trimmed); ok {
		return n
	}
	lower := strings.ToLower(trimmed)
	if _, ok := trueTokens[lower]; ok {
		return true
	}
	if _, ok := falseTokens[lower]; ok {
		return false
	}
	return s
}

func parseNumber(s string) (any, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	// ParseFloat also accepts "Inf", "NaN" and hex floats; none of those are
	// numbers in a metadata document.
	if strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' && r != 'e' && r != 'E'
	}) >= 0 {
		return nil, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	if i, ok := integral(f); ok {
		return i, true
	}
	return f, true
}

func integral(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) >= 1<<53 {
		return 0, false
	}
	return int64(f), true
}

// String renders a bound value as text: lists are comma-joined, maps are
// JSON, nil is empty.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = String(e)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
