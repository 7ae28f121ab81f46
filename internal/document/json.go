package document

import (
	"fmt"
	"math"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/ohler55/ojg/jp"

	"mdqengine/internal/model"
)

type jsonContext struct {
	raw     []byte
	data    any
	sysmeta *SystemMetadata
}

func newJSONContext(raw []byte, data any, sm *SystemMetadata) *jsonContext {
	return &jsonContext{raw: raw, data: data, sysmeta: sm}
}

func (c *jsonContext) Format() Format { return FormatJSON }

func (c *jsonContext) SystemMetadata() *SystemMetadata { return c.sysmeta }

func (c *jsonContext) Text() string {
	if c.raw != nil {
		return string(c.raw)
	}
	b, err := json.Marshal(c.data)
	if err != nil {
		return fmt.Sprint(c.data)
	}
	return string(b)
}

// Evaluate returns a single value for definite paths (nil when absent) and a
// list for every other path, even when that list has one element.
func (c *jsonContext) Evaluate(expr model.Expression, _ map[string]string) (any, error) {
	x, definite, err := compileJSONPath(expr)
	if err != nil {
		return nil, err
	}
	matches := x.Get(c.data)
	if definite {
		if len(matches) == 0 {
			return nil, nil
		}
		return normalizeJSON(matches[0]), nil
	}
	out := make([]any, 0, len(matches))
	for _, m := range matches {
		out = append(out, normalizeJSON(m))
	}
	return out, nil
}

// Truth treats a path as satisfied when it selects at least one value that
// is not null, false or an empty list.
func (c *jsonContext) Truth(expr model.Expression, namespaces map[string]string) (bool, error) {
	v, err := c.Evaluate(expr, namespaces)
	if err != nil {
		return false, err
	}
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case []any:
		return len(t) > 0, nil
	default:
		return true, nil
	}
}

// Nodes returns one Context per element of the evaluated result. A definite
// path that lands on an array yields one Context per array element.
func (c *jsonContext) Nodes(expr model.Expression, _ map[string]string) ([]Context, error) {
	x, definite, err := compileJSONPath(expr)
	if err != nil {
		return nil, err
	}
	matches := x.Get(c.data)
	if definite && len(matches) == 1 {
		if arr, ok := matches[0].([]any); ok {
			matches = arr
		}
	}
	out := make([]Context, 0, len(matches))
	for _, m := range matches {
		out = append(out, &jsonContext{data: m, sysmeta: c.sysmeta})
	}
	return out, nil
}

func compileJSONPath(expr model.Expression) (jp.Expr, bool, error) {
	if err := checkSyntax(FormatJSON, expr); err != nil {
		return nil, false, err
	}
	path := strings.TrimSpace(expr.Value)
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %q: %v", ErrInvalidPath, path, err)
	}
	return x, isDefinite(x), nil
}

// isDefinite reports whether a compiled path can select at most one value:
// only root, current-node, child-name and index fragments qualify.
func isDefinite(x jp.Expr) bool {
	for _, frag := range x {
		switch frag.(type) {
		case jp.Root, jp.At, jp.Bracket, jp.Child, jp.Nth:
		default:
			return false
		}
	}
	return true
}

// normalizeJSON turns integral float64 values into int64 so "2" and 2
// compare equal after coercion.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeJSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeJSON(e)
		}
		return out
	default:
		return v
	}
}
