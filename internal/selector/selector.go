// Package selector extracts typed values from a document for a check.
package selector

import (
	"errors"
	"fmt"

	"mdqengine/internal/document"
	"mdqengine/internal/model"
)

var ErrSelectorEvaluation = errors.New("selector evaluation failed")

// Evaluate runs sel against ctx and coerces the result. A path that matches
// nothing yields nil, not an error. With a sub-selector the result is one
// entry per matched node, each the sub-selector's value for that node.
func Evaluate(ctx document.Context, sel model.Selector) (any, error) {
	path := sel.Path()
	ns := sel.NamespaceMap()

	if sel.SubSelector == nil {
		v, err := ctx.Evaluate(path, ns)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSelectorEvaluation, sel.Name, err)
		}
		return Coerce(v), nil
	}

	nodes, err := ctx.Nodes(path, ns)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSelectorEvaluation, sel.Name, err)
	}
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		v, err := Evaluate(n, *sel.SubSelector)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSelectorEvaluation, sel.Name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// EvaluateAll evaluates every selector of a check into a name -> value map.
func EvaluateAll(ctx document.Context, selectors []model.Selector) (map[string]any, error) {
	vars := make(map[string]any, len(selectors))
	for _, sel := range selectors {
		v, err := Evaluate(ctx, sel)
		if err != nil {
			return nil, err
		}
		vars[sel.Name] = v
	}
	return vars, nil
}
