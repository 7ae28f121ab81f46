package native

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"mdqengine/internal/executor"
)

func init() {
	Register("mdq.present", present)
	Register("mdq.unique", unique)
}

// present succeeds when every selector value is non-empty.
func present(_ context.Context, vars map[string]any) (any, error) {
	var missing []string
	for _, name := range selectorNames(vars) {
		if empty(vars[name]) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Failure("missing value for " + strings.Join(missing, ", ")), nil
	}
	return Success(), nil
}

// unique fails when any list-valued selector repeats a value.
func unique(_ context.Context, vars map[string]any) (any, error) {
	var dups []any
	for _, name := range selectorNames(vars) {
		list, ok := vars[name].([]any)
		if !ok {
			continue
		}
		seen := make(map[string]bool, len(list))
		for _, v := range list {
			k := fmt.Sprint(v)
			if seen[k] {
				dups = append(dups, v)
			}
			seen[k] = true
		}
	}
	if len(dups) > 0 {
		return Failure(fmt.Sprintf("%d duplicate value(s)", len(dups)), dups...), nil
	}
	return Success(), nil
}

func selectorNames(vars map[string]any) []string {
	var names []string
	for k := range vars {
		if !executor.IsReserved(k) {
			names = append(names, k)
		}
	}
	slices.Sort(names)
	return names
}

func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
