package dispatch

import (
	"strings"
	"time"

	"mdqengine/internal/model"
	"mdqengine/internal/selector"
)

// resultFrom maps a check's return value onto a Result. A map carrying a
// "status" key is the check's own verdict, with optional "output" and
// "message"; any other value is a SUCCESS whose output is the value.
func resultFrom(check model.Check, value any, at time.Time) model.Result {
	if m, ok := value.(map[string]any); ok {
		if raw, ok := m["status"].(string); ok {
			status, err := model.ParseStatus(raw)
			if err != nil {
				return model.ErrorResult(check, err, at)
			}
			msg, _ := m["message"].(string)
			res := model.NewResult(check, status, msg, at)
			res.Output = outputs(m["output"])
			return res
		}
	}
	res := model.NewResult(check, model.StatusSuccess, "", at)
	res.Output = outputs(value)
	return res
}

// outputs flattens a value into Output entries: nil gives none, a list one
// entry per element. An element map with a "value" key may also set the
// entry's type and identifier.
func outputs(v any) []model.Output {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]model.Output, 0, len(t))
		for _, e := range t {
			out = append(out, output(e))
		}
		return out
	default:
		return []model.Output{output(t)}
	}
}

func output(v any) model.Output {
	if m, ok := v.(map[string]any); ok {
		if val, ok := m["value"]; ok {
			typ, _ := m["type"].(string)
			id, _ := m["identifier"].(string)
			return model.Output{Value: selector.String(val), Type: strings.TrimSpace(typ), Identifier: id}
		}
	}
	return model.Output{Value: selector.String(v)}
}
