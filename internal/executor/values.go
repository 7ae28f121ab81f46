package executor

import (
	"fmt"
	"math"
	"time"
)

// Variables the dispatcher binds for every check, in addition to the
// check's own selectors.
const (
	VarDocument                = "document"
	VarSystemMetadata          = "systemMetadata"
	VarDatasource              = "datasource"
	VarDateUploaded            = "dateUploaded"
	VarAuthoritativeMemberNode = "authoritativeMemberNode"
	VarSystemMetadataPID       = "systemMetadataPid"
	VarParams                  = "mdq_params"
	VarTempDir                 = "tempDir"
)

// IsReserved reports whether name is bound by the dispatcher itself.
func IsReserved(name string) bool {
	switch name {
	case VarDocument, VarSystemMetadata, VarDatasource, VarDateUploaded,
		VarAuthoritativeMemberNode, VarSystemMetadataPID, VarParams, VarTempDir:
		return true
	default:
		return false
	}
}

// Normalize maps a value produced by a backend onto the binding value
// space: nil, string, bool, int64, float64, []any and map[string]any.
// Values with no such representation are rendered with fmt.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return Normalize(float64(t))
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
