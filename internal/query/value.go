package query

import (
	"fmt"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
)

// toAny converts a stored PropertyValue into the native Go representation
// used throughout expression evaluation (int64, float64, string, bool,
// nil, []any, map[string]any).
func toAny(v graphval.PropertyValue) any {
	switch v.Kind {
	case graphval.KindNull:
		return nil
	case graphval.KindBool:
		return v.Bool
	case graphval.KindInt:
		return v.Int
	case graphval.KindFloat:
		return v.Float
	case graphval.KindString:
		return v.String
	case graphval.KindVector:
		out := make([]any, len(v.Vector))
		for i, f := range v.Vector {
			out[i] = float64(f)
		}
		return out
	case graphval.KindArray:
		out := make([]any, len(v.Array))
		for i, e := range v.Array {
			out[i] = toAny(e)
		}
		return out
	case graphval.KindObject:
		out := make(map[string]any, len(v.Object))
		for k, e := range v.Object {
			out[k] = toAny(e)
		}
		return out
	default:
		return nil
	}
}

// fromAny converts a native Go value produced by expression evaluation back
// into a PropertyValue, the representation CREATE/SET persist into the
// store.
func fromAny(v any) graphval.PropertyValue {
	switch t := v.(type) {
	case nil:
		return graphval.Null()
	case bool:
		return graphval.Bool(t)
	case int64:
		return graphval.Int(t)
	case int:
		return graphval.Int(int64(t))
	case float64:
		return graphval.Float(t)
	case string:
		return graphval.String(t)
	case []any:
		out := make([]graphval.PropertyValue, len(t))
		for i, e := range t {
			out[i] = fromAny(e)
		}
		return graphval.Array(out)
	case map[string]any:
		out := make(map[string]graphval.PropertyValue, len(t))
		for k, e := range t {
			out[k] = fromAny(e)
		}
		return graphval.Object(out)
	default:
		return graphval.Null()
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	default:
		return true
	}
}

func valuesEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b) && fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
}

// compareAny orders two expression values for ORDER BY and range
// comparisons; numeric values compare numerically, everything else falls
// back to string comparison of their formatted form.
func compareAny(a, b any) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
