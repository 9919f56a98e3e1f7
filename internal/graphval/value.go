package graphval

import (
	"encoding/json"
	"fmt"
)

// ValueKind is the discriminant of a PropertyValue.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindVector
	KindArray
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// PropertyValue is the closed tagged union every node and edge property
// value is stored as. Exactly one of the typed fields is meaningful,
// selected by Kind.
type PropertyValue struct {
	Kind ValueKind

	Bool   bool
	Int    int64
	Float  float64
	String string
	Vector []float32
	Array  []PropertyValue
	Object map[string]PropertyValue
}

func Null() PropertyValue                { return PropertyValue{Kind: KindNull} }
func Bool(b bool) PropertyValue          { return PropertyValue{Kind: KindBool, Bool: b} }
func Int(i int64) PropertyValue          { return PropertyValue{Kind: KindInt, Int: i} }
func Float(f float64) PropertyValue      { return PropertyValue{Kind: KindFloat, Float: f} }
func String(s string) PropertyValue      { return PropertyValue{Kind: KindString, String: s} }
func Array(vs []PropertyValue) PropertyValue {
	return PropertyValue{Kind: KindArray, Array: vs}
}
func Object(m map[string]PropertyValue) PropertyValue {
	return PropertyValue{Kind: KindObject, Object: m}
}

// Vector returns a PropertyValue carrying a float32 vector. No dimension is
// stored on the value; Dim derives it from the slice length, and an index's
// dimension is held by the index itself (internal/vectorindex).
func Vector(v []float32) PropertyValue {
	return PropertyValue{Kind: KindVector, Vector: v}
}

// Dim returns len(Vector) for a KindVector value, or 0 otherwise.
func (v PropertyValue) Dim() int {
	if v.Kind != KindVector {
		return 0
	}
	return len(v.Vector)
}

// AsVector coerces a value to a float32 vector. A KindVector returns its
// slice directly; an all-numeric KindArray (how a `[1.0, 0.0]` query
// literal arrives from expression evaluation) is converted. Anything else
// reports false.
func (v PropertyValue) AsVector() ([]float32, bool) {
	switch v.Kind {
	case KindVector:
		return v.Vector, true
	case KindArray:
		out := make([]float32, len(v.Array))
		for i, e := range v.Array {
			switch e.Kind {
			case KindFloat:
				out[i] = float32(e.Float)
			case KindInt:
				out[i] = float32(e.Int)
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

type wireValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

// MarshalJSON encodes the value as a discriminated {"t":...,"v":...}
// envelope so the wire format stays stable across Go struct changes.
func (v PropertyValue) MarshalJSON() ([]byte, error) {
	w := wireValue{T: v.Kind.String()}
	var raw any
	switch v.Kind {
	case KindNull:
		return json.Marshal(wireValue{T: "null"})
	case KindBool:
		raw = v.Bool
	case KindInt:
		raw = v.Int
	case KindFloat:
		raw = v.Float
	case KindString:
		raw = v.String
	case KindVector:
		raw = v.Vector
	case KindArray:
		raw = v.Array
	case KindObject:
		raw = v.Object
	default:
		return nil, fmt.Errorf("graphval: unknown value kind %d", v.Kind)
	}
	enc, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	w.V = enc
	return json.Marshal(w)
}

// UnmarshalJSON decodes the {"t":...,"v":...} envelope produced by
// MarshalJSON.
func (v *PropertyValue) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.T {
	case "null":
		*v = Null()
	case "bool":
		var b bool
		if err := json.Unmarshal(w.V, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case "int":
		var i int64
		if err := json.Unmarshal(w.V, &i); err != nil {
			return err
		}
		*v = Int(i)
	case "float":
		var f float64
		if err := json.Unmarshal(w.V, &f); err != nil {
			return err
		}
		*v = Float(f)
	case "string":
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return err
		}
		*v = String(s)
	case "vector":
		var vec []float32
		if err := json.Unmarshal(w.V, &vec); err != nil {
			return err
		}
		*v = Vector(vec)
	case "array":
		var arr []PropertyValue
		if err := json.Unmarshal(w.V, &arr); err != nil {
			return err
		}
		*v = Array(arr)
	case "object":
		var obj map[string]PropertyValue
		if err := json.Unmarshal(w.V, &obj); err != nil {
			return err
		}
		*v = Object(obj)
	default:
		return fmt.Errorf("graphval: unknown wire kind %q", w.T)
	}
	return nil
}

// Equal reports whether two values have the same kind and content.
func (v PropertyValue) Equal(other PropertyValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindString:
		return v.String == other.String
	case KindVector:
		if len(v.Vector) != len(other.Vector) {
			return false
		}
		for i := range v.Vector {
			if v.Vector[i] != other.Vector[i] {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.Array) != len(other.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.Object) != len(other.Object) {
			return false
		}
		for k, a := range v.Object {
			b, ok := other.Object[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}
