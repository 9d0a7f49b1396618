package localstorage

import (
	"fmt"
	"math"
)

// Kind is the dynamic type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a stored value read back without knowing its type.
type Value struct {
	raw     any
	payload string
	codec   Codec
}

func newValue(payload string, codec Codec) (Value, error) {
	var raw any
	if err := codec.Unmarshal(payload, &raw); err != nil {
		return Value{}, err
	}
	return Value{raw: raw, payload: payload, codec: codec}, nil
}

func (v Value) Kind() Kind { return kindOf(v.raw) }

// Interface returns the generic decoded form: nil, bool, a number, string,
// []any or map[string]any.
func (v Value) Interface() any { return v.raw }

// Decode decodes the stored payload into out, which must be a pointer.
func (v Value) Decode(out any) error {
	if v.codec == nil {
		return fmt.Errorf("%w: zero Value", ErrDecode)
	}
	if err := v.codec.Unmarshal(v.payload, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

func (v Value) IsNull() bool { return v.raw == nil }

func (v Value) AsString() (string, bool) {
	switch s := v.raw.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	}
	return "", false
}

func (v Value) AsBool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

func (v Value) AsFloat() (float64, bool) {
	switch n := v.raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// AsInt returns the number as an integer when it has no fractional part.
func (v Value) AsInt() (int64, bool) {
	switch n := v.raw.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	f, ok := v.AsFloat()
	if !ok || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func (v Value) AsList() ([]Value, bool) {
	items, ok := v.raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = v.child(item)
	}
	return out, true
}

func (v Value) AsMap() (map[string]Value, bool) {
	switch m := v.raw.(type) {
	case map[string]any:
		out := make(map[string]Value, len(m))
		for k, item := range m {
			out[k] = v.child(item)
		}
		return out, true
	case map[any]any:
		out := make(map[string]Value, len(m))
		for k, item := range m {
			out[fmt.Sprint(k)] = v.child(item)
		}
		return out, true
	}
	return nil, false
}

// child wraps a nested element. It is re-encoded so Decode keeps working.
func (v Value) child(raw any) Value {
	c := Value{raw: raw, codec: v.codec}
	if v.codec != nil {
		if payload, err := v.codec.Marshal(raw); err == nil {
			c.payload = payload
		}
	}
	return c
}

func (v Value) String() string {
	if v.raw == nil {
		return "<null>"
	}
	return fmt.Sprint(v.raw)
}

func kindOf(raw any) Kind {
	switch raw.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case float64, float32, int, int64, uint64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindList
	case map[string]any, map[any]any:
		return KindMap
	}
	// other scalars, e.g. YAML timestamps
	return KindString
}
