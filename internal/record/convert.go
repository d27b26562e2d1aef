package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// FromAny converts decoded YAML, JSON or CUE data into a Value.
//
// Accepted inputs are nil, bool, string, the integer kinds, json.Number
// holding an integer, []any, map[string]any, map[any]any with string keys,
// and Values themselves. Floats are rejected.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val)
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden in records: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in records: %v", val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			rv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = rv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			rv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = rv
		}
		return obj, nil
	case map[any]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is not a string", k)
			}
			rv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			obj[key] = rv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func fromUint(n uint64) (Value, error) {
	if n > math.MaxInt64 {
		return nil, fmt.Errorf("number out of int64 range: %d", n)
	}
	return Int(int64(n)), nil
}

// ObjectFromAny converts v with FromAny and requires the result to be an
// Object.
func ObjectFromAny(v any) (Object, error) {
	rv, err := FromAny(v)
	if err != nil {
		return nil, err
	}
	obj, ok := rv.(Object)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", rv)
	}
	return obj, nil
}

// ToAny converts a Value back to plain Go data: nil, string, int64, bool,
// []any and map[string]any.
func ToAny(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		return val.ToAny()
	default:
		return nil
	}
}

// ToAny converts obj to a map[string]any.
func (obj Object) ToAny() map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = ToAny(v)
	}
	return out
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
