package entity

import (
	"fmt"
	"math"
	"reflect"
)

// Patch is a partial record: field name to new value.
// Field names follow the same matching rules as FieldOf.
type Patch map[string]any

// MergeFunc combines the current record with a patch into a complete
// replacement record. It must not modify current.
type MergeFunc[T any] func(current T, patch Patch) (T, error)

// ShallowMerge returns the default merge policy: a copy of the current record
// with every field named in the patch overwritten.
//
// Values are assigned directly when their type fits and converted between
// numeric kinds otherwise. A conversion that would truncate a fraction or
// overflow the field fails instead. A nil value resets the field to its zero value.
// Records with nested mutable structure that needs deep merging must supply
// their own MergeFunc.
func ShallowMerge[T any]() MergeFunc[T] {
	return func(current T, patch Patch) (T, error) {
		if len(patch) == 0 {
			return current, nil
		}
		v := reflect.ValueOf(&current).Elem()
		updated, err := withFields(v, patch, assignValue)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("shallow merge: %w", err)
		}
		out, ok := updated.Interface().(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("shallow merge: unexpected type %s", updated.Type())
		}
		return out, nil
	}
}

func assignValue(dst reflect.Value, val any) error {
	if val == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	rv := reflect.ValueOf(val)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return nil
	}
	if isNumeric(rv.Kind()) && isNumeric(dst.Kind()) {
		if !fitsNumeric(rv, dst) {
			return fmt.Errorf("value %v does not fit %s", val, dst.Type())
		}
		dst.Set(rv.Convert(dst.Type()))
		return nil
	}
	if rv.Kind() == reflect.String && dst.Kind() == reflect.String {
		dst.SetString(rv.String())
		return nil
	}
	if rv.Kind() == reflect.Bool && dst.Kind() == reflect.Bool {
		dst.SetBool(rv.Bool())
		return nil
	}
	return fmt.Errorf("cannot assign %s to %s", rv.Type(), dst.Type())
}

// fitsNumeric reports whether src converts to dst's type without losing a
// fractional part or overflowing.
func fitsNumeric(src, dst reflect.Value) bool {
	switch {
	case isFloat(src.Kind()):
		f := src.Float()
		if isFloat(dst.Kind()) {
			return math.IsNaN(f) || math.IsInf(f, 0) || !dst.OverflowFloat(f)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return false
		}
		if isUnsigned(dst.Kind()) {
			return f >= 0 && f < math.Exp2(64) && !dst.OverflowUint(uint64(f))
		}
		return f >= -math.Exp2(63) && f < math.Exp2(63) && !dst.OverflowInt(int64(f))
	case isUnsigned(src.Kind()):
		u := src.Uint()
		switch {
		case isFloat(dst.Kind()):
			return true
		case isUnsigned(dst.Kind()):
			return !dst.OverflowUint(u)
		default:
			return u <= math.MaxInt64 && !dst.OverflowInt(int64(u))
		}
	default:
		n := src.Int()
		switch {
		case isFloat(dst.Kind()):
			return true
		case isUnsigned(dst.Kind()):
			return n >= 0 && !dst.OverflowUint(uint64(n))
		default:
			return !dst.OverflowInt(n)
		}
	}
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
