package entity

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Field reads and writes the id field of a record.
//
// Get tolerates partial records: a missing or empty id reports false.
// Set returns a record carrying id and must not modify any value reachable
// from the record it was given.
type Field[T any] interface {
	// Name is the configured id field name.
	Name() string

	// Get returns the id stored in record.
	Get(record T) (string, bool)

	// Set returns a copy of record whose id field holds id.
	Set(record T, id string) (T, error)
}

// FieldOf returns a reflection-based Field for the named id field.
//
// Supported records:
//   - structs and pointers to structs; the field is matched by its json tag
//     first, then by case-insensitive Go name; string and integer kinds are
//     supported (integers are rendered in base 10)
//   - maps with string keys and string or interface element types
//
// Pointer records are cloned by Set.
func FieldOf[T any](name string) Field[T] {
	return reflectField[T]{name: name}
}

type reflectField[T any] struct {
	name string
}

func (f reflectField[T]) Name() string {
	return f.name
}

func (f reflectField[T]) Get(record T) (string, bool) {
	v := reflect.ValueOf(&record).Elem()
	v, ok := indirect(v)
	if !ok {
		return "", false
	}

	switch v.Kind() {
	case reflect.Struct:
		fv, ok := structField(v, f.name)
		if !ok {
			return "", false
		}
		return formatID(fv)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return "", false
		}
		mv := v.MapIndex(reflect.ValueOf(f.name).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return "", false
		}
		return formatID(mv)
	default:
		return "", false
	}
}

func (f reflectField[T]) Set(record T, id string) (T, error) {
	v := reflect.ValueOf(&record).Elem()
	updated, err := withFields(v, map[string]any{f.name: id}, assignID)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("set id field %q: %w", f.name, err)
	}
	out, ok := updated.Interface().(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("set id field %q: unexpected type %s", f.name, updated.Type())
	}
	return out, nil
}

// FieldFunc builds a Field from accessor functions.
// Use it for records whose id cannot be reached by reflection.
func FieldFunc[T any](name string, get func(T) (string, bool), set func(T, string) (T, error)) Field[T] {
	return funcField[T]{name: name, get: get, set: set}
}

type funcField[T any] struct {
	name string
	get  func(T) (string, bool)
	set  func(T, string) (T, error)
}

func (f funcField[T]) Name() string { return f.name }

func (f funcField[T]) Get(record T) (string, bool) {
	id, ok := f.get(record)
	if id == "" {
		return "", false
	}
	return id, ok
}

func (f funcField[T]) Set(record T, id string) (T, error) { return f.set(record, id) }

// indirect follows interfaces and pointers. It reports false on nil.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

// structField finds the exported field matching name.
func structField(v reflect.Value, name string) (reflect.Value, bool) {
	idx, ok := fieldIndex(v.Type(), name)
	if !ok {
		return reflect.Value{}, false
	}
	fv, err := v.FieldByIndexErr(idx)
	if err != nil {
		return reflect.Value{}, false
	}
	return fv, true
}

func fieldIndex(t reflect.Type, name string) ([]int, bool) {
	fields := reflect.VisibleFields(t)
	for _, f := range fields {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == name {
			return f.Index, true
		}
	}
	for _, f := range fields {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if strings.EqualFold(f.Name, name) {
			return f.Index, true
		}
	}
	return nil, false
}

func formatID(v reflect.Value) (string, bool) {
	v, ok := indirect(v)
	if !ok {
		return "", false
	}
	switch v.Kind() {
	case reflect.String:
		s := v.String()
		return s, s != ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true
	default:
		return "", false
	}
}

// assignFunc writes val into the settable dst.
type assignFunc func(dst reflect.Value, val any) error

// withFields returns a copy of v with the named fields overwritten.
// Structs are copied, pointers and maps are cloned; v itself is left alone.
func withFields(v reflect.Value, values map[string]any, assign assignFunc) (reflect.Value, error) {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil record")
		}
		inner, err := withFields(v.Elem(), values, assign)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out, nil
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil record")
		}
		inner, err := withFields(v.Elem(), values, assign)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(inner)
		return out, nil
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for _, name := range sortedKeys(values) {
			fv, ok := structField(out, name)
			if !ok {
				return reflect.Value{}, fmt.Errorf("no field %q in %s", name, v.Type())
			}
			if !fv.CanSet() {
				return reflect.Value{}, fmt.Errorf("field %q of %s is not settable", name, v.Type())
			}
			if err := assign(fv, values[name]); err != nil {
				return reflect.Value{}, fmt.Errorf("field %q: %w", name, err)
			}
		}
		return out, nil
	case reflect.Map:
		t := v.Type()
		if t.Key().Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("map key type %s is not a string", t.Key())
		}
		out := reflect.MakeMapWithSize(t, v.Len()+len(values))
		if !v.IsNil() {
			iter := v.MapRange()
			for iter.Next() {
				out.SetMapIndex(iter.Key(), iter.Value())
			}
		}
		for _, name := range sortedKeys(values) {
			elem := reflect.New(t.Elem()).Elem()
			if err := assign(elem, values[name]); err != nil {
				return reflect.Value{}, fmt.Errorf("key %q: %w", name, err)
			}
			out.SetMapIndex(reflect.ValueOf(name).Convert(t.Key()), elem)
		}
		return out, nil
	default:
		return reflect.Value{}, fmt.Errorf("unsupported record kind %s", v.Kind())
	}
}

// assignID writes an id string into a string, integer or interface slot.
func assignID(dst reflect.Value, val any) error {
	id, _ := val.(string)
	switch dst.Kind() {
	case reflect.String:
		dst.SetString(id)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(id, 10, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("id %q is not an integer: %w", id, err)
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(id, 10, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("id %q is not an unsigned integer: %w", id, err)
		}
		dst.SetUint(n)
	case reflect.Interface:
		rv := reflect.ValueOf(id)
		if !rv.Type().AssignableTo(dst.Type()) {
			return fmt.Errorf("cannot store string id in %s", dst.Type())
		}
		dst.Set(rv)
	default:
		return fmt.Errorf("unsupported id kind %s", dst.Kind())
	}
	return nil
}
