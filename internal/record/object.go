package record

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/roach88/entitystate/internal/entity"
)

// IDField returns the id accessor for Objects keyed by name.
//
// String values are ids as they are; Int values are rendered in base 10.
// Set always stores a String.
func IDField(name string) entity.Field[Object] {
	return entity.FieldFunc(name, func(obj Object) (string, bool) {
		switch v := obj[name].(type) {
		case String:
			return string(v), v != ""
		case Int:
			return strconv.FormatInt(int64(v), 10), true
		default:
			return "", false
		}
	}, func(obj Object, id string) (Object, error) {
		out := obj.Clone()
		out[name] = String(id)
		return out, nil
	})
}

// Merge is the merge policy for Object collections: a copy of current with
// every key of patch overwritten. Patch values are converted with FromAny;
// a nil value stores Null.
func Merge(current Object, patch entity.Patch) (Object, error) {
	out := current.Clone()
	for k, v := range patch {
		rv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("patch key %q: %w", k, err)
		}
		out[k] = rv
	}
	return out, nil
}

// StrictMerge is Merge rejecting patch keys the current record does not
// already carry.
func StrictMerge(current Object, patch entity.Patch) (Object, error) {
	for _, k := range slices.Sorted(maps.Keys(patch)) {
		if _, ok := current[k]; !ok {
			return nil, fmt.Errorf("patch key %q: not a field of the record", k)
		}
	}
	return Merge(current, patch)
}

// Patch converts obj into an entity.Patch for Merge.
func (obj Object) Patch() entity.Patch {
	p := make(entity.Patch, len(obj))
	for k, v := range obj {
		p[k] = v
	}
	return p
}

// Matches reports whether obj contains every key of where with an equal
// value. Keys of where may be dotted paths into nested objects. An empty
// where matches every record.
func Matches(obj, where Object) bool {
	for k, want := range where {
		got, ok := obj.Get(k)
		if !ok || !Equal(got, want) {
			return false
		}
	}
	return true
}

// Where returns a predicate target selecting Objects that match where.
func Where(where Object) entity.Target[Object] {
	return entity.Where(func(obj Object) bool {
		return Matches(obj, where)
	})
}
