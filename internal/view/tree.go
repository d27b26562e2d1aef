package view

import (
	"strings"

	"github.com/roach88/entitystate/internal/entity"
)

// Tree is the host's state tree: nested maps whose leaves include
// collection states.
//
// A leaf may be an entity.State[T], a *entity.State[T], or any value with a
// State() entity.State[T] method such as a command.Store.
type Tree map[string]any

// Lookup resolves a dotted path in tree. An empty path returns the tree
// itself. Lookup reports false as soon as a segment is missing or the value
// reached so far is not a map.
func Lookup(tree Tree, path string) (any, bool) {
	if path == "" {
		return tree, true
	}

	var cur any = tree
	for _, key := range strings.Split(path, ".") {
		var next any
		var ok bool
		switch m := cur.(type) {
		case Tree:
			next, ok = m[key]
		case map[string]any:
			next, ok = m[key]
		}
		if !ok || next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// stateHolder is satisfied by live stores.
type stateHolder[T any] interface {
	State() entity.State[T]
}

// resolve returns the collection state stored at path, or the zero State.
func resolve[T any](tree Tree, path string) (entity.State[T], bool) {
	v, ok := Lookup(tree, path)
	if !ok {
		return entity.State[T]{}, false
	}
	switch s := v.(type) {
	case entity.State[T]:
		return s, true
	case *entity.State[T]:
		if s == nil {
			return entity.State[T]{}, false
		}
		return *s, true
	case stateHolder[T]:
		return s.State(), true
	default:
		return entity.State[T]{}, false
	}
}
