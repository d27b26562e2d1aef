package harness

import (
	"maps"
	"slices"

	"github.com/roach88/entitystate/internal/entity"
	"github.com/roach88/entitystate/internal/record"
	"github.com/roach88/entitystate/internal/view"
)

// viewFunc evaluates a named view against a state tree.
type viewFunc func(sel view.Selectors[record.Object], tree view.Tree) any

// views maps the names usable in view assertions to their selectors.
// Values are plain Go data accepted by record.FromAny.
var views = map[string]viewFunc{
	"size": func(sel view.Selectors[record.Object], tree view.Tree) any {
		return sel.Size()(tree)
	},
	"keys": func(sel view.Selectors[record.Object], tree view.Tree) any {
		return stringsToAny(sel.Keys()(tree))
	},
	"active_id": func(sel view.Selectors[record.Object], tree view.Tree) any {
		return sel.ActiveID()(tree)
	},
	"active": func(sel view.Selectors[record.Object], tree view.Tree) any {
		return objectOrNil(sel.Active()(tree))
	},
	"entities": func(sel view.Selectors[record.Object], tree view.Tree) any {
		return objectsToAny(sel.Entities()(tree))
	},
	"paginated": func(sel view.Selectors[record.Object], tree view.Tree) any {
		return objectsToAny(sel.Paginated()(tree))
	},
	"entities_map": func(sel view.Selectors[record.Object], tree view.Tree) any {
		out := map[string]any{}
		for id, obj := range sel.EntitiesMap()(tree) {
			out[id] = obj
		}
		return out
	},
	"loading": func(sel view.Selectors[record.Object], tree view.Tree) any {
		return sel.Loading()(tree)
	},
	"error": func(sel view.Selectors[record.Object], tree view.Tree) any {
		return errorMessage(sel.Error()(tree))
	},
	"latest": func(sel view.Selectors[record.Object], tree view.Tree) any {
		return objectOrNil(sel.Latest()(tree))
	},
	"latest_id": func(sel view.Selectors[record.Object], tree view.Tree) any {
		return sel.LatestID()(tree)
	},
	"page_index": func(sel view.Selectors[record.Object], tree view.Tree) any {
		s, _ := sel.State(tree)
		return s.PageIndex
	},
	"page_size": func(sel view.Selectors[record.Object], tree view.Tree) any {
		s, _ := sel.State(tree)
		return s.PageSize
	},
}

// ViewNames lists the names usable in view assertions, sorted.
func ViewNames() []string {
	return slices.Sorted(maps.Keys(views))
}

// evalView evaluates the named view as a record.Value.
func evalView(name string, sel view.Selectors[record.Object], tree view.Tree) (record.Value, error) {
	return record.FromAny(views[name](sel, tree))
}

// Snapshot renders a collection state as plain data for canonical JSON.
// LastUpdated is left out so snapshots do not depend on the clock.
func Snapshot(s entity.State[record.Object]) map[string]any {
	entities := map[string]any{}
	for id, obj := range s.Entities {
		entities[id] = obj
	}
	var active any
	if s.Active != "" {
		active = s.Active
	}
	var errMsg any
	if s.Error != nil {
		errMsg = s.Error.Error()
	}
	return map[string]any{
		"ids":        stringsToAny(s.IDs),
		"entities":   entities,
		"active":     active,
		"loading":    s.Loading,
		"error":      errMsg,
		"page_index": s.PageIndex,
		"page_size":  s.PageSize,
	}
}

// StateHash fingerprints a collection state's snapshot.
func StateHash(s entity.State[record.Object]) (string, error) {
	return record.Fingerprint(record.DomainSnapshot, Snapshot(s))
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func objectsToAny(objs []record.Object) []any {
	out := make([]any, len(objs))
	for i, obj := range objs {
		out[i] = obj
	}
	return out
}

func objectOrNil(obj *record.Object) any {
	if obj == nil {
		return nil
	}
	return *obj
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
