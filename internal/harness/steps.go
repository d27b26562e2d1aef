package harness

import (
	"errors"
	"fmt"

	"github.com/roach88/entitystate/internal/command"
	"github.com/roach88/entitystate/internal/entity"
	"github.com/roach88/entitystate/internal/record"
)

// buildCommand converts a scenario step into a command for an Object
// collection. The args each kind reads:
//
//	add, createOrReplace   records: [ {...}, ... ]
//	update                 target: {...}, data: {...}
//	remove                 target: {...}
//	updateActive           data: {...}
//	setLoading             value: bool
//	setError               message: string (empty clears)
//	setActive              id: string
//	goToPage               page: int | first | last | next | prev, wrap: bool
//	setPageSize            size: int
//
// A target is exactly one of {id: x}, {ids: [...]}, {where: {...}} or
// {all: true}.
func buildCommand(step Step) (command.Command, record.Object, error) {
	kind, err := command.ParseKind(step.Command)
	if err != nil {
		return command.Command{}, nil, err
	}

	args := record.Object{}
	if step.Args != nil {
		args, err = record.ObjectFromAny(step.Args)
		if err != nil {
			return command.Command{}, nil, fmt.Errorf("args: %w", err)
		}
	}

	cmd, err := commandFor(kind, args)
	if err != nil {
		return command.Command{}, nil, fmt.Errorf("%s: %w", kind, err)
	}
	return cmd, args, nil
}

// CommandFromArgs builds a command from a kind name and args already in
// record form, as read back from a journal entry.
func CommandFromArgs(kind string, args record.Object) (command.Command, error) {
	k, err := command.ParseKind(kind)
	if err != nil {
		return command.Command{}, err
	}
	if args == nil {
		args = record.Object{}
	}
	cmd, err := commandFor(k, args)
	if err != nil {
		return command.Command{}, fmt.Errorf("%s: %w", k, err)
	}
	return cmd, nil
}

func commandFor(kind command.Kind, args record.Object) (command.Command, error) {
	switch kind {
	case command.KindAdd, command.KindCreateOrReplace:
		records, err := recordsArg(args)
		if err != nil {
			return command.Command{}, err
		}
		if kind == command.KindAdd {
			return command.Add(records...), nil
		}
		return command.CreateOrReplace(records...), nil

	case command.KindUpdate:
		target, err := targetArg(args)
		if err != nil {
			return command.Command{}, err
		}
		data, err := objectArg(args, "data")
		if err != nil {
			return command.Command{}, err
		}
		return command.Update(target, entity.Set[record.Object](data.Patch())), nil

	case command.KindUpdateActive:
		data, err := objectArg(args, "data")
		if err != nil {
			return command.Command{}, err
		}
		return command.UpdateActive(entity.Set[record.Object](data.Patch())), nil

	case command.KindRemove:
		target, err := targetArg(args)
		if err != nil {
			return command.Command{}, err
		}
		if target.IsAll() {
			return command.RemoveAll(), nil
		}
		return command.Remove(target), nil

	case command.KindRemoveActive:
		return command.RemoveActive(), nil
	case command.KindClearActive:
		return command.ClearActive(), nil
	case command.KindReset:
		return command.Reset(), nil

	case command.KindSetLoading:
		v, ok := args["value"].(record.Bool)
		if !ok {
			return command.Command{}, errors.New("value must be a bool")
		}
		return command.SetLoading(bool(v)), nil

	case command.KindSetError:
		msg, _ := args["message"].(record.String)
		if msg == "" {
			return command.SetError(nil), nil
		}
		return command.SetError(errors.New(string(msg))), nil

	case command.KindSetActive:
		id, ok := args["id"].(record.String)
		if !ok {
			return command.Command{}, errors.New("id must be a string")
		}
		return command.SetActive(string(id)), nil

	case command.KindGoToPage:
		move, err := pageArg(args)
		if err != nil {
			return command.Command{}, err
		}
		return command.GoToPage(move), nil

	case command.KindSetPageSize:
		size, ok := args["size"].(record.Int)
		if !ok {
			return command.Command{}, errors.New("size must be an int")
		}
		return command.SetPageSize(int(size)), nil

	default:
		return command.Command{}, fmt.Errorf("no step mapping for command %q", kind)
	}
}

func recordsArg(args record.Object) ([]record.Object, error) {
	arr, ok := args["records"].(record.Array)
	if !ok {
		return nil, errors.New("records must be a list")
	}
	out := make([]record.Object, len(arr))
	for i, v := range arr {
		obj, ok := v.(record.Object)
		if !ok {
			return nil, fmt.Errorf("records[%d] must be an object", i)
		}
		out[i] = obj
	}
	return out, nil
}

func objectArg(args record.Object, key string) (record.Object, error) {
	obj, ok := args[key].(record.Object)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", key)
	}
	return obj, nil
}

func targetArg(args record.Object) (entity.Target[record.Object], error) {
	t, err := objectArg(args, "target")
	if err != nil {
		return entity.Target[record.Object]{}, err
	}
	if len(t) != 1 {
		return entity.Target[record.Object]{}, errors.New("target must have exactly one of id, ids, where, all")
	}

	switch {
	case t["id"] != nil:
		id, ok := t["id"].(record.String)
		if !ok {
			return entity.Target[record.Object]{}, errors.New("target.id must be a string")
		}
		return entity.ByID[record.Object](string(id)), nil
	case t["ids"] != nil:
		arr, ok := t["ids"].(record.Array)
		if !ok {
			return entity.Target[record.Object]{}, errors.New("target.ids must be a list")
		}
		ids := make([]string, len(arr))
		for i, v := range arr {
			s, ok := v.(record.String)
			if !ok {
				return entity.Target[record.Object]{}, fmt.Errorf("target.ids[%d] must be a string", i)
			}
			ids[i] = string(s)
		}
		return entity.ByIDs[record.Object](ids...), nil
	case t["where"] != nil:
		where, ok := t["where"].(record.Object)
		if !ok {
			return entity.Target[record.Object]{}, errors.New("target.where must be an object")
		}
		return record.Where(where), nil
	case t["all"] != nil:
		if all, ok := t["all"].(record.Bool); !ok || !bool(all) {
			return entity.Target[record.Object]{}, errors.New("target.all must be true")
		}
		return entity.All[record.Object](), nil
	default:
		return entity.Target[record.Object]{}, errors.New("target must have exactly one of id, ids, where, all")
	}
}

func pageArg(args record.Object) (entity.PageMove, error) {
	wrap := false
	if w, ok := args["wrap"]; ok {
		b, ok := w.(record.Bool)
		if !ok {
			return entity.PageMove{}, errors.New("wrap must be a bool")
		}
		wrap = bool(b)
	}

	page, ok := args["page"]
	if !ok {
		return entity.PageMove{}, errors.New("page is required")
	}
	switch p := page.(type) {
	case record.Int:
		return entity.ToPage(int(p)), nil
	case record.String:
		switch p {
		case "first":
			return entity.FirstPage(), nil
		case "last":
			return entity.LastPage(), nil
		case "next":
			return entity.NextPage(wrap), nil
		case "prev":
			return entity.PrevPage(wrap), nil
		}
	}
	return entity.PageMove{}, errors.New("page must be an int or one of first, last, next, prev")
}
