package compiler

import (
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/entitystate/internal/entity"
	"github.com/roach88/entitystate/internal/record"
)

// CollectionDef is a compiled collection definition.
type CollectionDef struct {
	Name        string          `json:"name"`
	Purpose     string          `json:"purpose"`
	IDField     string          `json:"id_field"`
	IDStrategy  entity.Strategy `json:"id_strategy"`
	PageSize    int             `json:"page_size,omitempty"`
	StrictMerge bool            `json:"strict_merge,omitempty"`
	Seed        []record.Object `json:"seed,omitempty"`
	Active      string          `json:"active,omitempty"`
}

// CompileCollection parses a CUE value into a CollectionDef.
//
// The CUE value should be the collection struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`collection: todo: { ... }`)
//	def, err := CompileCollection(v.LookupPath(cue.ParsePath("collection.todo")))
func CompileCollection(v cue.Value) (*CollectionDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &CollectionDef{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}

	purpose, err := requiredString(v, "purpose")
	if err != nil {
		return nil, err
	}
	def.Purpose = purpose

	if def.IDField, err = requiredString(v, "id_field"); err != nil {
		return nil, err
	}

	strategy, err := requiredString(v, "id_strategy")
	if err != nil {
		return nil, err
	}
	def.IDStrategy = entity.Strategy(strategy)

	if pageVal := v.LookupPath(cue.ParsePath("page_size")); pageVal.Exists() {
		if pageVal.IncompleteKind() != cue.IntKind {
			return nil, &CompileError{
				Field:   "page_size",
				Message: fmt.Sprintf("page_size must be an int, got %v", pageVal.IncompleteKind()),
				Pos:     pageVal.Pos(),
			}
		}
		n, err := pageVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.PageSize = int(n)
	}

	if strictVal := v.LookupPath(cue.ParsePath("strict_merge")); strictVal.Exists() {
		strict, err := strictVal.Bool()
		if err != nil {
			return nil, &CompileError{
				Field:   "strict_merge",
				Message: "strict_merge must be a bool",
				Pos:     strictVal.Pos(),
			}
		}
		def.StrictMerge = strict
	}

	if seedVal := v.LookupPath(cue.ParsePath("seed")); seedVal.Exists() {
		seed, err := parseSeed(seedVal)
		if err != nil {
			return nil, err
		}
		def.Seed = seed
	}

	if activeVal := v.LookupPath(cue.ParsePath("active")); activeVal.Exists() {
		active, err := activeVal.String()
		if err != nil {
			return nil, &CompileError{
				Field:   "active",
				Message: "active must be a string",
				Pos:     activeVal.Pos(),
			}
		}
		def.Active = active
	}

	return def, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{
			Field:   field,
			Message: field + " must be a string",
			Pos:     fv.Pos(),
		}
	}
	return s, nil
}

func parseSeed(v cue.Value) ([]record.Object, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   "seed",
			Message: "seed must be a list of records",
			Pos:     v.Pos(),
		}
	}

	var seed []record.Object
	for iter.Next() {
		rv, err := toRecordValue(iter.Value(), "seed")
		if err != nil {
			return nil, err
		}
		obj, ok := rv.(record.Object)
		if !ok {
			return nil, &CompileError{
				Field:   "seed",
				Message: "seed entries must be structs",
				Pos:     iter.Value().Pos(),
			}
		}
		seed = append(seed, obj)
	}
	return seed, nil
}

// toRecordValue converts a concrete CUE value into a record.Value.
// Floats are rejected like everywhere else in record data.
func toRecordValue(v cue.Value, field string) (record.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	switch v.IncompleteKind() {
	case cue.NullKind:
		return record.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, concreteError(v, field)
		}
		return record.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, concreteError(v, field)
		}
		return record.Int(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, concreteError(v, field)
		}
		return record.String(s), nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden, use int",
			Pos:     v.Pos(),
		}
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, concreteError(v, field)
		}
		arr := record.Array{}
		for iter.Next() {
			elem, err := toRecordValue(iter.Value(), field)
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, concreteError(v, field)
		}
		obj := record.Object{}
		for iter.Next() {
			elem, err := toRecordValue(iter.Value(), field+"."+iter.Label())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	default:
		return nil, concreteError(v, field)
	}
}

func concreteError(v cue.Value, field string) error {
	return &CompileError{
		Field:   field,
		Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
		Pos:     v.Pos(),
	}
}

// Build creates the collection the definition describes and its initial
// state: the default state with the seed records stored in order and the
// active id set. Options are applied after the definition's own, so a
// caller can inject a clock.
func (d *CollectionDef) Build(opts ...entity.Option[record.Object]) (*entity.Collection[record.Object], entity.State[record.Object], error) {
	return d.BuildWithEntropy(nil, opts...)
}

// BuildWithEntropy is Build with the uuid strategy drawing its random bits
// from entropy. A nil entropy keeps crypto/rand.
func (d *CollectionDef) BuildWithEntropy(entropy io.Reader, opts ...entity.Option[record.Object]) (*entity.Collection[record.Object], entity.State[record.Object], error) {
	if errs := Validate(d); len(errs) > 0 {
		return nil, entity.State[record.Object]{}, errs[0]
	}

	var idOpts []entity.RandomOption
	if entropy != nil {
		idOpts = append(idOpts, entity.WithEntropy(entropy))
	}
	ids, err := entity.NewIDGenerator(d.IDStrategy, record.IDField(d.IDField), idOpts...)
	if err != nil {
		return nil, entity.State[record.Object]{}, err
	}

	merge := record.Merge
	if d.StrictMerge {
		merge = record.StrictMerge
	}
	base := []entity.Option[record.Object]{
		entity.WithMerge[record.Object](merge),
		entity.WithStrictMerge[record.Object](),
	}
	if d.PageSize > 0 {
		base = append(base, entity.WithDefaultPageSize[record.Object](d.PageSize))
	}

	c, err := entity.New(ids, append(base, opts...)...)
	if err != nil {
		return nil, entity.State[record.Object]{}, err
	}

	s := c.Default()
	if len(d.Seed) > 0 {
		if s, err = c.CreateOrReplace(s, d.Seed...); err != nil {
			return nil, entity.State[record.Object]{}, fmt.Errorf("seeding %s: %w", d.Name, err)
		}
	}
	if d.Active != "" {
		s = c.SetActive(s, d.Active)
	}
	return c, s, nil
}

// CompileError represents a compilation error with source location.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError converts CUE errors to CompileError with position info.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
