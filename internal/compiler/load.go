package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/entitystate/internal/record"
)

// CompileAll compiles every collection under the value's "collection"
// field, in declaration order. It keeps going after a failed collection and
// returns every error.
func CompileAll(v cue.Value) ([]*CollectionDef, []error) {
	collections := v.LookupPath(cue.ParsePath("collection"))
	if !collections.Exists() {
		return nil, nil
	}

	iter, err := collections.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var defs []*CollectionDef
	var errs []error
	for iter.Next() {
		def, err := CompileCollection(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("collection.%s: %w", iter.Label(), err))
			continue
		}
		defs = append(defs, def)
	}
	return defs, errs
}

// CompileFile compiles the collection definitions of one CUE file.
func CompileFile(path string) ([]*CollectionDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cuecontext.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	defs, errs := CompileAll(v)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no collections found in %s", path)
	}
	return defs, nil
}

// Hash fingerprints the definition, seed included. Runs journaled against
// the same hash started from the same state.
func (d *CollectionDef) Hash() (string, error) {
	seed := make([]any, len(d.Seed))
	for i, obj := range d.Seed {
		seed[i] = obj
	}
	return record.Fingerprint(record.DomainDefinition, map[string]any{
		"name":         d.Name,
		"purpose":      d.Purpose,
		"id_field":     d.IDField,
		"id_strategy":  string(d.IDStrategy),
		"page_size":    d.PageSize,
		"strict_merge": d.StrictMerge,
		"seed":         seed,
		"active":       d.Active,
	})
}
