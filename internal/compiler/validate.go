package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/entitystate/internal/entity"
	"github.com/roach88/entitystate/internal/record"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported type for validation

	// CollectionDef errors (E101-E109)
	ErrPurposeEmpty       = "E101" // purpose is required
	ErrIDFieldEmpty       = "E102" // id_field is required
	ErrUnknownStrategy    = "E103" // id_strategy is not a known strategy
	ErrInvalidPageSize    = "E104" // page_size must be >= 1
	ErrSeedMissingID      = "E105" // seed record has no id under the entity strategy
	ErrDuplicateSeedID    = "E106" // two seed records share an id
	ErrUnknownActiveID    = "E107" // active id is not a seed id
	ErrFloatTypeForbidden = "E108" // float values not allowed
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled collection definition.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch def := v.(type) {
	case *CollectionDef:
		return validateCollection(def)
	case CollectionDef:
		return validateCollection(&def)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateCollection(def *CollectionDef) []ValidationError {
	var errs []ValidationError

	// E101: purpose is required
	if strings.TrimSpace(def.Purpose) == "" {
		errs = append(errs, ValidationError{
			Field:   "purpose",
			Message: "purpose is required and must be non-empty",
			Code:    ErrPurposeEmpty,
		})
	}

	// E102: id field is required
	if strings.TrimSpace(def.IDField) == "" {
		errs = append(errs, ValidationError{
			Field:   "id_field",
			Message: "id_field is required and must be non-empty",
			Code:    ErrIDFieldEmpty,
		})
	}

	// E103: known strategy
	if !slices.Contains(entity.Strategies(), def.IDStrategy) {
		errs = append(errs, ValidationError{
			Field:   "id_strategy",
			Message: fmt.Sprintf("unknown id strategy %q, must be \"incrementing\", \"uuid\", or \"entity\"", def.IDStrategy),
			Code:    ErrUnknownStrategy,
		})
	}

	// E104: page size, zero means the default
	if def.PageSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "page_size",
			Message: fmt.Sprintf("page_size must be at least 1, got %d", def.PageSize),
			Code:    ErrInvalidPageSize,
		})
	}

	if def.IDField == "" {
		return errs
	}

	field := record.IDField(def.IDField)
	seen := make(map[string]bool)
	for i, obj := range def.Seed {
		key, ok := field.Get(obj)

		// E105: entity strategy takes ids from the records
		if !ok {
			if def.IDStrategy == entity.StrategyFromRecord {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("seed[%d].%s", i, def.IDField),
					Message: fmt.Sprintf("seed record has no %q id", def.IDField),
					Code:    ErrSeedMissingID,
				})
			}
			continue
		}

		// E106: unique seed ids
		if seen[key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("seed[%d].%s", i, def.IDField),
				Message: fmt.Sprintf("duplicate seed id: %q", key),
				Code:    ErrDuplicateSeedID,
			})
		}
		seen[key] = true
	}

	// E107: active must name a seed record
	if def.Active != "" && !seen[def.Active] {
		errs = append(errs, ValidationError{
			Field:   "active",
			Message: fmt.Sprintf("active id %q is not a seed record", def.Active),
			Code:    ErrUnknownActiveID,
		})
	}

	return errs
}
