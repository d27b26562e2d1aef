package entity

import (
	"errors"
	"fmt"
)

// Error is the failure value raised by collection operators, id strategies
// and the command dispatcher.
//
// Errors are matched by Code: errors.Is(err, ErrNoSuchEntity) is true for any
// *Error with CodeNoSuchEntity anywhere in the chain, so wrapped causes
// (UPDATE_FAILED → NO_SUCH_ENTITY) stay discoverable.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ID is the record id involved, if any.
	ID string

	// Cause is the wrapped error, if any.
	Cause error
}

// ErrorCode categorizes entity errors.
type ErrorCode string

const (
	// CodeNoActiveEntity indicates an active-scoped operation ran with no active id.
	CodeNoActiveEntity ErrorCode = "NO_ACTIVE_ENTITY"

	// CodeNoSuchEntity indicates an update addressed an id missing from the entities.
	CodeNoSuchEntity ErrorCode = "NO_SUCH_ENTITY"

	// CodeInvalidID indicates id resolution for an update target yielded nothing.
	CodeInvalidID ErrorCode = "INVALID_ID"

	// CodeInvalidIDOf indicates a record lacks the id field a strategy required.
	CodeInvalidIDOf ErrorCode = "INVALID_ID_OF"

	// CodeUnableToGenerateID indicates an id strategy could not produce an id.
	CodeUnableToGenerateID ErrorCode = "UNABLE_TO_GENERATE_ID"

	// CodeDuplicateID indicates a caller-supplied id already exists.
	CodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// CodeUpdateFailed wraps the cause of a failed update.
	CodeUpdateFailed ErrorCode = "UPDATE_FAILED"

	// CodeInvalidTarget indicates a zero or malformed Target.
	CodeInvalidTarget ErrorCode = "INVALID_TARGET"

	// CodeInvalidPageSize indicates a page size below 1.
	CodeInvalidPageSize ErrorCode = "INVALID_PAGE_SIZE"

	// CodeMergeRequired indicates strict merge mode without a merge function.
	CodeMergeRequired ErrorCode = "MERGE_REQUIRED"

	// CodeNoMatchingActionHandler indicates a command kind without a bound operator.
	CodeNoMatchingActionHandler ErrorCode = "NO_MATCHING_ACTION_HANDLER"

	// CodeInvalidPayload indicates a command payload of the wrong type.
	CodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"
)

// Sentinels for errors.Is. Only the Code is compared.
var (
	ErrNoActiveEntity          = &Error{Code: CodeNoActiveEntity}
	ErrNoSuchEntity            = &Error{Code: CodeNoSuchEntity}
	ErrInvalidID               = &Error{Code: CodeInvalidID}
	ErrInvalidIDOf             = &Error{Code: CodeInvalidIDOf}
	ErrUnableToGenerateID      = &Error{Code: CodeUnableToGenerateID}
	ErrDuplicateID             = &Error{Code: CodeDuplicateID}
	ErrUpdateFailed            = &Error{Code: CodeUpdateFailed}
	ErrInvalidTarget           = &Error{Code: CodeInvalidTarget}
	ErrInvalidPageSize         = &Error{Code: CodeInvalidPageSize}
	ErrMergeRequired           = &Error{Code: CodeMergeRequired}
	ErrNoMatchingActionHandler = &Error{Code: CodeNoMatchingActionHandler}
	ErrInvalidPayload          = &Error{Code: CodeInvalidPayload}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s\n\tCause: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the outermost *Error in err's chain,
// or "" if there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NewNoActiveEntityError creates an error for an active-scoped operation
// without an active record. info is appended to the message when non-empty.
func NewNoActiveEntityError(info string) *Error {
	msg := "No active entity to affect."
	if info != "" {
		msg += " " + info
	}
	return &Error{Code: CodeNoActiveEntity, Message: msg}
}

// NewNoSuchEntityError creates an error for an id with no record.
func NewNoSuchEntityError(id string) *Error {
	return &Error{Code: CodeNoSuchEntity, Message: fmt.Sprintf("No entity for ID %s", id), ID: id}
}

// NewInvalidIDError creates an error for an update target without an id.
func NewInvalidIDError(id string) *Error {
	return &Error{Code: CodeInvalidID, Message: fmt.Sprintf("Invalid ID: %q", id), ID: id}
}

// NewInvalidIDOfError creates an error for a record missing its id field.
func NewInvalidIDOfError(field string) *Error {
	return &Error{Code: CodeInvalidIDOf, Message: fmt.Sprintf("idOf returned nothing for field %q", field)}
}

// NewUnableToGenerateIDError wraps the reason an id could not be produced.
func NewUnableToGenerateIDError(cause error) *Error {
	return &Error{Code: CodeUnableToGenerateID, Message: "Unable to generate an ID.", Cause: cause}
}

// NewDuplicateIDError creates the error FromRecord raises for an id that is
// already present. It is an UNABLE_TO_GENERATE_ID error caused by DUPLICATE_ID.
func NewDuplicateIDError(id string) *Error {
	return NewUnableToGenerateIDError(&Error{
		Code:    CodeDuplicateID,
		Message: fmt.Sprintf("The provided ID already exists: %s", id),
		ID:      id,
	})
}

// NewUpdateFailedError wraps the cause of a failed update.
func NewUpdateFailedError(cause error) *Error {
	return &Error{Code: CodeUpdateFailed, Message: "Updating entity failed.", Cause: cause}
}

// NewInvalidTargetError creates an error for an unusable Target.
func NewInvalidTargetError(reason string) *Error {
	return &Error{Code: CodeInvalidTarget, Message: "Invalid target: " + reason}
}

// NewInvalidPageSizeError creates an error for a page size below 1.
func NewInvalidPageSizeError(size int) *Error {
	return &Error{Code: CodeInvalidPageSize, Message: fmt.Sprintf("Invalid page size %d: must be at least 1", size)}
}

// NewNoMatchingActionHandlerError creates the configuration error for a
// command kind that has no operator bound to it.
func NewNoMatchingActionHandlerError(kind string) *Error {
	return &Error{
		Code:    CodeNoMatchingActionHandler,
		Message: fmt.Sprintf("No matching action handler for kind %q", kind),
	}
}

// NewInvalidPayloadError creates an error for a payload of the wrong type.
func NewInvalidPayloadError(kind string, payload any) *Error {
	return &Error{
		Code:    CodeInvalidPayload,
		Message: fmt.Sprintf("Invalid payload for kind %q: %T", kind, payload),
	}
}

// IsNoActiveEntity returns true if err is or wraps a NO_ACTIVE_ENTITY error.
func IsNoActiveEntity(err error) bool { return errors.Is(err, ErrNoActiveEntity) }

// IsNoSuchEntity returns true if err is or wraps a NO_SUCH_ENTITY error.
func IsNoSuchEntity(err error) bool { return errors.Is(err, ErrNoSuchEntity) }

// IsInvalidID returns true if err is or wraps an INVALID_ID error.
func IsInvalidID(err error) bool { return errors.Is(err, ErrInvalidID) }

// IsInvalidIDOf returns true if err is or wraps an INVALID_ID_OF error.
func IsInvalidIDOf(err error) bool { return errors.Is(err, ErrInvalidIDOf) }

// IsUnableToGenerateID returns true if err is or wraps an UNABLE_TO_GENERATE_ID error.
func IsUnableToGenerateID(err error) bool { return errors.Is(err, ErrUnableToGenerateID) }

// IsDuplicateID returns true if err is or wraps a DUPLICATE_ID error.
func IsDuplicateID(err error) bool { return errors.Is(err, ErrDuplicateID) }

// IsUpdateFailed returns true if err is or wraps an UPDATE_FAILED error.
func IsUpdateFailed(err error) bool { return errors.Is(err, ErrUpdateFailed) }

// IsNoMatchingActionHandler returns true if err is or wraps a
// NO_MATCHING_ACTION_HANDLER error.
func IsNoMatchingActionHandler(err error) bool {
	return errors.Is(err, ErrNoMatchingActionHandler)
}
