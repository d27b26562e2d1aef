package command

import (
	"fmt"

	"github.com/roach88/entitystate/internal/entity"
)

// Command is one request to change a collection: a kind tag and a
// kind-specific payload. Build commands with the factory functions; they
// produce the payload types the default handlers expect.
type Command struct {
	Kind    Kind
	Payload any
}

// Type renders the name the command is traced and journaled under,
// "[path] kind".
func (c Command) Type(path string) string {
	return fmt.Sprintf("[%s] %s", path, c.Kind)
}

// String returns the kind name.
func (c Command) String() string {
	return string(c.Kind)
}

// UpdatePayload is the payload of an update command.
type UpdatePayload[T any] struct {
	Target  entity.Target[T]
	Updater entity.Updater[T]
}

// AllTarget is the payload of RemoveAll. Unlike entity.All it is not tied
// to a record type.
type AllTarget struct{}

// Add inserts records, generating their ids.
func Add[T any](records ...T) Command {
	return Command{Kind: KindAdd, Payload: records}
}

// CreateOrReplace inserts or replaces records, keeping ids they carry.
func CreateOrReplace[T any](records ...T) Command {
	return Command{Kind: KindCreateOrReplace, Payload: records}
}

// Update merges updater's patch into the targeted records.
func Update[T any](target entity.Target[T], updater entity.Updater[T]) Command {
	return Command{Kind: KindUpdate, Payload: UpdatePayload[T]{Target: target, Updater: updater}}
}

// UpdateActive merges updater's patch into the active record.
func UpdateActive[T any](updater entity.Updater[T]) Command {
	return Command{Kind: KindUpdateActive, Payload: updater}
}

// Remove deletes the targeted records.
func Remove[T any](target entity.Target[T]) Command {
	return Command{Kind: KindRemove, Payload: target}
}

// RemoveAll deletes every record.
func RemoveAll() Command {
	return Command{Kind: KindRemove, Payload: AllTarget{}}
}

// RemoveActive deletes the active record.
func RemoveActive() Command {
	return Command{Kind: KindRemoveActive}
}

// SetLoading sets the loading flag.
func SetLoading(loading bool) Command {
	return Command{Kind: KindSetLoading, Payload: loading}
}

// SetError sets the informational error; nil clears it.
func SetError(err error) Command {
	return Command{Kind: KindSetError, Payload: err}
}

// SetActive selects the record with the given id.
func SetActive(id string) Command {
	return Command{Kind: KindSetActive, Payload: id}
}

// ClearActive clears the selection.
func ClearActive() Command {
	return Command{Kind: KindClearActive}
}

// Reset restores the default state.
func Reset() Command {
	return Command{Kind: KindReset}
}

// GoToPage moves the pagination cursor.
func GoToPage(move entity.PageMove) Command {
	return Command{Kind: KindGoToPage, Payload: move}
}

// SetPageSize changes the page size.
func SetPageSize(size int) Command {
	return Command{Kind: KindSetPageSize, Payload: size}
}
