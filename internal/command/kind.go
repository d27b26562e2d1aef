package command

import "fmt"

// Kind tags a command with the operator it invokes.
type Kind string

const (
	KindAdd             Kind = "add"
	KindCreateOrReplace Kind = "createOrReplace"
	KindUpdate          Kind = "update"
	KindUpdateActive    Kind = "updateActive"
	KindRemove          Kind = "remove"
	KindRemoveActive    Kind = "removeActive"
	KindSetLoading      Kind = "setLoading"
	KindSetError        Kind = "setError"
	KindSetActive       Kind = "setActive"
	KindClearActive     Kind = "clearActive"
	KindReset           Kind = "reset"
	KindGoToPage        Kind = "goToPage"
	KindSetPageSize     Kind = "setPageSize"
)

var kinds = []Kind{
	KindAdd,
	KindCreateOrReplace,
	KindUpdate,
	KindUpdateActive,
	KindRemove,
	KindRemoveActive,
	KindSetLoading,
	KindSetError,
	KindSetActive,
	KindClearActive,
	KindReset,
	KindGoToPage,
	KindSetPageSize,
}

// Kinds returns every command kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown command kind %q", s)
}

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}
