package entity

// Updater produces the patch applied to each affected record.
//
// Set applies the same patch to every record; SetFunc computes a patch per
// record from its current value, allowing differentiated updates.
type Updater[T any] struct {
	patch Patch
	fn    func(current T) Patch
}

// Set returns an Updater applying patch verbatim.
func Set[T any](patch Patch) Updater[T] {
	return Updater[T]{patch: patch}
}

// SetFunc returns an Updater calling fn once per affected record.
func SetFunc[T any](fn func(current T) Patch) Updater[T] {
	return Updater[T]{fn: fn}
}

// PatchFor returns the patch for the given current record.
func (u Updater[T]) PatchFor(current T) Patch {
	if u.fn != nil {
		return u.fn(current)
	}
	return u.patch
}
