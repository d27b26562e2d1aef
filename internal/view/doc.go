// Package view derives read-only views from collection state.
//
// The functions in this package are pure: they never modify the State they
// are given, never cache, and never panic. Absent results are reported as
// nil pointers, empty ids or empty slices.
//
// For hosts that keep several collections in one tree, For binds a dotted
// path ("app.todos") and returns Selectors whose methods produce
// Selector[V] functions over the whole Tree. A missing path behaves like an
// empty collection.
package view
