// Package command maps discrete commands onto collection operators and hosts
// the resulting state.
//
// ARCHITECTURE:
//
// Static Dispatch Table:
// A Dispatcher holds one Handler per Kind. The table is built once and
// verified at construction: every kind in Kinds() must have a handler, so a
// command can never arrive for which no operator exists.
//
// Single-Writer Store:
// Store serializes dispatches with a mutex. Each dispatch reads the current
// state, computes the next one through the Dispatcher and installs it. When
// the operator fails the current state is kept. Readers get a consistent
// snapshot through State() at any time.
//
// Dispatch Flow:
// 1. Dispatch(ctx, cmd) takes the writer lock
// 2. The dispatch is stamped with the next seq from Clock
// 3. The Dispatcher applies the operator bound to cmd.Kind
// 4. On success the next state is installed
// 5. Observers receive an Event with the previous and next state
//
// Seq numbers order dispatches; wall time only reaches the state through
// the collection's Clock (LastUpdated).
package command
