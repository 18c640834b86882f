// Package registry owns all client state.
//
// A Registry maps connection handles to domain records behind one lock. Callers only
// receive copies; room grouping and wire projections work on those copies.
package registry
