// Package domain defines the core hub types and interfaces.
//
// Concept-oriented files (record.go, state.go, message.go, peer.go, errors.go) hold
// the client record state machine, wire payload shapes and cross-cutting contracts.
// No I/O here.
package domain
