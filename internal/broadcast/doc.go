// Package broadcast implements the fan-out side of the hub.
//
// Engine resolves the effective payload per recipient (real aggregate or a synthetic
// view override) and queues it on each open peer. Conn is the WebSocket peer: a
// buffered send channel drained by one writer goroutine.
package broadcast
