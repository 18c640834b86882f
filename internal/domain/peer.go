package domain

import "github.com/google/uuid"

// ConnID identifies one accepted connection. Unlike sid it is unique per connection.
type ConnID = uuid.UUID

// NewConnID returns a fresh connection handle.
func NewConnID() ConnID {
	return uuid.New()
}

// Peer is the outbound side of a client connection.
type Peer interface {
	// Send queues data for delivery. It never blocks and reports false when
	// the peer is closed or too slow to accept more data.
	Send(data []byte) bool
	// Close force-terminates the connection. Safe to call more than once.
	Close()
	// Open reports whether the peer still accepts sends.
	Open() bool
}
