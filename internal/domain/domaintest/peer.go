// Package domaintest provides in-memory domain fakes for tests.
package domaintest

import (
	"encoding/json"
	"sync"
)

// Peer records every payload it is sent.
type Peer struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
	closes int
	// Reject makes Send fail while the peer stays open, like a full buffer.
	Reject bool
}

func NewPeer() *Peer {
	return &Peer{}
}

func (p *Peer) Send(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.Reject {
		return false
	}
	msg := make([]byte, len(data))
	copy(msg, data)
	p.sent = append(p.sent, msg)
	return true
}

func (p *Peer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.closes++
}

func (p *Peer) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// Sent returns a copy of every delivered payload.
func (p *Peer) Sent() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.sent))
	copy(out, p.sent)
	return out
}

// Closes returns how often Close was called.
func (p *Peer) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// Last decodes the most recent payload into v. Returns false if nothing was sent.
func (p *Peer) Last(v any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sent) == 0 {
		return false
	}
	return json.Unmarshal(p.sent[len(p.sent)-1], v) == nil
}

// Reset forgets delivered payloads.
func (p *Peer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
}
