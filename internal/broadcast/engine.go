package broadcast

import (
	"log/slog"

	"github.com/pscheid92/roomrelay/internal/domain"
	"github.com/pscheid92/roomrelay/internal/metrics"
	"github.com/pscheid92/roomrelay/internal/registry"
)

// Source is the read side of the registry the engine fans out over.
type Source interface {
	Snapshot() []registry.Entry
	Get(id domain.ConnID) (registry.Entry, bool)
}

// Result counts the outcome of one fan-out.
type Result struct {
	Delivered int
	Skipped   int
}

func (r *Result) count(ok bool) {
	if ok {
		r.Delivered++
	} else {
		r.Skipped++
	}
}

type Engine struct {
	source Source
}

func NewEngine(source Source) *Engine {
	return &Engine{source: source}
}

// BroadcastToRoom sends payload to every open connection in room. Recipients
// with a view override receive their synthetic payload instead.
func (e *Engine) BroadcastToRoom(room domain.RoomKey, payload []byte) Result {
	return e.BroadcastToMembers(registry.InRoom(e.source.Snapshot(), room), payload)
}

// BroadcastToMembers is BroadcastToRoom over a member list the caller has
// already selected.
func (e *Engine) BroadcastToMembers(members []registry.Entry, payload []byte) Result {
	var res Result
	for _, entry := range members {
		data, synthetic := Effective(entry.Record.View, payload)
		kind := "room"
		if synthetic {
			kind = "synthetic"
		}
		res.count(deliver(entry.Peer, data, kind))
	}
	return res
}

// SendToRoom sends payload verbatim to every open connection in room,
// ignoring view overrides.
func (e *Engine) SendToRoom(room domain.RoomKey, payload []byte) Result {
	var res Result
	for _, entry := range registry.InRoom(e.source.Snapshot(), room) {
		res.count(deliver(entry.Peer, payload, "inject"))
	}
	return res
}

// SendDirect sends payload to a single connection. Unknown or closed
// connections are a silent no-op.
func (e *Engine) SendDirect(id domain.ConnID, payload []byte) bool {
	entry, ok := e.source.Get(id)
	if !ok {
		return false
	}
	return deliver(entry.Peer, payload, "direct")
}

type gracefulCloser interface {
	CloseGraceful(reason string)
}

// CloseAll closes every registered connection, with a close frame where the
// peer supports one. Returns the number of connections closed.
func (e *Engine) CloseAll(reason string) int {
	entries := e.source.Snapshot()
	for _, entry := range entries {
		if gc, ok := entry.Peer.(gracefulCloser); ok {
			gc.CloseGraceful(reason)
			continue
		}
		entry.Peer.Close()
	}
	slog.Info("Closed all connections", "count", len(entries), "reason", reason)
	return len(entries)
}

func deliver(peer domain.Peer, data []byte, kind string) bool {
	if peer == nil || !peer.Open() || !peer.Send(data) {
		metrics.BroadcastSkippedTotal.Inc()
		return false
	}
	metrics.BroadcastMessagesTotal.WithLabelValues(kind).Inc()
	return true
}
