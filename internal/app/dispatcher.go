package app

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/pscheid92/roomrelay/internal/broadcast"
	"github.com/pscheid92/roomrelay/internal/domain"
	"github.com/pscheid92/roomrelay/internal/metrics"
	"github.com/pscheid92/roomrelay/internal/registry"
)

// ClientStore is the registry as seen by the dispatcher.
type ClientStore interface {
	Update(id domain.ConnID, state domain.PlayerState) bool
	Override(match func(domain.Record) bool, tag domain.ViewOverride) []registry.Entry
	Select(match func(domain.Record) bool) []registry.Entry
	Snapshot() []registry.Entry
}

// Outbox delivers hub messages.
type Outbox interface {
	BroadcastToMembers(members []registry.Entry, payload []byte) broadcast.Result
	SendToRoom(room domain.RoomKey, payload []byte) broadcast.Result
	SendDirect(id domain.ConnID, payload []byte) bool
}

type DispatcherConfig struct {
	// AdminKey is the shared secret for admin commands. Empty disables them.
	AdminKey string
	// BroadcastOnUpdate re-aggregates and broadcasts a room right after each
	// update, in addition to the periodic publish.
	BroadcastOnUpdate bool
}

type Dispatcher struct {
	store  ClientStore
	outbox Outbox
	cfg    DispatcherConfig
}

func NewDispatcher(store ClientStore, outbox Outbox, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{store: store, outbox: outbox, cfg: cfg}
}

// Handle processes one inbound message from connection id. Only
// domain.ErrMalformedMessage and domain.ErrUnknownConnection are returned;
// neither should close the connection.
func (d *Dispatcher) Handle(ctx context.Context, id domain.ConnID, raw []byte) error {
	// Payload bytes are relayed verbatim into text frames.
	if !utf8.Valid(raw) {
		metrics.MalformedMessagesTotal.Inc()
		return fmt.Errorf("%w: invalid UTF-8", domain.ErrMalformedMessage)
	}

	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.MalformedMessagesTotal.Inc()
		return fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	switch env.Action {
	case domain.ActionUpdate:
		metrics.InboundMessagesTotal.WithLabelValues(domain.ActionUpdate).Inc()
		return d.handleUpdate(ctx, id, env.Data)
	case domain.ActionAdmin:
		metrics.InboundMessagesTotal.WithLabelValues(domain.ActionAdmin).Inc()
		var msg domain.Inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			metrics.MalformedMessagesTotal.Inc()
			return fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
		}
		if !d.authorized(msg.Key) {
			// Unauthorized admin messages get no response of any kind.
			slog.DebugContext(ctx, "Ignoring unauthorized admin message")
			return nil
		}
		d.handleAdmin(ctx, id, msg)
		return nil
	default:
		metrics.InboundMessagesTotal.WithLabelValues("other").Inc()
		slog.DebugContext(ctx, "Ignoring message with unknown action", "action", env.Action)
		return nil
	}
}

func (d *Dispatcher) handleUpdate(ctx context.Context, id domain.ConnID, data json.RawMessage) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		metrics.MalformedMessagesTotal.Inc()
		return fmt.Errorf("%w: update data must be an object", domain.ErrMalformedMessage)
	}

	var state domain.PlayerState
	if err := json.Unmarshal(trimmed, &state); err != nil {
		metrics.MalformedMessagesTotal.Inc()
		return fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	if !d.store.Update(id, state) {
		return fmt.Errorf("update for %s: %w", id, domain.ErrUnknownConnection)
	}
	slog.DebugContext(ctx, "Client updated", "sid", string(state.SID), "server", string(state.Server), "sync", string(state.Sync))

	if !d.cfg.BroadcastOnUpdate {
		return nil
	}
	room, ok := state.Room()
	if !ok {
		return nil
	}
	d.broadcastSummary(ctx, room)
	return nil
}

// broadcastSummary sends the {sid, sync} view of room to its members.
func (d *Dispatcher) broadcastSummary(ctx context.Context, room domain.RoomKey) {
	members := registry.InRoom(d.store.Snapshot(), room)
	payload, err := broadcast.Encode(domain.ActionUpdate, registry.Summaries(members))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode room summary", "room", string(room), "error", err)
		return
	}
	res := d.outbox.BroadcastToMembers(members, payload)
	slog.DebugContext(ctx, "Broadcast room summary", "room", string(room), "members", len(members), "delivered", res.Delivered)
}

func (d *Dispatcher) authorized(key string) bool {
	if d.cfg.AdminKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(d.cfg.AdminKey)) == 1
}

func (d *Dispatcher) handleAdmin(ctx context.Context, id domain.ConnID, msg domain.Inbound) {
	switch msg.Command {
	case domain.CommandListClients:
		d.listClients(ctx, id)
	case domain.CommandSendMessage:
		d.sendMessage(ctx, id, msg)
	case domain.CommandTrollThem:
		d.trollThem(ctx, id, msg)
	default:
		slog.DebugContext(ctx, "Ignoring unknown admin command", "command", msg.Command)
		return
	}
	metrics.AdminCommandsTotal.WithLabelValues(msg.Command).Inc()
}

func (d *Dispatcher) listClients(ctx context.Context, id domain.ConnID) {
	snapshot := d.store.Snapshot()
	payload, err := broadcast.Encode(domain.ActionListClients, registry.Listings(snapshot))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode client listing", "error", err)
		return
	}
	d.outbox.SendDirect(id, payload)
	slog.InfoContext(ctx, "Admin listed clients", "clients", len(snapshot))
}

func (d *Dispatcher) sendMessage(ctx context.Context, id domain.ConnID, msg domain.Inbound) {
	key, ok := domain.KeyOf(msg.Server)
	if !ok || len(bytes.TrimSpace(msg.Message)) == 0 {
		slog.DebugContext(ctx, "Ignoring sendMessage without server or message")
		return
	}
	room := domain.RoomKey(key)
	res := d.outbox.SendToRoom(room, msg.Message)
	slog.InfoContext(ctx, "Admin injected message", "room", key, "delivered", res.Delivered, "skipped", res.Skipped)
	d.ack(ctx, id, domain.Ack{Command: domain.CommandSendMessage, Delivered: res.Delivered})
}

var trollPayload = mustEncode(domain.ActionTrollThem, domain.TrollOneShotTag)

func (d *Dispatcher) trollThem(ctx context.Context, id domain.ConnID, msg domain.Inbound) {
	match := func(r domain.Record) bool { return r.Matches(msg.SID, msg.Server) }

	if msg.Tag == domain.TrollOneShotTag {
		targets := d.store.Select(match)
		delivered := 0
		for _, target := range targets {
			if d.outbox.SendDirect(target.ID, trollPayload) {
				delivered++
			}
		}
		slog.InfoContext(ctx, "Admin sent one-shot troll", "sid", string(msg.SID), "matched", len(targets))
		d.ack(ctx, id, domain.Ack{Command: domain.CommandTrollThem, Matched: len(targets), Delivered: delivered})
		return
	}

	// Destructive: matched records lose sid, room and state until their next update.
	affected := d.store.Override(match, domain.ViewOverride(msg.Tag))
	slog.InfoContext(ctx, "Admin set view override", "sid", string(msg.SID), "tag", msg.Tag, "matched", len(affected))
	d.ack(ctx, id, domain.Ack{Command: domain.CommandTrollThem, Matched: len(affected)})
}

func (d *Dispatcher) ack(ctx context.Context, id domain.ConnID, ack domain.Ack) {
	payload, err := broadcast.Encode(domain.ActionAck, ack)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode ack", "error", err)
		return
	}
	d.outbox.SendDirect(id, payload)
}

func mustEncode(action string, data any) []byte {
	b, err := broadcast.Encode(action, data)
	if err != nil {
		panic(err)
	}
	return b
}
