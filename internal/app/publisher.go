package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomrelay/internal/broadcast"
	"github.com/pscheid92/roomrelay/internal/domain"
	"github.com/pscheid92/roomrelay/internal/metrics"
	"github.com/pscheid92/roomrelay/internal/registry"
)

const DefaultPublishInterval = 30 * time.Second

// Snapshotter is the read side of the registry.
type Snapshotter interface {
	Snapshot() []registry.Entry
}

// RoomBroadcaster fans a payload out to the members of one room.
type RoomBroadcaster interface {
	BroadcastToMembers(members []registry.Entry, payload []byte) broadcast.Result
}

// Publisher periodically sends every room the full-field aggregate of its
// members. Independent of the sweeper; both tolerate running in any order.
type Publisher struct {
	source   Snapshotter
	out      RoomBroadcaster
	clock    clockwork.Clock
	interval time.Duration
}

func NewPublisher(source Snapshotter, out RoomBroadcaster, clock clockwork.Clock, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = DefaultPublishInterval
	}
	return &Publisher{source: source, out: out, clock: clock, interval: interval}
}

// Run publishes on every tick. It blocks until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.Publish(ctx)
		}
	}
}

// Publish runs one cycle and returns the number of rooms broadcast to. The
// whole cycle works off a single registry snapshot.
func (p *Publisher) Publish(ctx context.Context) int {
	start := p.clock.Now()
	snapshot := p.source.Snapshot()
	rooms := registry.GroupByRoom(snapshot)

	published := 0
	for room, members := range rooms {
		if p.publishRoom(ctx, room, members) {
			published++
		}
	}

	metrics.RegistryClients.Set(float64(len(snapshot)))
	metrics.RegistryRooms.Set(float64(len(rooms)))
	metrics.PublisherCycleDuration.Observe(p.clock.Since(start).Seconds())
	return published
}

func (p *Publisher) publishRoom(ctx context.Context, room domain.RoomKey, members []registry.Entry) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Publisher panic recovered", "room", string(room), "panic", r)
			ok = false
		}
	}()

	payload, err := broadcast.Encode(domain.ActionUpdate, registry.Positions(members))
	if err != nil {
		slog.WarnContext(ctx, "Publisher: encode failed", "room", string(room), "error", err)
		return false
	}

	res := p.out.BroadcastToMembers(members, payload)
	slog.DebugContext(ctx, "Publisher: broadcast room", "room", string(room), "members", len(members), "delivered", res.Delivered, "skipped", res.Skipped)
	return true
}
