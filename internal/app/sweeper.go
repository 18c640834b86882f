package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomrelay/internal/metrics"
	"github.com/pscheid92/roomrelay/internal/registry"
)

const (
	DefaultSweepInterval = 30 * time.Second
	DefaultStaleAfter    = 5 * time.Minute
)

// Evictor removes stale entries from the registry.
type Evictor interface {
	EvictStale(threshold time.Duration) []registry.Entry
	Len() int
}

// Sweeper periodically evicts connections that have not sent an update
// within the staleness threshold and force-closes them.
type Sweeper struct {
	store      Evictor
	clock      clockwork.Clock
	interval   time.Duration
	staleAfter time.Duration
}

func NewSweeper(store Evictor, clock clockwork.Clock, interval, staleAfter time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Sweeper{store: store, clock: clock, interval: interval, staleAfter: staleAfter}
}

// Run sweeps on every tick. It blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one eviction cycle and returns the number of evicted connections.
func (s *Sweeper) Sweep(ctx context.Context) (removed int) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Sweeper panic recovered", "panic", r)
		}
	}()

	evicted := s.store.EvictStale(s.staleAfter)
	for _, entry := range evicted {
		slog.DebugContext(ctx, "Evicting inactive client",
			"conn_id", entry.ID.String(),
			"sid", string(entry.Record.State.SID),
			"server", string(entry.Record.State.Server),
			"age", entry.Record.Age(s.clock.Now()),
		)
		closePeer(ctx, entry)
		removed++
	}

	metrics.SweeperRunsTotal.Inc()
	metrics.SweeperEvictionsTotal.Add(float64(removed))
	metrics.RegistryClients.Set(float64(s.store.Len()))

	if removed > 0 {
		slog.InfoContext(ctx, "Removed stale clients", "count", removed, "remaining", s.store.Len())
	}
	return removed
}

// closePeer terminates the connection. A panicking peer does not abort the sweep.
func closePeer(ctx context.Context, entry registry.Entry) {
	defer func() {
		if r := recover(); r != nil {
			slog.WarnContext(ctx, "Error terminating socket", "conn_id", entry.ID.String(), "panic", r)
		}
	}()
	if entry.Peer != nil {
		entry.Peer.Close()
	}
}
