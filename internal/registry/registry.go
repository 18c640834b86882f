package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomrelay/internal/domain"
)

// Entry is a read-only copy of one registered connection.
type Entry struct {
	ID     domain.ConnID
	Peer   domain.Peer
	Record domain.Record
}

type slot struct {
	seq    uint64
	peer   domain.Peer
	record domain.Record
}

// Registry is the single store of client records. All methods are safe for
// concurrent use and never perform I/O while holding the lock.
type Registry struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	entries map[domain.ConnID]*slot
	nextSeq uint64
}

func New(clock clockwork.Clock) *Registry {
	return &Registry{
		clock:   clock,
		entries: make(map[domain.ConnID]*slot),
	}
}

// Create registers a new connection with an idle record. An existing entry
// with the same id is replaced.
func (r *Registry) Create(id domain.ConnID, peer domain.Peer) {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	r.entries[id] = &slot{seq: r.nextSeq, peer: peer, record: domain.NewRecord(now)}
}

// Update applies a client update. Returns false if the connection is unknown.
func (r *Registry) Update(id domain.ConnID, state domain.PlayerState) bool {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.entries[id]
	if !ok {
		return false
	}
	s.record = s.record.ApplyUpdate(state, now)
	return true
}

// Override applies the destructive override transition to every entry whose
// record satisfies match and returns the updated entries.
func (r *Registry) Override(match func(domain.Record) bool, tag domain.ViewOverride) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Entry
	for id, s := range r.entries {
		if !match(s.record) {
			continue
		}
		s.record = s.record.ApplyOverride(tag)
		out = append(out, entryOf(id, s))
	}
	return out
}

// Remove deletes the entry. Unknown ids are ignored.
func (r *Registry) Remove(id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Get returns a copy of one entry.
func (r *Registry) Get(id domain.ConnID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return entryOf(id, s), true
}

// Snapshot returns copies of all entries in registration order.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	seqs := make(map[domain.ConnID]uint64, len(r.entries))
	for id, s := range r.entries {
		out = append(out, entryOf(id, s))
		seqs[id] = s.seq
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return seqs[out[i].ID] < seqs[out[j].ID] })
	return out
}

// Select returns copies of the entries whose record satisfies match.
func (r *Registry) Select(match func(domain.Record) bool) []Entry {
	var out []Entry
	for _, e := range r.Snapshot() {
		if match(e.Record) {
			out = append(out, e)
		}
	}
	return out
}

// EvictStale removes every entry whose last update is older than threshold
// and returns them. The age check and the removal happen under one lock, so
// an update that lands first keeps its entry.
func (r *Registry) EvictStale(threshold time.Duration) []Entry {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []Entry
	for id, s := range r.entries {
		if s.record.Age(now) > threshold {
			evicted = append(evicted, entryOf(id, s))
			delete(r.entries, id)
		}
	}
	return evicted
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// entryOf copies the slot out; the returned state never aliases the stored one.
func entryOf(id domain.ConnID, s *slot) Entry {
	record := s.record
	record.State = record.State.Clone()
	return Entry{ID: id, Peer: s.peer, Record: record}
}
