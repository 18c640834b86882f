package domain

import (
	"encoding/json"
	"time"
)

// Phase is the lifecycle position of a client record.
type Phase int

const (
	// PhaseIdle: connection accepted, no update received yet.
	PhaseIdle Phase = iota
	// PhaseActive: the last mutation was a client update.
	PhaseActive
	// PhaseOverridden: an admin override replaced the record and dropped its state.
	PhaseOverridden
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseOverridden:
		return "overridden"
	default:
		return "unknown"
	}
}

// ViewOverride selects a synthetic broadcast payload for a recipient.
type ViewOverride string

const (
	ViewNone       ViewOverride = ""
	ViewAllClear   ViewOverride = "b"
	ViewAllFlagged ViewOverride = "c"
)

// TrollOneShotTag asks for a single tagged message instead of a stored override.
const TrollOneShotTag = "a"

// Record is the stored per-connection state. Transitions return new values;
// a Record is never mutated in place.
type Record struct {
	Phase       Phase
	State       PlayerState
	View        ViewOverride
	LastUpdated time.Time
}

// NewRecord is the record of a freshly accepted connection.
func NewRecord(now time.Time) Record {
	return Record{Phase: PhaseIdle, LastUpdated: now}
}

// ApplyUpdate replaces every state field and refreshes LastUpdated. The view
// override survives.
func (r Record) ApplyUpdate(state PlayerState, now time.Time) Record {
	return Record{
		Phase:       PhaseActive,
		State:       state.Clone(),
		View:        r.View,
		LastUpdated: now,
	}
}

// ApplyOverride sets the view override and drops sid, room and all other
// state. The client disappears from room aggregation until its next update.
// LastUpdated is kept so the record still ages out.
func (r Record) ApplyOverride(tag ViewOverride) Record {
	return Record{
		Phase:       PhaseOverridden,
		View:        tag,
		LastUpdated: r.LastUpdated,
	}
}

// Room returns the record's room, if any.
func (r Record) Room() (RoomKey, bool) {
	if r.Phase != PhaseActive {
		return "", false
	}
	return r.State.Room()
}

// Matches reports whether the record carries the given sid and room.
func (r Record) Matches(sid, room json.RawMessage) bool {
	if r.Phase != PhaseActive {
		return false
	}
	wantSID, ok := KeyOf(sid)
	if !ok {
		return false
	}
	gotSID, ok := KeyOf(r.State.SID)
	if !ok || gotSID != wantSID {
		return false
	}
	wantRoom, ok := KeyOf(room)
	if !ok {
		return false
	}
	gotRoom, ok := r.Room()
	return ok && string(gotRoom) == wantRoom
}

// Age is the time since the last update.
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.LastUpdated)
}
