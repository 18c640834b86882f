package registry

import "github.com/pscheid92/roomrelay/internal/domain"

// GroupByRoom partitions entries by room, keeping input order within each
// room. Entries without a room are skipped.
func GroupByRoom(entries []Entry) map[domain.RoomKey][]Entry {
	rooms := make(map[domain.RoomKey][]Entry)
	for _, e := range entries {
		room, ok := e.Record.Room()
		if !ok {
			continue
		}
		rooms[room] = append(rooms[room], e)
	}
	return rooms
}

// InRoom filters entries down to one room.
func InRoom(entries []Entry, room domain.RoomKey) []Entry {
	var out []Entry
	for _, e := range entries {
		if r, ok := e.Record.Room(); ok && r == room {
			out = append(out, e)
		}
	}
	return out
}

func Summaries(entries []Entry) []domain.PlayerSummary {
	out := make([]domain.PlayerSummary, 0, len(entries))
	for _, e := range entries {
		s := e.Record.State
		out = append(out, domain.PlayerSummary{SID: s.SID, Sync: s.Sync})
	}
	return out
}

func Positions(entries []Entry) []domain.PlayerPosition {
	out := make([]domain.PlayerPosition, 0, len(entries))
	for _, e := range entries {
		s := e.Record.State
		out = append(out, domain.PlayerPosition{SID: s.SID, Sync: s.Sync, Ping: s.Ping, X2: s.X2, Y2: s.Y2})
	}
	return out
}

// Listings projects every entry, including idle and overridden ones.
func Listings(entries []Entry) []domain.ClientListing {
	out := make([]domain.ClientListing, 0, len(entries))
	for _, e := range entries {
		s := e.Record.State
		out = append(out, domain.ClientListing{
			SID:    s.SID,
			Name:   s.Name,
			Server: s.Server,
			Sync:   s.Sync,
			Ping:   s.Ping,
			X2:     s.X2,
			Y2:     s.Y2,
		})
	}
	return out
}
