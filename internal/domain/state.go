package domain

import (
	"bytes"
	"encoding/json"
)

// PlayerState is the client-published state. Values are kept as raw JSON and
// forwarded verbatim; absent fields stay absent on the way out.
type PlayerState struct {
	SID    json.RawMessage `json:"sid,omitempty"`
	Server json.RawMessage `json:"server,omitempty"`
	Sync   json.RawMessage `json:"sync,omitempty"`
	Name   json.RawMessage `json:"name,omitempty"`
	Ping   json.RawMessage `json:"ping,omitempty"`
	X2     json.RawMessage `json:"x2,omitempty"`
	Y2     json.RawMessage `json:"y2,omitempty"`
}

// RoomKey is the normalized form of a room id.
type RoomKey string

// KeyOf normalizes a raw JSON value so equal values compare equal regardless
// of formatting. Absent and null values have no key.
func KeyOf(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed), true
	}
	return buf.String(), true
}

// Room returns the room this state belongs to.
func (s PlayerState) Room() (RoomKey, bool) {
	key, ok := KeyOf(s.Server)
	return RoomKey(key), ok
}

// Clone deep-copies the raw values so the copy shares no bytes with s.
func (s PlayerState) Clone() PlayerState {
	return PlayerState{
		SID:    cloneRaw(s.SID),
		Server: cloneRaw(s.Server),
		Sync:   cloneRaw(s.Sync),
		Name:   cloneRaw(s.Name),
		Ping:   cloneRaw(s.Ping),
		X2:     cloneRaw(s.X2),
		Y2:     cloneRaw(s.Y2),
	}
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
