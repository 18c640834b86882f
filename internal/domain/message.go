package domain

import "encoding/json"

// Inbound actions.
const (
	ActionUpdate = "update"
	ActionAdmin  = "admin"
)

// Outbound actions.
const (
	ActionListClients = "listClients"
	ActionTrollThem   = "trollThem"
	ActionAck         = "ack"
)

// Admin commands.
const (
	CommandListClients = "listClients"
	CommandSendMessage = "sendMessage"
	CommandTrollThem   = "trollThem"
)

// Envelope is the part of an inbound message every action shares.
type Envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Inbound is every message a client may send. Admin fields are empty for
// updates and are only decoded for admin messages.
type Inbound struct {
	Action  string          `json:"action"`
	Data    json.RawMessage `json:"data,omitempty"`
	Key     string          `json:"key,omitempty"`
	Command string          `json:"command,omitempty"`

	// sendMessage / trollThem
	Server  json.RawMessage `json:"server,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
	SID     json.RawMessage `json:"sid,omitempty"`
	Tag     string          `json:"tag,omitempty"`
}

// Outbound is the envelope of every hub-originated message.
type Outbound struct {
	Action string `json:"action"`
	Data   any    `json:"data"`
}

// PlayerSummary is the per-update broadcast projection.
type PlayerSummary struct {
	SID  json.RawMessage `json:"sid,omitempty"`
	Sync json.RawMessage `json:"sync,omitempty"`
}

// PlayerPosition is the periodic broadcast projection.
type PlayerPosition struct {
	SID  json.RawMessage `json:"sid,omitempty"`
	Sync json.RawMessage `json:"sync,omitempty"`
	Ping json.RawMessage `json:"ping,omitempty"`
	X2   json.RawMessage `json:"x2,omitempty"`
	Y2   json.RawMessage `json:"y2,omitempty"`
}

// ClientListing is one row of the admin listClients reply.
type ClientListing struct {
	SID    json.RawMessage `json:"sid,omitempty"`
	Name   json.RawMessage `json:"name,omitempty"`
	Server json.RawMessage `json:"server,omitempty"`
	Sync   json.RawMessage `json:"sync,omitempty"`
	Ping   json.RawMessage `json:"ping,omitempty"`
	X2     json.RawMessage `json:"x2,omitempty"`
	Y2     json.RawMessage `json:"y2,omitempty"`
}

// Ack acknowledges an admin command to its sender.
type Ack struct {
	Command   string `json:"command"`
	Matched   int    `json:"matched"`
	Delivered int    `json:"delivered"`
}
