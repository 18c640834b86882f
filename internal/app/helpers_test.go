package app

import (
	"encoding/json"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomrelay/internal/broadcast"
	"github.com/pscheid92/roomrelay/internal/domain"
	"github.com/pscheid92/roomrelay/internal/domain/domaintest"
	"github.com/pscheid92/roomrelay/internal/registry"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "s3cret-admin-key"

type hubFixture struct {
	clock      *clockwork.FakeClock
	reg        *registry.Registry
	engine     *broadcast.Engine
	dispatcher *Dispatcher
}

func newHubFixture(t *testing.T, cfg DispatcherConfig) *hubFixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	reg := registry.New(clock)
	engine := broadcast.NewEngine(reg)
	return &hubFixture{
		clock:      clock,
		reg:        reg,
		engine:     engine,
		dispatcher: NewDispatcher(reg, engine, cfg),
	}
}

func (f *hubFixture) connect() (domain.ConnID, *domaintest.Peer) {
	id := domain.NewConnID()
	peer := domaintest.NewPeer()
	f.reg.Create(id, peer)
	return id, peer
}

func (f *hubFixture) send(t *testing.T, id domain.ConnID, msg string) {
	t.Helper()
	require.NoError(t, f.dispatcher.Handle(t.Context(), id, []byte(msg)))
}

// roomUpdate is the decoded form of an outbound update broadcast.
type roomUpdate struct {
	Action string `json:"action"`
	Data   []struct {
		SID  json.RawMessage `json:"sid"`
		Sync json.RawMessage `json:"sync"`
		Ping json.RawMessage `json:"ping"`
		X2   json.RawMessage `json:"x2"`
		Y2   json.RawMessage `json:"y2"`
	} `json:"data"`
}

func (u roomUpdate) sids() []string {
	out := make([]string, 0, len(u.Data))
	for _, p := range u.Data {
		out = append(out, string(p.SID))
	}
	return out
}

func decodeUpdate(t *testing.T, payload []byte) roomUpdate {
	t.Helper()
	var u roomUpdate
	require.NoError(t, json.Unmarshal(payload, &u))
	require.Equal(t, domain.ActionUpdate, u.Action)
	return u
}
