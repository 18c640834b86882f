package hubclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomrelay/internal/adapter/httpserver"
	"github.com/pscheid92/roomrelay/internal/app"
	"github.com/pscheid92/roomrelay/internal/broadcast"
	"github.com/pscheid92/roomrelay/internal/platform/config"
	"github.com/pscheid92/roomrelay/internal/platform/retry"
	"github.com/pscheid92/roomrelay/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "hubctl-test-key"

func startHub(t *testing.T) (string, *registry.Registry) {
	t.Helper()
	cfg := &config.Config{
		AppEnv:                  "test",
		MaxWebSocketConnections: 100,
		MaxConnectionsPerIP:     100,
		ConnectionsPerSecond:    1000,
		ConnectionBurst:         1000,
		MaxMessageBytes:         4096,
	}
	clock := clockwork.NewRealClock()
	reg := registry.New(clock)
	engine := broadcast.NewEngine(reg)
	dispatcher := app.NewDispatcher(reg, engine, app.DispatcherConfig{AdminKey: testKey})

	ts := httptest.NewServer(httpserver.NewServer(cfg, clock, reg, dispatcher).Handler())
	t.Cleanup(func() {
		engine.CloseAll("test finished")
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws", reg
}

func countInRooms(reg *registry.Registry) int {
	n := 0
	for _, e := range reg.Snapshot() {
		if _, ok := e.Record.Room(); ok {
			n++
		}
	}
	return n
}

func joinRoom(t *testing.T, url string, reg *registry.Registry, update string) *websocket.Conn {
	t.Helper()
	before := reg.Len()
	inRooms := countInRooms(reg)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return reg.Len() == before+1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(update)))
	require.Eventually(t, func() bool { return countInRooms(reg) == inRooms+1 }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func dial(t *testing.T, url, key string) *Client {
	t.Helper()
	c, err := Dial(t.Context(), url, Options{Key: key, Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_List(t *testing.T) {
	url, reg := startHub(t)
	joinRoom(t, url, reg, `{"action":"update","data":{"sid":7,"server":"r1","name":"neo"}}`)

	listing, err := dial(t, url, testKey).List(t.Context())
	require.NoError(t, err)
	require.Len(t, listing, 2)
	assert.JSONEq(t, `7`, string(listing[0].SID))
	assert.JSONEq(t, `"neo"`, string(listing[0].Name))
}

func TestClient_SendMessage(t *testing.T) {
	url, reg := startHub(t)
	player := joinRoom(t, url, reg, `{"action":"update","data":{"sid":7,"server":"r1"}}`)

	ack, err := dial(t, url, testKey).SendMessage(t.Context(), Value("r1"), Value(`{"action":"notice","data":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, ack.Delivered)

	require.NoError(t, player.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := player.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"notice","data":"hi"}`, string(data))
}

func TestClient_TrollOneShot(t *testing.T) {
	url, reg := startHub(t)
	player := joinRoom(t, url, reg, `{"action":"update","data":{"sid":7,"server":"r1"}}`)

	ack, err := dial(t, url, testKey).Troll(t.Context(), Value("7"), Value("r1"), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, ack.Matched)
	assert.Equal(t, 1, ack.Delivered)

	require.NoError(t, player.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := player.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"trollThem","data":"a"}`, string(data))
}

func TestClient_WrongKeyTimesOut(t *testing.T) {
	url, _ := startHub(t)
	c, err := Dial(t.Context(), url, Options{Key: "wrong", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.List(t.Context())
	assert.ErrorIs(t, err, ErrNoReply)
}

func TestDial_ForbiddenIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := Dial(t.Context(), "ws"+strings.TrimPrefix(ts.URL, "http"), Options{
		Retry: retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	})

	var hs *HandshakeError
	require.ErrorAs(t, err, &hs)
	assert.Equal(t, http.StatusForbidden, hs.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDial_UnavailableIsRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := Dial(t.Context(), "ws"+strings.TrimPrefix(ts.URL, "http"), Options{
		Retry: retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"7", `7`},
		{"r1", `"r1"`},
		{`"7"`, `"7"`},
		{`{"a":1}`, `{"a":1}`},
		{"", `""`},
		{"true", `true`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, json.RawMessage(tt.want), Value(tt.in))
		})
	}
}
