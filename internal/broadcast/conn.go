package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomrelay/internal/domain"
	"github.com/pscheid92/roomrelay/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

// Conn is the outbound half of one WebSocket client. It implements domain.Peer.
type Conn struct {
	id          domain.ConnID
	connection  *websocket.Conn
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	closed      atomic.Bool
	wg          sync.WaitGroup
}

// NewConn starts the writer goroutine for connection.
func NewConn(id domain.ConnID, connection *websocket.Conn, clock clockwork.Clock) *Conn {
	c := &Conn{
		id:          id,
		connection:  connection,
		clock:       clock,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	c.configurePongHandler()
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *Conn) ID() domain.ConnID {
	return c.id
}

// Send queues data without blocking. A full buffer means the client cannot
// keep up; it is closed and the message dropped.
func (c *Conn) Send(data []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.sendChannel <- data:
		return true
	default:
		metrics.BroadcastSlowClientsEvicted.Inc()
		c.Close()
		return false
	}
}

func (c *Conn) Open() bool {
	return !c.closed.Load()
}

// Close terminates the connection without a close handshake. Idempotent.
func (c *Conn) Close() {
	c.stopOnce.Do(func() {
		c.closed.Store(true)
		close(c.doneChannel)
		_ = c.connection.Close()
	})
}

// CloseGraceful sends a close frame with reason before closing.
func (c *Conn) CloseGraceful(reason string) {
	c.stopOnce.Do(func() {
		c.closed.Store(true)
		close(c.doneChannel)

		// The writer must be gone before we write the close frame.
		c.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		c.updateWriteDeadline()
		_ = c.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = c.connection.Close()
	})
}

// Wait blocks until the writer goroutine has exited.
func (c *Conn) Wait() {
	c.wg.Wait()
}

func (c *Conn) run() {
	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.wg.Done()

	for {
		select {
		case msg := <-c.sendChannel:
			start := c.clock.Now()
			c.updateWriteDeadline()
			if err := c.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
			metrics.WebSocketMessageSendDuration.Observe(c.clock.Since(start).Seconds())
		case <-ticker.Chan():
			c.updateWriteDeadline()
			if err := c.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketPingFailures.Inc()
				c.Close()
				return
			}
		case <-c.doneChannel:
			return
		}
	}
}

func (c *Conn) configurePongHandler() {
	c.updateReadDeadline()
	c.connection.SetPongHandler(func(string) error {
		c.updateReadDeadline()
		return nil
	})
}

// ExtendReadDeadline pushes the read deadline out after inbound traffic.
func (c *Conn) ExtendReadDeadline() {
	c.updateReadDeadline()
}

func (c *Conn) updateWriteDeadline() {
	_ = c.connection.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
}

func (c *Conn) updateReadDeadline() {
	_ = c.connection.SetReadDeadline(c.clock.Now().Add(pongDeadline))
}
