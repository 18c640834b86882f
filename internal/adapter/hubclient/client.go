// Package hubclient speaks the admin side of the relay protocol over one
// WebSocket connection.
package hubclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pscheid92/roomrelay/internal/domain"
	"github.com/pscheid92/roomrelay/internal/platform/retry"
)

// ErrNoReply means the hub stayed silent, which is also how it answers a
// wrong admin key.
var ErrNoReply = errors.New("no reply from hub (wrong admin key?)")

type Client struct {
	conn    *websocket.Conn
	key     string
	timeout time.Duration
}

// Options configures Dial.
type Options struct {
	Key     string
	Timeout time.Duration
	Retry   retry.Policy
}

// Dial connects to the hub, retrying transient failures. A handshake refused
// with a 4xx status is not retried.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: opts.Timeout}

	conn, err := retry.Do(ctx, opts.Retry, retryable, func(ctx context.Context) (*websocket.Conn, error) {
		conn, resp, err := dialer.DialContext(ctx, url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if resp != nil {
				return nil, &HandshakeError{Status: resp.StatusCode, Err: err}
			}
			return nil, err
		}
		return conn, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	return &Client{conn: conn, key: opts.Key, timeout: opts.Timeout}, nil
}

// HandshakeError is a WebSocket upgrade the hub answered with an HTTP status.
type HandshakeError struct {
	Status int
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake rejected with status %d: %v", e.Status, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

func retryable(err error) bool {
	var hs *HandshakeError
	if errors.As(err, &hs) {
		return hs.Status >= http.StatusInternalServerError || hs.Status == http.StatusTooManyRequests
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// List returns the hub's client listing.
func (c *Client) List(ctx context.Context) ([]domain.ClientListing, error) {
	if err := c.send(domain.Inbound{Command: domain.CommandListClients}); err != nil {
		return nil, err
	}
	data, err := c.await(ctx, domain.ActionListClients)
	if err != nil {
		return nil, err
	}

	var listing []domain.ClientListing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	return listing, nil
}

// SendMessage injects message verbatim into room.
func (c *Client) SendMessage(ctx context.Context, room, message json.RawMessage) (domain.Ack, error) {
	err := c.send(domain.Inbound{Command: domain.CommandSendMessage, Server: room, Message: message})
	if err != nil {
		return domain.Ack{}, err
	}
	return c.awaitAck(ctx)
}

// Troll targets every connection reporting sid in room.
func (c *Client) Troll(ctx context.Context, sid, room json.RawMessage, tag string) (domain.Ack, error) {
	err := c.send(domain.Inbound{Command: domain.CommandTrollThem, SID: sid, Server: room, Tag: tag})
	if err != nil {
		return domain.Ack{}, err
	}
	return c.awaitAck(ctx)
}

func (c *Client) send(msg domain.Inbound) error {
	msg.Action = domain.ActionAdmin
	msg.Key = c.key

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.Command, err)
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Command, err)
	}
	return nil
}

func (c *Client) awaitAck(ctx context.Context) (domain.Ack, error) {
	data, err := c.await(ctx, domain.ActionAck)
	if err != nil {
		return domain.Ack{}, err
	}
	var ack domain.Ack
	if err := json.Unmarshal(data, &ack); err != nil {
		return domain.Ack{}, fmt.Errorf("failed to decode ack: %w", err)
	}
	return ack, nil
}

// await reads until a message with the wanted action arrives. Room traffic
// that reaches the admin connection is skipped.
func (c *Client) await(ctx context.Context, action string) (json.RawMessage, error) {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetReadDeadline(deadline)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, ErrNoReply
			}
			return nil, fmt.Errorf("failed to read reply: %w", err)
		}

		var env struct {
			Action string          `json:"action"`
			Data   json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if env.Action == action {
			return env.Data, nil
		}
	}
}

// Value turns a flag argument into a JSON value: valid JSON is kept as is,
// anything else becomes a JSON string.
func Value(arg string) json.RawMessage {
	if arg != "" && json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	b, _ := json.Marshal(arg)
	return b
}
