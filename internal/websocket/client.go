package websocket

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 32
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	readLimit      = 4096
)

// Client represents a single WebSocket connection.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Run registers the client, writes the messages returned by snapshot, then
// relays broadcasts until the connection closes. The snapshot is taken after
// registration, so anything broadcast meanwhile is queued rather than lost;
// a message may then arrive twice. snapshot may be nil.
func (c *Client) Run(ctx context.Context, snapshot func() []Message) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var initial []Message
	if snapshot != nil {
		initial = snapshot()
	}

	c.conn.SetReadLimit(readLimit)
	go c.writePump(ctx, initial)
	c.readPump(ctx)
}

// readPump discards incoming messages; clients talk to the JSON API. It
// returns when the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *Client) write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, data)
}

// writePump writes the initial messages, then drains the send channel and
// pings periodically to detect stale connections.
func (c *Client) writePump(ctx context.Context, initial []Message) {
	for _, msg := range initial {
		data, err := json.Marshal(msg)
		if err != nil {
			c.hub.logger.Error("marshal initial message", "type", msg.Type, "error", err)
			continue
		}
		if err := c.write(ctx, data); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
