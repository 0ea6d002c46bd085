package websocket

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/feira/internal/syncer"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Sessions opens and releases the sync session of the list a client views.
type Sessions interface {
	Open(listID string) *syncer.Session
	Release(listID string)
	SetEditing(listID, itemID string)
}

// inbound is a message sent by the browser.
type inbound struct {
	Type   string `json:"type"`
	ItemID string `json:"item_id,omitempty"`
}

// Client represents a single WebSocket connection. A client with a listID
// holds that list's sync session open while connected.
type Client struct {
	hub      *Hub
	conn     *ws.Conn
	send     chan []byte
	listID   string
	sessions Sessions
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn, listID string, sessions Sessions) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		listID:   listID,
		sessions: sessions,
	}
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	if c.listID != "" && c.sessions != nil {
		c.sessions.Open(c.listID)
		defer c.sessions.Release(c.listID)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump handles editing notifications. It returns on error (connection
// close), which triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	if c.listID == "" || c.sessions == nil {
		return
	}
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	switch msg.Type {
	case "editing":
		c.sessions.SetEditing(c.listID, msg.ItemID)
	case "editing_done":
		c.sessions.SetEditing(c.listID, "")
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
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
