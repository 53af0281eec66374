package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/soar/padview/internal/gamepad"
)

const commandTimeout = time.Second

// CommandSink executes client commands against the controller.
type CommandSink interface {
	StartVibration(left, right float64, d time.Duration)
	StopVibration()
	BatteryInfo(ctx context.Context) (gamepad.BatteryInfo, error)
	Capabilities(ctx context.Context) (gamepad.Capabilities, error)
}

// Client represents a connected WebSocket client.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	log  zerolog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient creates a new Client attached to the hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		log:  hub.log.With().Str("remote", conn.RemoteAddr().String()).Logger(),
		send: make(chan []byte, 256),
	}
}

// enqueue queues msg without blocking. It returns false when the client is
// closed or its buffer is full.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) reply(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error().Err(err).Str("type", msg.Type).Msg("marshal reply")
		return
	}
	c.enqueue(data)
}

// WritePump sends messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// ReadPump reads client commands until the connection fails and hands them
// to sink.
func (c *Client) ReadPump(sink CommandSink) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var cmd ClientMessage
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.log.Warn().Err(err).Msg("bad client message")
			c.reply(NewErrorMessage("", "malformed message"))
			continue
		}
		c.handle(sink, cmd)
	}
}

func (c *Client) handle(sink CommandSink, cmd ClientMessage) {
	switch cmd.Type {
	case CmdVibrate:
		d := time.Duration(cmd.DurationMs) * time.Millisecond
		sink.StartVibration(cmd.Left, cmd.Right, d)
		c.log.Debug().Float64("left", cmd.Left).Float64("right", cmd.Right).Dur("duration", d).Msg("vibrate")
		c.reply(NewAckMessage(cmd.Type))

	case CmdStopVibration:
		sink.StopVibration()
		c.reply(NewAckMessage(cmd.Type))

	case CmdBattery:
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		info, err := sink.BatteryInfo(ctx)
		cancel()
		if err != nil {
			c.reply(NewErrorMessage(cmd.Type, err.Error()))
			return
		}
		c.reply(NewBatteryMessage(info))

	case CmdCapabilities:
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		caps, err := sink.Capabilities(ctx)
		cancel()
		if err != nil {
			c.reply(NewErrorMessage(cmd.Type, err.Error()))
			return
		}
		c.reply(NewCapabilitiesMessage(caps))

	default:
		c.reply(NewErrorMessage(cmd.Type, "unknown command"))
	}
}
