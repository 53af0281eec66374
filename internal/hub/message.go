package hub

import (
	"time"

	"github.com/soar/padview/internal/gamepad"
)

// Message types sent to clients.
const (
	TypeFull         = "full"
	TypeDelta        = "delta"
	TypeBattery      = "battery"
	TypeCapabilities = "capabilities"
	TypeAck          = "ack"
	TypeError        = "error"
)

// Command types accepted from clients.
const (
	CmdVibrate       = "vibrate"
	CmdStopVibration = "stop_vibration"
	CmdBattery       = "battery"
	CmdCapabilities  = "capabilities"
)

// WSMessage represents a WebSocket message sent from server to client.
type WSMessage struct {
	Type         string                `json:"type"`
	Seq          int64                 `json:"seq"`
	Timestamp    int64                 `json:"timestamp"` // Unix milliseconds
	Event        string                `json:"event,omitempty"`
	Data         *gamepad.Frame        `json:"data,omitempty"`
	Changes      *gamepad.DeltaChanges `json:"changes,omitempty"`
	Triggered    []gamepad.Button      `json:"triggered,omitempty"`
	Released     []gamepad.Button      `json:"released,omitempty"`
	Battery      *gamepad.BatteryInfo  `json:"battery,omitempty"`
	Capabilities *gamepad.Capabilities `json:"capabilities,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// NewFullMessage creates a "full" message with the complete frame.
func NewFullMessage(seq int64, f *gamepad.Frame) *WSMessage {
	return &WSMessage{
		Type:      TypeFull,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Data:      f,
	}
}

// NewDeltaMessage creates a "delta" message with the changed groups and the
// button edges of the frame.
func NewDeltaMessage(seq int64, changes *gamepad.DeltaChanges, f gamepad.Frame) *WSMessage {
	return &WSMessage{
		Type:      TypeDelta,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Changes:   changes,
		Triggered: f.Triggered,
		Released:  f.Released,
	}
}

func NewBatteryMessage(info gamepad.BatteryInfo) *WSMessage {
	return &WSMessage{
		Type:      TypeBattery,
		Timestamp: time.Now().UnixMilli(),
		Battery:   &info,
	}
}

func NewCapabilitiesMessage(caps gamepad.Capabilities) *WSMessage {
	return &WSMessage{
		Type:         TypeCapabilities,
		Timestamp:    time.Now().UnixMilli(),
		Capabilities: &caps,
	}
}

// NewAckMessage confirms that a command was queued.
func NewAckMessage(cmd string) *WSMessage {
	return &WSMessage{
		Type:      TypeAck,
		Timestamp: time.Now().UnixMilli(),
		Event:     cmd,
	}
}

func NewErrorMessage(cmd, reason string) *WSMessage {
	return &WSMessage{
		Type:      TypeError,
		Timestamp: time.Now().UnixMilli(),
		Event:     cmd,
		Error:     reason,
	}
}

// ClientMessage represents a command sent from the client to the server.
type ClientMessage struct {
	Type       string  `json:"type"`
	Left       float64 `json:"left,omitempty"`
	Right      float64 `json:"right,omitempty"`
	DurationMs int     `json:"durationMs,omitempty"`
}
