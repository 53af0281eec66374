// Package device is the access layer between the gamepad session and the
// platform input subsystem. Every call is non-blocking.
package device

import "github.com/pkg/errors"

// MaxSlots is the number of device slots scanned by default.
const MaxSlots = 4

var (
	// ErrNotConnected is returned by Poll when nothing answers on a slot.
	ErrNotConnected = errors.New("device not connected")
	// ErrUnavailable is returned when an on-demand query cannot be answered.
	ErrUnavailable = errors.New("query unavailable")
)

// Button bits, laid out the same way as the XInput wButtons field.
const (
	MaskDpadUp        uint16 = 0x0001
	MaskDpadDown      uint16 = 0x0002
	MaskDpadLeft      uint16 = 0x0004
	MaskDpadRight     uint16 = 0x0008
	MaskStart         uint16 = 0x0010
	MaskBack          uint16 = 0x0020
	MaskLeftThumb     uint16 = 0x0040
	MaskRightThumb    uint16 = 0x0080
	MaskLeftShoulder  uint16 = 0x0100
	MaskRightShoulder uint16 = 0x0200
	MaskA             uint16 = 0x1000
	MaskB             uint16 = 0x2000
	MaskX             uint16 = 0x4000
	MaskY             uint16 = 0x8000
)

// RawState is one device report. Stick Y axes follow the hardware convention
// of the backend; the session takes care of orientation.
type RawState struct {
	PacketNumber uint32
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

// Capabilities describes what a device reports about itself. Analog fields
// hold the resolution maximum of each control, zero when absent.
type Capabilities struct {
	Gamepad       bool   `json:"gamepad"`
	Voice         bool   `json:"voice"`
	ForceFeedback bool   `json:"forceFeedback"`
	Wireless      bool   `json:"wireless"`
	Buttons       uint16 `json:"buttons"`
	LeftTrigger   uint8  `json:"leftTrigger"`
	RightTrigger  uint8  `json:"rightTrigger"`
	ThumbLX       int16  `json:"thumbLX"`
	ThumbLY       int16  `json:"thumbLY"`
	ThumbRX       int16  `json:"thumbRX"`
	ThumbRY       int16  `json:"thumbRY"`
}

// BatteryType is the power source of a device.
type BatteryType int

const (
	BatteryDisconnected BatteryType = iota
	BatteryWired
	BatteryAlkaline
	BatteryNiMH
	BatteryUnknown
)

// BatteryLevel is the coarse charge level reported for battery-powered devices.
type BatteryLevel int

const (
	LevelEmpty BatteryLevel = iota
	LevelLow
	LevelMedium
	LevelFull
)

// Battery is a raw battery report.
type Battery struct {
	Type  BatteryType
	Level BatteryLevel
}

// KeyFlags describes a keystroke transition.
type KeyFlags uint16

const (
	KeyDown   KeyFlags = 0x0001
	KeyUp     KeyFlags = 0x0002
	KeyRepeat KeyFlags = 0x0004
)

// KeyEvent is a buffered button transition. Key holds one of the Mask bits.
type KeyEvent struct {
	Key   uint16
	Flags KeyFlags
	Slot  int
}

// AudioDevices holds headset endpoint identifiers.
type AudioDevices struct {
	Render  string
	Capture string
}

// Device is the contract the session consumes. Implementations are used from
// a single goroutine.
type Device interface {
	Open() error
	Close() error
	MaxSlots() int
	Poll(slot int) (RawState, error)
	// SetVibration is fire-and-forget; a disconnected slot is ignored.
	SetVibration(slot int, left, right uint16)
	Capabilities(slot int) (Capabilities, error)
	Battery(slot int) (Battery, error)
	Keystroke(slot int) (KeyEvent, bool)
	AudioDeviceIDs(slot int) (AudioDevices, error)
}
