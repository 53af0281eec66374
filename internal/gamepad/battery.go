package gamepad

import (
	"github.com/pkg/errors"

	"github.com/soar/padview/internal/device"
)

// BatteryLevel is the display-oriented battery state.
type BatteryLevel int

const (
	BatteryUnknown BatteryLevel = iota
	BatteryWired
	BatteryEmpty
	BatteryLow
	BatteryMedium
	BatteryFull
)

var batteryLevels = map[BatteryLevel]struct {
	text string
	rank int
}{
	BatteryUnknown: {"Unknown", 0},
	BatteryWired:   {"Wired", 3},
	BatteryEmpty:   {"Empty", 0},
	BatteryLow:     {"Low", 1},
	BatteryMedium:  {"Medium", 2},
	BatteryFull:    {"Full", 3},
}

func (l BatteryLevel) String() string {
	if v, ok := batteryLevels[l]; ok {
		return v.text
	}
	return batteryLevels[BatteryUnknown].text
}

// Rank is the numeric level 0 (empty) to 3 (full). Wired counts as full.
func (l BatteryLevel) Rank() int {
	return batteryLevels[l].rank
}

func (l BatteryLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *BatteryLevel) UnmarshalText(text []byte) error {
	for level, v := range batteryLevels {
		if v.text == string(text) {
			*l = level
			return nil
		}
	}
	return errors.Errorf("unknown battery level %q", text)
}

// BatteryInfo is the result of a battery query. Valid is false when the
// device could not answer.
type BatteryInfo struct {
	Valid bool         `json:"valid"`
	Wired bool         `json:"wired"`
	Level BatteryLevel `json:"level"`
}

// NewBatteryInfo converts a device battery report.
func NewBatteryInfo(b device.Battery) BatteryInfo {
	info := BatteryInfo{Valid: true}
	switch b.Type {
	case device.BatteryWired:
		info.Wired = true
		info.Level = BatteryWired
	case device.BatteryAlkaline, device.BatteryNiMH:
		switch b.Level {
		case device.LevelEmpty:
			info.Level = BatteryEmpty
		case device.LevelLow:
			info.Level = BatteryLow
		case device.LevelMedium:
			info.Level = BatteryMedium
		case device.LevelFull:
			info.Level = BatteryFull
		}
	}
	return info
}

// Capabilities is the result of a capability query.
type Capabilities struct {
	Valid bool `json:"valid"`
	device.Capabilities
}

// Keystroke is the result of a keystroke query. Button is meaningful only
// when Mapped is set.
type Keystroke struct {
	Valid bool
	device.KeyEvent
	Button Button
	Mapped bool
}

// AudioDevices is the result of a headset query.
type AudioDevices struct {
	Valid bool
	device.AudioDevices
}
