package gamepad

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/soar/padview/internal/device"
)

// Tuning holds the deadzones and thresholds used to decode reports.
type Tuning struct {
	LeftStickDeadzone       int16
	RightStickDeadzone      int16
	TriggerThreshold        uint8
	TriggerDigitalThreshold uint8
	SecondaryDeadzone       float64
}

func DefaultTuning() Tuning {
	return Tuning{
		LeftStickDeadzone:       LeftThumbDeadzone,
		RightStickDeadzone:      RightThumbDeadzone,
		TriggerThreshold:        TriggerThreshold,
		TriggerDigitalThreshold: TriggerDigitalThreshold,
		SecondaryDeadzone:       DefaultDeadzone,
	}
}

// sanitize coerces out-of-range values instead of rejecting them.
func (t Tuning) sanitize() Tuning {
	if t.LeftStickDeadzone < 0 {
		t.LeftStickDeadzone = 0
	}
	if t.RightStickDeadzone < 0 {
		t.RightStickDeadzone = 0
	}
	if math.IsNaN(t.SecondaryDeadzone) || t.SecondaryDeadzone < 0 {
		t.SecondaryDeadzone = 0
	}
	return t
}

// Session owns one logical gamepad: the bound device slot, the current and
// previous decoded states, and the vibration timer. A Session is not safe for
// concurrent use; drive it from one goroutine (see Runner).
type Session struct {
	dev    device.Device
	clock  clock.Clock
	tuning Tuning
	log    zerolog.Logger

	slot     int
	current  GamepadState
	previous GamepadState
	vib      *Vibrator
}

type Option func(*Session)

// WithClock replaces the monotonic clock used for vibration timing.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithTuning(t Tuning) Option {
	return func(s *Session) { s.tuning = t.sanitize() }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

func NewSession(dev device.Device, opts ...Option) *Session {
	s := &Session{
		dev:    dev,
		clock:  clock.New(),
		tuning: DefaultTuning(),
		log:    log.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.vib = NewVibrator(func(left, right uint16) {
		s.dev.SetVibration(s.slot, left, right)
	}, s.clock)
	return s
}

// Initialize resets the session and binds the first slot that answers.
// It returns false when no device is connected; Update keeps looking.
func (s *Session) Initialize() bool {
	s.slot = 0
	s.current = GamepadState{}
	s.previous = GamepadState{}
	s.vib.Reset()

	if _, slot, ok := s.scan(); ok {
		s.slot = slot
		s.log.Info().Int("slot", slot).Msg("controller bound")
		return true
	}
	s.log.Info().Msg("no controller found")
	return false
}

// Finalize stops vibration and clears both snapshots.
func (s *Session) Finalize() {
	s.vib.Stop()
	s.vib.Reset()
	s.current = GamepadState{}
	s.previous = GamepadState{}
}

// Update runs one frame: shift current into previous, poll, decode and
// check vibration expiry. When nothing answers only the connected flag of
// current changes.
func (s *Session) Update() {
	s.previous = s.current

	raw, ok := s.poll()
	if !ok {
		if s.previous.Connected {
			s.log.Warn().Int("slot", s.slot).Msg("controller disconnected")
		}
		s.current.Connected = false
	} else {
		s.current = Decode(raw, s.tuning)
	}

	if s.vib.Expire() {
		s.log.Debug().Msg("vibration finished")
	}
}

func (s *Session) poll() (device.RawState, bool) {
	raw, err := s.dev.Poll(s.slot)
	if err == nil {
		return raw, true
	}
	raw, slot, ok := s.scan()
	if !ok {
		return device.RawState{}, false
	}
	if slot != s.slot || !s.previous.Connected {
		s.log.Info().Int("from", s.slot).Int("slot", slot).Msg("controller bound")
	}
	s.slot = slot
	return raw, true
}

func (s *Session) scan() (device.RawState, int, bool) {
	for i := 0; i < s.dev.MaxSlots(); i++ {
		if raw, err := s.dev.Poll(i); err == nil {
			return raw, i, true
		}
	}
	return device.RawState{}, 0, false
}

// SetTuning replaces the decoding parameters from the next Update on.
func (s *Session) SetTuning(t Tuning) {
	s.tuning = t.sanitize()
}

func (s *Session) Tuning() Tuning { return s.tuning }

func (s *Session) Current() GamepadState  { return s.current }
func (s *Session) Previous() GamepadState { return s.previous }
func (s *Session) Slot() int              { return s.slot }
func (s *Session) IsConnected() bool      { return s.current.Connected }

// IsPressed reports whether b is held this frame.
func (s *Session) IsPressed(b Button) bool {
	return s.current.Button(b)
}

// IsTriggered reports whether b went down this frame.
func (s *Session) IsTriggered(b Button) bool {
	return s.current.Button(b) && !s.previous.Button(b)
}

// IsReleased reports whether b went up this frame.
func (s *Session) IsReleased(b Button) bool {
	return !s.current.Button(b) && s.previous.Button(b)
}

func (s *Session) IsAnyButtonPressed() bool {
	return s.current.IsAnyButtonPressed()
}

// Triggered lists every button that went down this frame, in Button order.
func (s *Session) Triggered() []Button {
	return s.edges(s.IsTriggered)
}

// Released lists every button that went up this frame, in Button order.
func (s *Session) Released() []Button {
	return s.edges(s.IsReleased)
}

func (s *Session) edges(fn func(Button) bool) []Button {
	var out []Button
	for b := Button(0); b < NumButtons; b++ {
		if fn(b) {
			out = append(out, b)
		}
	}
	return out
}

func (s *Session) LeftStickX() float64   { return s.current.Sticks.Left.Position.X }
func (s *Session) LeftStickY() float64   { return s.current.Sticks.Left.Position.Y }
func (s *Session) RightStickX() float64  { return s.current.Sticks.Right.Position.X }
func (s *Session) RightStickY() float64  { return s.current.Sticks.Right.Position.Y }
func (s *Session) LeftTrigger() float64  { return s.current.Triggers.Left.Value }
func (s *Session) RightTrigger() float64 { return s.current.Triggers.Right.Value }

func (s *Session) IsVibrating() bool { return s.vib.Vibrating() }

func (s *Session) Vibration() VibrationState { return s.vib.State() }

// StartVibration runs both motors at intensity for d.
func (s *Session) StartVibration(intensity float64, d time.Duration) {
	s.StartVibrationEx(intensity, intensity, d)
}

// StartVibrationEx runs the left (low frequency) and right (high frequency)
// motors independently for d.
func (s *Session) StartVibrationEx(left, right float64, d time.Duration) {
	s.vib.Start(left, right, d)
}

func (s *Session) StartVibrationSettings(v VibrationSettings) {
	s.vib.Start(v.Left, v.Right, v.Duration)
}

func (s *Session) StopVibration() {
	s.vib.Stop()
}

// BatteryInfo queries the bound slot. Valid is false if the query failed.
func (s *Session) BatteryInfo() BatteryInfo {
	b, err := s.dev.Battery(s.slot)
	if err != nil {
		return BatteryInfo{}
	}
	return NewBatteryInfo(b)
}

// Capabilities queries the bound slot. Valid is false if the query failed.
func (s *Session) Capabilities() Capabilities {
	c, err := s.dev.Capabilities(s.slot)
	if err != nil {
		return Capabilities{}
	}
	return Capabilities{Valid: true, Capabilities: c}
}

// Keystroke pops the next buffered button transition of the bound slot.
func (s *Session) Keystroke() Keystroke {
	ev, ok := s.dev.Keystroke(s.slot)
	if !ok {
		return Keystroke{}
	}
	b, mapped := ButtonForMask(ev.Key)
	return Keystroke{Valid: true, KeyEvent: ev, Button: b, Mapped: mapped}
}

// AudioDeviceIDs returns the headset endpoints of the bound slot.
func (s *Session) AudioDeviceIDs() AudioDevices {
	a, err := s.dev.AudioDeviceIDs(s.slot)
	if err != nil {
		return AudioDevices{}
	}
	return AudioDevices{Valid: true, AudioDevices: a}
}
