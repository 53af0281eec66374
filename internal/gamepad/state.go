package gamepad

import (
	"math"

	"github.com/pkg/errors"

	"github.com/soar/padview/internal/device"
)

// Button identifies one of the sixteen digital inputs.
type Button int

const (
	ButtonSouth Button = iota // A / Cross
	ButtonEast                // B / Circle
	ButtonWest                // X / Square
	ButtonNorth               // Y / Triangle
	ButtonL1
	ButtonR1
	ButtonL2
	ButtonR2
	ButtonL3
	ButtonR3
	ButtonStart
	ButtonSelect
	DpadUp
	DpadDown
	DpadLeft
	DpadRight

	NumButtons
)

var buttonNames = [NumButtons]string{
	ButtonSouth:  "A",
	ButtonEast:   "B",
	ButtonWest:   "X",
	ButtonNorth:  "Y",
	ButtonL1:     "LB",
	ButtonR1:     "RB",
	ButtonL2:     "LT",
	ButtonR2:     "RT",
	ButtonL3:     "LS",
	ButtonR3:     "RS",
	ButtonStart:  "START",
	ButtonSelect: "BACK",
	DpadUp:       "U",
	DpadDown:     "D",
	DpadLeft:     "L",
	DpadRight:    "R",
}

func (b Button) String() string {
	if b < 0 || b >= NumButtons {
		return "?"
	}
	return buttonNames[b]
}

func (b Button) MarshalText() ([]byte, error) {
	if b < 0 || b >= NumButtons {
		return nil, errors.Errorf("invalid button %d", int(b))
	}
	return []byte(buttonNames[b]), nil
}

func (b *Button) UnmarshalText(text []byte) error {
	for i, name := range buttonNames {
		if name == string(text) {
			*b = Button(i)
			return nil
		}
	}
	return errors.Errorf("unknown button %q", text)
}

type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type StickState struct {
	Position Vector `json:"position"`
	Pressed  bool   `json:"pressed"`
}

type TriggerState struct {
	Value   float64 `json:"value"`
	Pressed bool    `json:"pressed"`
}

// ButtonState holds the face buttons by position plus shoulders and system buttons.
type ButtonState struct {
	South  bool `json:"south"`
	East   bool `json:"east"`
	West   bool `json:"west"`
	North  bool `json:"north"`
	L1     bool `json:"l1"`
	R1     bool `json:"r1"`
	Start  bool `json:"start"`
	Select bool `json:"select"`
}

type DpadState struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

type SticksState struct {
	Left  StickState `json:"left"`
	Right StickState `json:"right"`
}

type TriggersState struct {
	Left  TriggerState `json:"left"`
	Right TriggerState `json:"right"`
}

// GamepadState is the normalized view of one poll. Sticks are in [-1,1] with
// up as positive Y, triggers in [0,1].
type GamepadState struct {
	Connected bool          `json:"connected"`
	Buttons   ButtonState   `json:"buttons"`
	Dpad      DpadState     `json:"dpad"`
	Sticks    SticksState   `json:"sticks"`
	Triggers  TriggersState `json:"triggers"`
}

var buttonFields = [NumButtons]func(*GamepadState) *bool{
	ButtonSouth:  func(s *GamepadState) *bool { return &s.Buttons.South },
	ButtonEast:   func(s *GamepadState) *bool { return &s.Buttons.East },
	ButtonWest:   func(s *GamepadState) *bool { return &s.Buttons.West },
	ButtonNorth:  func(s *GamepadState) *bool { return &s.Buttons.North },
	ButtonL1:     func(s *GamepadState) *bool { return &s.Buttons.L1 },
	ButtonR1:     func(s *GamepadState) *bool { return &s.Buttons.R1 },
	ButtonL2:     func(s *GamepadState) *bool { return &s.Triggers.Left.Pressed },
	ButtonR2:     func(s *GamepadState) *bool { return &s.Triggers.Right.Pressed },
	ButtonL3:     func(s *GamepadState) *bool { return &s.Sticks.Left.Pressed },
	ButtonR3:     func(s *GamepadState) *bool { return &s.Sticks.Right.Pressed },
	ButtonStart:  func(s *GamepadState) *bool { return &s.Buttons.Start },
	ButtonSelect: func(s *GamepadState) *bool { return &s.Buttons.Select },
	DpadUp:       func(s *GamepadState) *bool { return &s.Dpad.Up },
	DpadDown:     func(s *GamepadState) *bool { return &s.Dpad.Down },
	DpadLeft:     func(s *GamepadState) *bool { return &s.Dpad.Left },
	DpadRight:    func(s *GamepadState) *bool { return &s.Dpad.Right },
}

// Button reports the digital state of b.
func (s GamepadState) Button(b Button) bool {
	if b < 0 || b >= NumButtons {
		return false
	}
	return *buttonFields[b](&s)
}

// SetButton sets the digital state of b.
func (s *GamepadState) SetButton(b Button, v bool) {
	if b < 0 || b >= NumButtons {
		return
	}
	*buttonFields[b](s) = v
}

// IsAnyButtonPressed reports whether any of the sixteen digital inputs is down.
func (s GamepadState) IsAnyButtonPressed() bool {
	for b := Button(0); b < NumButtons; b++ {
		if s.Button(b) {
			return true
		}
	}
	return false
}

// bitmaskButtons maps report bits to buttons. L2/R2 come from the trigger
// bytes, not from the bitmask.
var bitmaskButtons = []struct {
	mask   uint16
	button Button
}{
	{device.MaskDpadUp, DpadUp},
	{device.MaskDpadDown, DpadDown},
	{device.MaskDpadLeft, DpadLeft},
	{device.MaskDpadRight, DpadRight},
	{device.MaskA, ButtonSouth},
	{device.MaskB, ButtonEast},
	{device.MaskX, ButtonWest},
	{device.MaskY, ButtonNorth},
	{device.MaskLeftShoulder, ButtonL1},
	{device.MaskRightShoulder, ButtonR1},
	{device.MaskLeftThumb, ButtonL3},
	{device.MaskRightThumb, ButtonR3},
	{device.MaskStart, ButtonStart},
	{device.MaskBack, ButtonSelect},
}

// ButtonForMask returns the button bound to a single report bit.
func ButtonForMask(mask uint16) (Button, bool) {
	for _, bb := range bitmaskButtons {
		if bb.mask == mask {
			return bb.button, true
		}
	}
	return 0, false
}

// Decode builds a connected state from one raw report.
func Decode(raw device.RawState, t Tuning) GamepadState {
	s := GamepadState{Connected: true}

	for _, bb := range bitmaskButtons {
		s.SetButton(bb.button, raw.Buttons&bb.mask != 0)
	}

	s.Triggers.Left.Value = NormalizeTrigger(raw.LeftTrigger, t.TriggerThreshold)
	s.Triggers.Right.Value = NormalizeTrigger(raw.RightTrigger, t.TriggerThreshold)
	s.Triggers.Left.Pressed = TriggerPressed(raw.LeftTrigger, t.TriggerDigitalThreshold)
	s.Triggers.Right.Pressed = TriggerPressed(raw.RightTrigger, t.TriggerDigitalThreshold)

	lx := NormalizeStick(raw.ThumbLX, t.LeftStickDeadzone)
	ly := NormalizeStick(raw.ThumbLY, t.LeftStickDeadzone)
	rx := NormalizeStick(raw.ThumbRX, t.RightStickDeadzone)
	ry := NormalizeStick(raw.ThumbRY, t.RightStickDeadzone)

	s.Sticks.Left.Position = Vector{
		X: ApplyDeadzone(lx, t.SecondaryDeadzone),
		Y: ApplyDeadzone(-ly, t.SecondaryDeadzone),
	}
	s.Sticks.Right.Position = Vector{
		X: ApplyDeadzone(rx, t.SecondaryDeadzone),
		Y: ApplyDeadzone(-ry, t.SecondaryDeadzone),
	}
	return s
}

type DeltaChanges struct {
	Connected *bool          `json:"connected,omitempty"`
	Buttons   *ButtonState   `json:"buttons,omitempty"`
	Dpad      *DpadState     `json:"dpad,omitempty"`
	Sticks    *SticksState   `json:"sticks,omitempty"`
	Triggers  *TriggersState `json:"triggers,omitempty"`
	Vibrating *bool          `json:"vibrating,omitempty"`
	Slot      *int           `json:"slot,omitempty"`
}

func (d *DeltaChanges) IsEmpty() bool {
	return d.Connected == nil &&
		d.Buttons == nil &&
		d.Dpad == nil &&
		d.Sticks == nil &&
		d.Triggers == nil &&
		d.Vibrating == nil &&
		d.Slot == nil
}

const analogThreshold = 0.01

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < analogThreshold
}

// ComputeDelta reports the groups that differ between two frames.
func ComputeDelta(old, new_ Frame) *DeltaChanges {
	d := &DeltaChanges{}
	o, n := old.State, new_.State

	if o.Connected != n.Connected {
		d.Connected = &n.Connected
	}
	if o.Buttons != n.Buttons {
		d.Buttons = &n.Buttons
	}
	if o.Dpad != n.Dpad {
		d.Dpad = &n.Dpad
	}

	if !floatEqual(o.Sticks.Left.Position.X, n.Sticks.Left.Position.X) ||
		!floatEqual(o.Sticks.Left.Position.Y, n.Sticks.Left.Position.Y) ||
		o.Sticks.Left.Pressed != n.Sticks.Left.Pressed ||
		!floatEqual(o.Sticks.Right.Position.X, n.Sticks.Right.Position.X) ||
		!floatEqual(o.Sticks.Right.Position.Y, n.Sticks.Right.Position.Y) ||
		o.Sticks.Right.Pressed != n.Sticks.Right.Pressed {
		d.Sticks = &n.Sticks
	}

	if !floatEqual(o.Triggers.Left.Value, n.Triggers.Left.Value) ||
		!floatEqual(o.Triggers.Right.Value, n.Triggers.Right.Value) ||
		o.Triggers.Left.Pressed != n.Triggers.Left.Pressed ||
		o.Triggers.Right.Pressed != n.Triggers.Right.Pressed {
		d.Triggers = &n.Triggers
	}

	if old.Vibrating != new_.Vibrating {
		d.Vibrating = &new_.Vibrating
	}
	if old.Slot != new_.Slot {
		d.Slot = &new_.Slot
	}
	return d
}
