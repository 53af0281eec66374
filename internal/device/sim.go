package device

import "sync"

// VibrationCommand records one SetVibration call on a Sim.
type VibrationCommand struct {
	Slot  int
	Left  uint16
	Right uint16
}

type simSlot struct {
	connected bool
	state     RawState
	caps      *Capabilities
	battery   *Battery
	audio     *AudioDevices
	keys      []KeyEvent
}

// Sim is an in-memory device. Slots start disconnected unless plugged in.
// It is safe to drive a Sim from a test goroutine while a session polls it.
type Sim struct {
	mu         sync.Mutex
	slots      []simSlot
	vibrations []VibrationCommand
	opened     bool
}

// NewSim creates a Sim with n slots.
func NewSim(n int) *Sim {
	return &Sim{slots: make([]simSlot, n)}
}

func (s *Sim) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = true
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = false
	return nil
}

func (s *Sim) MaxSlots() int { return len(s.slots) }

// Plug connects slot with a neutral report and a wired, full-featured pad.
func (s *Sim) Plug(slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := &s.slots[slot]
	sl.connected = true
	sl.state = RawState{}
	sl.caps = &Capabilities{
		Gamepad:       true,
		ForceFeedback: true,
		Buttons:       0xF3FF,
		LeftTrigger:   0xFF,
		RightTrigger:  0xFF,
		ThumbLX:       -64,
		ThumbLY:       -64,
		ThumbRX:       -64,
		ThumbRY:       -64,
	}
	sl.battery = &Battery{Type: BatteryWired}
}

// Unplug disconnects slot and drops its pending keystrokes.
func (s *Sim) Unplug(slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot] = simSlot{}
}

// Set replaces the report returned for slot. The packet number is bumped.
func (s *Sim) Set(slot int, st RawState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := &s.slots[slot]
	st.PacketNumber = sl.state.PacketNumber + 1
	sl.state = st
}

// SetBattery overrides the battery report; nil makes the query unavailable.
func (s *Sim) SetBattery(slot int, b *Battery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot].battery = b
}

// SetCapabilities overrides the capability report; nil makes it unavailable.
func (s *Sim) SetCapabilities(slot int, c *Capabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot].caps = c
}

// SetAudio overrides the headset report; nil makes it unavailable.
func (s *Sim) SetAudio(slot int, a *AudioDevices) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot].audio = a
}

// PushKey queues a keystroke on slot.
func (s *Sim) PushKey(slot int, ev KeyEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.Slot = slot
	s.slots[slot].keys = append(s.slots[slot].keys, ev)
}

// Vibrations returns a copy of every SetVibration call so far.
func (s *Sim) Vibrations() []VibrationCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]VibrationCommand(nil), s.vibrations...)
}

func (s *Sim) slot(slot int) (*simSlot, bool) {
	if slot < 0 || slot >= len(s.slots) || !s.slots[slot].connected {
		return nil, false
	}
	return &s.slots[slot], true
}

func (s *Sim) Poll(slot int) (RawState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slot(slot)
	if !ok {
		return RawState{}, ErrNotConnected
	}
	return sl.state, nil
}

func (s *Sim) SetVibration(slot int, left, right uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vibrations = append(s.vibrations, VibrationCommand{Slot: slot, Left: left, Right: right})
}

func (s *Sim) Capabilities(slot int) (Capabilities, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slot(slot)
	if !ok || sl.caps == nil {
		return Capabilities{}, ErrUnavailable
	}
	return *sl.caps, nil
}

func (s *Sim) Battery(slot int) (Battery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slot(slot)
	if !ok || sl.battery == nil {
		return Battery{}, ErrUnavailable
	}
	return *sl.battery, nil
}

func (s *Sim) Keystroke(slot int) (KeyEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slot(slot)
	if !ok || len(sl.keys) == 0 {
		return KeyEvent{}, false
	}
	ev := sl.keys[0]
	sl.keys = sl.keys[1:]
	return ev, true
}

func (s *Sim) AudioDeviceIDs(slot int) (AudioDevices, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slot(slot)
	if !ok || sl.audio == nil {
		return AudioDevices{}, ErrUnavailable
	}
	return *sl.audio, nil
}
