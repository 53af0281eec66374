package gamepad

import (
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/soar/padview/internal/device"
)

func newTestSession(t *testing.T) (*Session, *device.Sim, *clock.Mock) {
	t.Helper()
	sim := device.NewSim(device.MaxSlots)
	mock := clock.NewMock()
	s := NewSession(sim, WithClock(mock), WithLogger(zerolog.New(io.Discard)))
	return s, sim, mock
}

func TestSessionInitialize(t *testing.T) {
	s, sim, _ := newTestSession(t)

	if s.Initialize() {
		t.Fatal("Initialize should fail without a controller")
	}
	if s.Slot() != 0 || s.IsConnected() {
		t.Fatalf("slot=%d connected=%v", s.Slot(), s.IsConnected())
	}

	sim.Plug(2)
	if !s.Initialize() {
		t.Fatal("Initialize should find slot 2")
	}
	if s.Slot() != 2 {
		t.Errorf("slot = %d, want 2", s.Slot())
	}
	if s.IsConnected() {
		t.Error("connected must stay false until the first Update")
	}
	if len(sim.Vibrations()) != 0 {
		t.Error("Initialize must not send a vibration command")
	}
}

func TestSessionEdges(t *testing.T) {
	s, sim, _ := newTestSession(t)
	sim.Plug(0)
	s.Initialize()

	sim.Set(0, device.RawState{Buttons: device.MaskA})
	s.Update()
	if !s.IsPressed(ButtonSouth) || !s.IsTriggered(ButtonSouth) || s.IsReleased(ButtonSouth) {
		t.Fatal("frame 1: expected A pressed and triggered")
	}
	if got := s.Triggered(); len(got) != 1 || got[0] != ButtonSouth {
		t.Errorf("Triggered() = %v", got)
	}

	s.Update()
	if !s.IsPressed(ButtonSouth) || s.IsTriggered(ButtonSouth) {
		t.Fatal("frame 2: expected A held without edge")
	}

	sim.Set(0, device.RawState{})
	s.Update()
	if s.IsPressed(ButtonSouth) || !s.IsReleased(ButtonSouth) {
		t.Fatal("frame 3: expected A released")
	}
	if got := s.Released(); len(got) != 1 || got[0] != ButtonSouth {
		t.Errorf("Released() = %v", got)
	}
}

func TestSessionTriggerEdge(t *testing.T) {
	s, sim, _ := newTestSession(t)
	sim.Plug(0)
	s.Initialize()

	s.Update()
	sim.Set(0, device.RawState{RightTrigger: 255})
	s.Update()
	if !s.IsTriggered(ButtonR2) {
		t.Error("expected R2 triggered from trigger byte")
	}
	if !approx(s.RightTrigger(), 1) {
		t.Errorf("RightTrigger = %f", s.RightTrigger())
	}
}

func TestSessionDisconnectKeepsLastState(t *testing.T) {
	s, sim, _ := newTestSession(t)
	sim.Plug(0)
	s.Initialize()

	sim.Set(0, device.RawState{Buttons: device.MaskB, ThumbLX: 32767})
	s.Update()
	sim.Unplug(0)
	s.Update()

	if s.IsConnected() {
		t.Fatal("expected disconnected")
	}
	if !s.Previous().Connected {
		t.Error("previous should hold the last connected snapshot")
	}
	cur := s.Current()
	if !cur.Buttons.East || !approx(cur.Sticks.Left.Position.X, 1) {
		t.Errorf("current lost its last known fields: %+v", cur)
	}
	if s.IsTriggered(ButtonEast) || s.IsReleased(ButtonEast) {
		t.Error("disconnect must not produce edges")
	}
}

func TestSessionRebindsOnSameUpdate(t *testing.T) {
	s, sim, _ := newTestSession(t)
	sim.Plug(0)
	s.Initialize()
	s.Update()

	sim.Unplug(0)
	sim.Plug(3)
	sim.Set(3, device.RawState{Buttons: device.MaskY})
	s.Update()

	if !s.IsConnected() || s.Slot() != 3 {
		t.Fatalf("connected=%v slot=%d, want true/3", s.IsConnected(), s.Slot())
	}
	if !s.IsTriggered(ButtonNorth) {
		t.Error("expected Y triggered on the rebinding frame")
	}
}

func TestSessionVibrationLifecycle(t *testing.T) {
	s, sim, mock := newTestSession(t)
	sim.Plug(1)
	s.Initialize()

	s.StartVibration(1, 500*time.Millisecond)
	if !s.IsVibrating() {
		t.Fatal("expected vibrating")
	}
	cmds := sim.Vibrations()
	if len(cmds) != 1 || cmds[0] != (device.VibrationCommand{Slot: 1, Left: 65535, Right: 65535}) {
		t.Fatalf("commands = %+v", cmds)
	}

	mock.Add(499 * time.Millisecond)
	s.Update()
	if !s.IsVibrating() {
		t.Fatal("stopped early")
	}

	mock.Add(time.Millisecond)
	s.Update()
	if s.IsVibrating() {
		t.Fatal("expected vibration to expire")
	}
	cmds = sim.Vibrations()
	if last := cmds[len(cmds)-1]; last != (device.VibrationCommand{Slot: 1}) {
		t.Errorf("last command = %+v, want zero on slot 1", last)
	}
}

func TestSessionVibrationSettings(t *testing.T) {
	s, sim, _ := newTestSession(t)
	sim.Plug(0)
	s.Initialize()

	s.StartVibrationSettings(VibrationSettings{Left: 0.3, Right: 0.6, Duration: 300 * time.Millisecond})
	v := s.Vibration()
	if !v.Vibrating || v.Left != 0.3 || v.Right != 0.6 {
		t.Errorf("vibration = %+v", v)
	}

	s.StopVibration()
	if s.IsVibrating() {
		t.Error("expected stopped")
	}
}

func TestSessionFinalize(t *testing.T) {
	s, sim, _ := newTestSession(t)
	sim.Plug(0)
	s.Initialize()
	sim.Set(0, device.RawState{Buttons: device.MaskA})
	s.Update()
	s.StartVibrationEx(1, 0, time.Second)

	s.Finalize()
	if s.IsVibrating() || s.IsConnected() || s.Previous().Connected {
		t.Error("Finalize should clear state and vibration")
	}
	cmds := sim.Vibrations()
	if last := cmds[len(cmds)-1]; last.Left != 0 || last.Right != 0 {
		t.Errorf("last command = %+v, want zero", last)
	}

	n := len(sim.Vibrations())
	s.Finalize()
	if got := len(sim.Vibrations()); got != n+1 {
		t.Errorf("second Finalize sent %d commands, want 1", got-n)
	}
}

func TestSessionPassthroughs(t *testing.T) {
	s, sim, _ := newTestSession(t)

	if s.BatteryInfo().Valid || s.Capabilities().Valid || s.Keystroke().Valid || s.AudioDeviceIDs().Valid {
		t.Fatal("queries on an empty slot must be invalid")
	}

	sim.Plug(0)
	s.Initialize()

	if b := s.BatteryInfo(); !b.Valid || !b.Wired || b.Level != BatteryWired {
		t.Errorf("BatteryInfo = %+v", b)
	}
	sim.SetBattery(0, &device.Battery{Type: device.BatteryNiMH, Level: device.LevelLow})
	if b := s.BatteryInfo(); !b.Valid || b.Wired || b.Level != BatteryLow {
		t.Errorf("BatteryInfo = %+v", b)
	}

	if c := s.Capabilities(); !c.Valid || !c.ForceFeedback {
		t.Errorf("Capabilities = %+v", c)
	}

	sim.SetAudio(0, &device.AudioDevices{Render: "out", Capture: "in"})
	if a := s.AudioDeviceIDs(); !a.Valid || a.Render != "out" || a.Capture != "in" {
		t.Errorf("AudioDeviceIDs = %+v", a)
	}

	sim.PushKey(0, device.KeyEvent{Key: device.MaskX, Flags: device.KeyDown})
	sim.PushKey(0, device.KeyEvent{Key: 0x0400, Flags: device.KeyUp})
	k := s.Keystroke()
	if !k.Valid || !k.Mapped || k.Button != ButtonWest || k.Flags != device.KeyDown {
		t.Errorf("Keystroke = %+v", k)
	}
	k = s.Keystroke()
	if !k.Valid || k.Mapped {
		t.Errorf("unmapped Keystroke = %+v", k)
	}
	if s.Keystroke().Valid {
		t.Error("queue should be empty")
	}
}

func TestSessionQueriesKeepVibration(t *testing.T) {
	s, sim, mock := newTestSession(t)
	sim.Plug(0)
	s.Initialize()
	s.Update()

	s.StartVibration(1, 500*time.Millisecond)
	sent := len(sim.Vibrations())

	if caps := s.Capabilities(); !caps.Valid || !caps.ForceFeedback {
		t.Fatalf("capabilities = %+v", caps)
	}
	if info := s.BatteryInfo(); !info.Valid {
		t.Fatalf("battery = %+v", info)
	}
	if got := len(sim.Vibrations()); got != sent {
		t.Fatalf("queries sent %d motor commands", got-sent)
	}

	mock.Add(100 * time.Millisecond)
	s.Update()
	if !s.IsVibrating() {
		t.Error("vibration should still be running after queries")
	}
}

func TestSessionTuning(t *testing.T) {
	s, sim, _ := newTestSession(t)
	sim.Plug(0)
	s.Initialize()

	sim.Set(0, device.RawState{ThumbLX: 5000})
	s.Update()
	if s.LeftStickX() != 0 {
		t.Fatalf("5000 should sit inside the default deadzone, got %f", s.LeftStickX())
	}

	tuning := DefaultTuning()
	tuning.LeftStickDeadzone = -10
	tuning.SecondaryDeadzone = 0
	s.SetTuning(tuning)
	if s.Tuning().LeftStickDeadzone != 0 {
		t.Errorf("negative deadzone not coerced: %+v", s.Tuning())
	}
	s.Update()
	if s.LeftStickX() <= 0 {
		t.Errorf("LeftStickX = %f, want positive", s.LeftStickX())
	}
}
