package gamepad

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
)

// VibrationSettings describes one timed dual-motor vibration.
type VibrationSettings struct {
	Left     float64
	Right    float64
	Duration time.Duration
}

// VibrationState is the observable state of a Vibrator.
type VibrationState struct {
	Left      float64
	Right     float64
	Vibrating bool
	EndTime   time.Time
}

// MotorFunc sends raw motor speeds (0..65535) to the device.
type MotorFunc func(left, right uint16)

// Vibrator runs a constant-intensity vibration until its end time passes.
// Expiry is polled through Expire once per frame.
type Vibrator struct {
	motors MotorFunc
	clock  clock.Clock
	state  VibrationState
}

func NewVibrator(motors MotorFunc, clk clock.Clock) *Vibrator {
	return &Vibrator{motors: motors, clock: clk}
}

// Start clamps both intensities to [0,1], commands the motors and arms the
// timer. Negative durations are treated as zero.
func (v *Vibrator) Start(left, right float64, d time.Duration) {
	v.state.Left = clamp(left, 0, 1)
	v.state.Right = clamp(right, 0, 1)
	v.motors(motorSpeed(v.state.Left), motorSpeed(v.state.Right))

	if d < 0 {
		d = 0
	}
	v.state.Vibrating = true
	v.state.EndTime = v.clock.Now().Add(d.Truncate(time.Millisecond))
}

// Expire stops the motors once the end time is reached. It returns true when
// this call stopped a running vibration.
func (v *Vibrator) Expire() bool {
	if !v.state.Vibrating || v.clock.Now().Before(v.state.EndTime) {
		return false
	}
	v.Stop()
	return true
}

// Stop always sends a zero command, whatever the current state.
func (v *Vibrator) Stop() {
	v.motors(0, 0)
	v.state.Vibrating = false
	v.state.Left = 0
	v.state.Right = 0
}

// Reset forgets all state without talking to the device.
func (v *Vibrator) Reset() {
	v.state = VibrationState{}
}

func (v *Vibrator) State() VibrationState { return v.state }

func (v *Vibrator) Vibrating() bool { return v.state.Vibrating }

func motorSpeed(f float64) uint16 {
	return uint16(f * math.MaxUint16)
}
