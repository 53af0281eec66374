package gamepad

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-3
}

func TestNormalizeStick(t *testing.T) {
	tests := []struct {
		name     string
		raw      int16
		deadzone int16
		want     float64
	}{
		{"center", 0, LeftThumbDeadzone, 0},
		{"inside positive", 7848, LeftThumbDeadzone, 0},
		{"inside negative", -7848, LeftThumbDeadzone, 0},
		{"deadzone edge", 7849, LeftThumbDeadzone, 0},
		{"max", math.MaxInt16, LeftThumbDeadzone, 1},
		{"min clamps", math.MinInt16, LeftThumbDeadzone, -1},
		{"partial", 20000, 8000, 0.4845},
		{"partial negative", -20000, 8000, -0.4845},
		{"no deadzone", 16384, 0, 0.5},
		{"saturated deadzone", 32767, 32767, 1},
		{"saturated deadzone negative", -32768, 32767, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeStick(tt.raw, tt.deadzone)
			if !approx(got, tt.want) {
				t.Errorf("NormalizeStick(%d, %d) = %f, want %f", tt.raw, tt.deadzone, got, tt.want)
			}
		})
	}
}

func TestNormalizeStickMonotonic(t *testing.T) {
	prev := -1.0
	for raw := int32(math.MinInt16); raw <= math.MaxInt16; raw += 97 {
		got := NormalizeStick(int16(raw), RightThumbDeadzone)
		if got < -1 || got > 1 {
			t.Fatalf("NormalizeStick(%d) = %f out of range", raw, got)
		}
		if got < prev {
			t.Fatalf("NormalizeStick not monotonic at %d: %f < %f", raw, got, prev)
		}
		prev = got
	}
}

func TestNormalizeTrigger(t *testing.T) {
	tests := []struct {
		raw, threshold uint8
		want           float64
	}{
		{0, TriggerThreshold, 0},
		{29, TriggerThreshold, 0},
		{30, TriggerThreshold, 0},
		{200, TriggerThreshold, 0.7556},
		{255, TriggerThreshold, 1},
		{128, 0, 0.502},
		{255, 255, 1},
		{254, 255, 0},
	}

	for _, tt := range tests {
		got := NormalizeTrigger(tt.raw, tt.threshold)
		if !approx(got, tt.want) {
			t.Errorf("NormalizeTrigger(%d, %d) = %f, want %f", tt.raw, tt.threshold, got, tt.want)
		}
	}
}

func TestTriggerPressed(t *testing.T) {
	if TriggerPressed(128, TriggerDigitalThreshold) {
		t.Error("128 should not be pressed")
	}
	if !TriggerPressed(129, TriggerDigitalThreshold) {
		t.Error("129 should be pressed")
	}
	if !TriggerPressed(200, TriggerDigitalThreshold) {
		t.Error("200 should be pressed")
	}
}

func TestApplyDeadzone(t *testing.T) {
	tests := []struct {
		name string
		v, d float64
		want float64
	}{
		{"zero", 0, 0.15, 0},
		{"inside", 0.1, 0.15, 0},
		{"edge", 0.15, 0.15, 0},
		{"negative edge", -0.15, 0.15, 0},
		{"partial", 0.4845, 0.15, 0.3935},
		{"full", 1, 0.15, 1},
		{"full negative", -1, 0.15, -1},
		{"no deadzone", 0.3, 0, 0.3},
		{"deadzone one", 0.99, 1, 0},
		{"deadzone above one", 1, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyDeadzone(tt.v, tt.d)
			if !approx(got, tt.want) {
				t.Errorf("ApplyDeadzone(%f, %f) = %f, want %f", tt.v, tt.d, got, tt.want)
			}
		})
	}
}

func TestClampNaN(t *testing.T) {
	if got := clamp(math.NaN(), 0, 1); got != 0 {
		t.Errorf("clamp(NaN) = %f, want 0", got)
	}
}
