package gamepad

import "math"

// Hardware deadzones and thresholds in raw device units.
const (
	LeftThumbDeadzone       int16 = 7849
	RightThumbDeadzone      int16 = 8689
	TriggerThreshold        uint8 = 30
	TriggerDigitalThreshold uint8 = 128
	DefaultDeadzone               = 0.15

	stickMax   = math.MaxInt16
	triggerMax = math.MaxUint8
)

// NormalizeStick converts a raw axis value (-32768..32767) to -1.0..1.0.
// Values inside the deadzone read as 0 and the remaining travel is rescaled
// so the output starts at 0 on the deadzone edge.
func NormalizeStick(raw int16, deadzone int16) float64 {
	v, dz := int32(raw), int32(deadzone)
	if dz < 0 {
		dz = -dz
	}
	if v > -dz && v < dz {
		return 0
	}
	if dz >= stickMax {
		if v < 0 {
			return -1
		}
		return 1
	}

	var n float64
	if v > 0 {
		n = float64(v-dz) / float64(stickMax-dz)
	} else {
		n = float64(v+dz) / float64(stickMax-dz)
	}
	return clamp(n, -1, 1)
}

// NormalizeTrigger converts a raw trigger value to 0.0..1.0. Values below
// threshold read as 0.
func NormalizeTrigger(raw, threshold uint8) float64 {
	if raw < threshold {
		return 0
	}
	if threshold == triggerMax {
		return 1
	}
	return math.Min(1, float64(raw-threshold)/float64(triggerMax-threshold))
}

// ApplyDeadzone zeroes |v| < deadzone and rescales the rest to 0..1,
// keeping the sign. It runs on values already produced by NormalizeStick.
func ApplyDeadzone(v, deadzone float64) float64 {
	if deadzone >= 1 {
		return 0
	}
	if math.Abs(v) < deadzone {
		return 0
	}
	sign := 1.0
	if v < 0 {
		sign = -1
	}
	return clamp(sign*(math.Abs(v)-deadzone)/(1-deadzone), -1, 1)
}

// TriggerPressed reports the digital state of a trigger.
func TriggerPressed(raw, threshold uint8) bool {
	return raw > threshold
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
