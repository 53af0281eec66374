package device

import "math"

// AxisTarget names the RawState field an SDL axis feeds.
type AxisTarget int

const (
	AxisLeftX AxisTarget = iota
	AxisLeftY
	AxisRightX
	AxisRightY
	AxisLeftTrigger
	AxisRightTrigger
)

// AxisMapping defines how a raw axis index maps to a RawState field.
type AxisMapping struct {
	Index  int32
	Target AxisTarget
	// Trigger axes only. Zero values mean the axis is a stick.
	RawMin int16
	RawMax int16
}

// ButtonMapping defines how a raw button index maps to a RawState button bit.
type ButtonMapping struct {
	Index int32
	Mask  uint16
}

// DeviceMapping is the SDL layout of one controller family.
type DeviceMapping struct {
	Name    string
	Axes    []AxisMapping
	Buttons []ButtonMapping
	HasHat  bool
}

// ButtonMask returns the bit for a raw button index, or 0 when unmapped.
func (m *DeviceMapping) ButtonMask(index int32) uint16 {
	for _, bm := range m.Buttons {
		if bm.Index == index {
			return bm.Mask
		}
	}
	return 0
}

// Capabilities describes the controls this layout exposes on a joystick with
// the given axis, button and hat counts. Feature flags are left to the backend.
func (m *DeviceMapping) Capabilities(numAxes, numButtons, numHats int32) Capabilities {
	var caps Capabilities
	for _, bm := range m.Buttons {
		if bm.Index < numButtons {
			caps.Buttons |= bm.Mask
		}
	}
	if m.HasHat && numHats > 0 {
		caps.Buttons |= MaskDpadUp | MaskDpadDown | MaskDpadLeft | MaskDpadRight
	}
	for _, am := range m.Axes {
		if am.Index >= numAxes {
			continue
		}
		switch am.Target {
		case AxisLeftX:
			caps.ThumbLX = math.MaxInt16
		case AxisLeftY:
			caps.ThumbLY = math.MaxInt16
		case AxisRightX:
			caps.ThumbRX = math.MaxInt16
		case AxisRightY:
			caps.ThumbRY = math.MaxInt16
		case AxisLeftTrigger:
			caps.LeftTrigger = math.MaxUint8
		case AxisRightTrigger:
			caps.RightTrigger = math.MaxUint8
		}
	}
	return caps
}

// TriggerByte rescales a raw SDL trigger axis into the 0..255 report range.
func TriggerByte(raw, rawMin, rawMax int16) uint8 {
	if rawMax <= rawMin {
		return 0
	}
	v := (int32(raw) - int32(rawMin)) * 255 / (int32(rawMax) - int32(rawMin))
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// Hat bits as reported by SDL.
const (
	hatUp    uint8 = 0x01
	hatRight uint8 = 0x02
	hatDown  uint8 = 0x04
	hatLeft  uint8 = 0x08
)

// HatMask converts an SDL hat value into dpad bits.
func HatMask(hat uint8) uint16 {
	var m uint16
	if hat&hatUp != 0 {
		m |= MaskDpadUp
	}
	if hat&hatDown != 0 {
		m |= MaskDpadDown
	}
	if hat&hatLeft != 0 {
		m |= MaskDpadLeft
	}
	if hat&hatRight != 0 {
		m |= MaskDpadRight
	}
	return m
}

var standardAxes = []AxisMapping{
	{Index: 0, Target: AxisLeftX},
	{Index: 1, Target: AxisLeftY},
	{Index: 2, Target: AxisRightX},
	{Index: 3, Target: AxisRightY},
	{Index: 4, Target: AxisLeftTrigger, RawMin: -32768, RawMax: 32767},
	{Index: 5, Target: AxisRightTrigger, RawMin: -32768, RawMax: 32767},
}

var xboxMapping = &DeviceMapping{
	Name: "xbox",
	Axes: standardAxes,
	Buttons: []ButtonMapping{
		{Index: 0, Mask: MaskA},
		{Index: 1, Mask: MaskB},
		{Index: 2, Mask: MaskX},
		{Index: 3, Mask: MaskY},
		{Index: 4, Mask: MaskLeftShoulder},
		{Index: 5, Mask: MaskRightShoulder},
		{Index: 6, Mask: MaskBack},
		{Index: 7, Mask: MaskStart},
		{Index: 8, Mask: MaskLeftThumb},
		{Index: 9, Mask: MaskRightThumb},
	},
	HasHat: true,
}

var playstationMapping = &DeviceMapping{
	Name: "playstation",
	Axes: standardAxes,
	Buttons: []ButtonMapping{
		{Index: 0, Mask: MaskA}, // Cross
		{Index: 1, Mask: MaskB}, // Circle
		{Index: 2, Mask: MaskX}, // Square
		{Index: 3, Mask: MaskY}, // Triangle
		{Index: 4, Mask: MaskBack},
		{Index: 6, Mask: MaskStart}, // Options
		{Index: 7, Mask: MaskLeftThumb},
		{Index: 8, Mask: MaskRightThumb},
		{Index: 9, Mask: MaskLeftShoulder},
		{Index: 10, Mask: MaskRightShoulder},
	},
	HasHat: true,
}

var switchProMapping = &DeviceMapping{
	Name: "switch_pro",
	Axes: standardAxes[:4],
	Buttons: []ButtonMapping{
		{Index: 0, Mask: MaskA},
		{Index: 1, Mask: MaskB},
		{Index: 2, Mask: MaskX},
		{Index: 3, Mask: MaskY},
		{Index: 4, Mask: MaskLeftShoulder},
		{Index: 5, Mask: MaskRightShoulder},
		{Index: 6, Mask: MaskBack},
		{Index: 7, Mask: MaskStart},
		{Index: 8, Mask: MaskLeftThumb},
		{Index: 9, Mask: MaskRightThumb},
	},
	HasHat: true,
}

var genericMapping = &DeviceMapping{
	Name:    "generic",
	Axes:    standardAxes,
	Buttons: xboxMapping.Buttons,
	HasHat:  true,
}

// deviceKey is a USB vendor/product pair.
type deviceKey struct {
	VendorID  uint16
	ProductID uint16
}

var knownDevices = map[deviceKey]*DeviceMapping{
	// Microsoft
	{0x045E, 0x028E}: xboxMapping, // Xbox 360
	{0x045E, 0x02FF}: xboxMapping, // Xbox One
	{0x045E, 0x0B12}: xboxMapping, // Xbox Series X|S
	{0x045E, 0x0B13}: xboxMapping, // Xbox Series X|S (wireless)
	// Sony
	{0x054C, 0x0CE6}: playstationMapping, // DualSense
	{0x054C, 0x09CC}: playstationMapping, // DualShock 4 v2
	{0x054C, 0x05C4}: playstationMapping, // DualShock 4 v1
	// Nintendo
	{0x057E, 0x2009}: switchProMapping,
}

// GetMapping looks up the layout for a USB vendor/product pair.
// Unknown pads get the generic (Xbox-like) layout.
func GetMapping(vendorID, productID uint16) *DeviceMapping {
	key := deviceKey{VendorID: vendorID, ProductID: productID}
	if m, ok := knownDevices[key]; ok {
		return m
	}
	return genericMapping
}

// LevelFromPercent buckets a charge percentage into the four report levels.
func LevelFromPercent(p int) BatteryLevel {
	switch {
	case p < 10:
		return LevelEmpty
	case p < 40:
		return LevelLow
	case p < 70:
		return LevelMedium
	}
	return LevelFull
}
