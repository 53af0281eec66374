// Package sdl is the SDL3 joystick backend. Importing it loads the SDL3
// shared library at init.
package sdl

import (
	"fmt"
	"math"

	"github.com/jupiterrider/purego-sdl3/sdl"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/soar/padview/internal/device"
)

// maxQueuedKeys bounds the per-slot keystroke buffer.
const maxQueuedKeys = 32

type joystickInfo struct {
	joystick *sdl.Joystick
	mapping  *device.DeviceMapping
	name     string
	id       sdl.JoystickID
	keys     []device.KeyEvent
}

// Device reads gamepads through the SDL3 joystick API. Joysticks are assigned
// to the first free slot when they appear and released when they go away.
// All methods must run on the goroutine that called Open.
type Device struct {
	slots  [device.MaxSlots]*joystickInfo
	packet uint32
	log    zerolog.Logger
}

func New() *Device {
	return &Device{log: log.With().Str("component", "sdl").Logger()}
}

// Open initializes the SDL joystick subsystem and opens connected devices.
func (d *Device) Open() error {
	if !sdl.Init(sdl.InitJoystick) {
		return errors.Errorf("SDL init failed: %s", sdl.GetError())
	}
	d.log.Info().Msg("SDL3 joystick subsystem initialized")

	for _, id := range sdl.GetJoysticks() {
		d.openJoystick(id)
	}
	return nil
}

// Close releases every joystick and shuts SDL down.
func (d *Device) Close() error {
	for i, info := range d.slots {
		if info != nil {
			sdl.CloseJoystick(info.joystick)
			d.slots[i] = nil
		}
	}
	sdl.Quit()
	return nil
}

func (d *Device) MaxSlots() int { return device.MaxSlots }

func (d *Device) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			d.openJoystick(event.JDevice().Which)

		case sdl.EventJoystickRemoved:
			d.removeJoystick(event.JDevice().Which)

		case sdl.EventJoystickButtonDown:
			be := event.JButton()
			d.queueKey(be.Which, int32(be.Button), device.KeyDown)

		case sdl.EventJoystickButtonUp:
			be := event.JButton()
			d.queueKey(be.Which, int32(be.Button), device.KeyUp)
		}
	}
}

func (d *Device) slotOf(id sdl.JoystickID) int {
	for i, info := range d.slots {
		if info != nil && info.id == id {
			return i
		}
	}
	return -1
}

func (d *Device) openJoystick(instanceID sdl.JoystickID) {
	if d.slotOf(instanceID) >= 0 {
		return
	}
	slot := -1
	for i, info := range d.slots {
		if info == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		d.log.Warn().Uint32("id", uint32(instanceID)).Msg("all slots in use, ignoring joystick")
		return
	}

	js := sdl.OpenJoystick(instanceID)
	if js == nil {
		d.log.Error().Uint32("id", uint32(instanceID)).Str("err", sdl.GetError()).Msg("failed to open joystick")
		return
	}

	vendorID := sdl.GetJoystickVendor(js)
	productID := sdl.GetJoystickProduct(js)
	info := &joystickInfo{
		joystick: js,
		mapping:  device.GetMapping(vendorID, productID),
		name:     sdl.GetJoystickName(js),
		id:       sdl.GetJoystickID(js),
	}
	d.slots[slot] = info

	d.log.Info().
		Int("slot", slot).
		Str("name", info.name).
		Str("vid", fmt.Sprintf("%04X", vendorID)).
		Str("pid", fmt.Sprintf("%04X", productID)).
		Str("mapping", info.mapping.Name).
		Int32("axes", sdl.GetNumJoystickAxes(js)).
		Int32("buttons", sdl.GetNumJoystickButtons(js)).
		Int32("hats", sdl.GetNumJoystickHats(js)).
		Msg("joystick connected")
}

func (d *Device) removeJoystick(instanceID sdl.JoystickID) {
	slot := d.slotOf(instanceID)
	if slot < 0 {
		return
	}
	info := d.slots[slot]
	d.log.Info().Int("slot", slot).Str("name", info.name).Msg("joystick disconnected")
	sdl.CloseJoystick(info.joystick)
	d.slots[slot] = nil
}

func (d *Device) queueKey(id sdl.JoystickID, button int32, flags device.KeyFlags) {
	slot := d.slotOf(id)
	if slot < 0 {
		return
	}
	info := d.slots[slot]
	mask := info.mapping.ButtonMask(button)
	if mask == 0 {
		return
	}
	if len(info.keys) >= maxQueuedKeys {
		info.keys = info.keys[1:]
	}
	info.keys = append(info.keys, device.KeyEvent{Key: mask, Flags: flags, Slot: slot})
}

func (d *Device) joystick(slot int) (*joystickInfo, bool) {
	if slot < 0 || slot >= device.MaxSlots {
		return nil, false
	}
	info := d.slots[slot]
	if info == nil || !sdl.JoystickConnected(info.joystick) {
		return nil, false
	}
	return info, true
}

// Poll drains pending SDL events and reads the joystick bound to slot.
func (d *Device) Poll(slot int) (device.RawState, error) {
	d.processEvents()

	info, ok := d.joystick(slot)
	if !ok {
		return device.RawState{}, device.ErrNotConnected
	}

	js := info.joystick
	mapping := info.mapping
	d.packet++
	st := device.RawState{PacketNumber: d.packet}

	numAxes := sdl.GetNumJoystickAxes(js)
	for _, am := range mapping.Axes {
		if am.Index >= numAxes {
			continue
		}
		raw := sdl.GetJoystickAxis(js, am.Index)
		switch am.Target {
		case device.AxisLeftX:
			st.ThumbLX = raw
		case device.AxisLeftY:
			st.ThumbLY = raw
		case device.AxisRightX:
			st.ThumbRX = raw
		case device.AxisRightY:
			st.ThumbRY = raw
		case device.AxisLeftTrigger:
			st.LeftTrigger = device.TriggerByte(raw, am.RawMin, am.RawMax)
		case device.AxisRightTrigger:
			st.RightTrigger = device.TriggerByte(raw, am.RawMin, am.RawMax)
		}
	}

	numButtons := sdl.GetNumJoystickButtons(js)
	for _, bm := range mapping.Buttons {
		if bm.Index >= numButtons {
			continue
		}
		if sdl.GetJoystickButton(js, bm.Index) {
			st.Buttons |= bm.Mask
		}
	}

	if mapping.HasHat && sdl.GetNumJoystickHats(js) > 0 {
		st.Buttons |= device.HatMask(sdl.GetJoystickHat(js, 0))
	}
	return st, nil
}

// SetVibration starts or stops rumble. SDL requires a duration, so non-zero
// intensities are held until the next call.
func (d *Device) SetVibration(slot int, left, right uint16) {
	info, ok := d.joystick(slot)
	if !ok {
		return
	}
	var duration uint32
	if left != 0 || right != 0 {
		duration = math.MaxUint32
	}
	if !sdl.RumbleJoystick(info.joystick, left, right, duration) {
		d.log.Debug().Int("slot", slot).Str("err", sdl.GetError()).Msg("rumble rejected")
	}
}

// Capabilities reads the layout from the mapping and the feature flags from
// joystick properties. It never touches the motors.
func (d *Device) Capabilities(slot int) (device.Capabilities, error) {
	info, ok := d.joystick(slot)
	if !ok {
		return device.Capabilities{}, device.ErrUnavailable
	}
	js := info.joystick
	caps := info.mapping.Capabilities(
		sdl.GetNumJoystickAxes(js),
		sdl.GetNumJoystickButtons(js),
		sdl.GetNumJoystickHats(js),
	)
	caps.Gamepad = sdl.GetJoystickType(js) == sdl.JoystickTypeGamepad
	caps.ForceFeedback = sdl.GetBooleanProperty(sdl.GetJoystickProperties(js), sdl.PropJoystickCapRumbleBoolean, false)
	var percent int32
	caps.Wireless = sdl.GetJoystickPowerInfo(js, &percent) == sdl.PowerStateOnBattery
	return caps, nil
}

func (d *Device) Battery(slot int) (device.Battery, error) {
	info, ok := d.joystick(slot)
	if !ok {
		return device.Battery{}, device.ErrUnavailable
	}
	var percent int32
	switch sdl.GetJoystickPowerInfo(info.joystick, &percent) {
	case sdl.PowerStateError:
		return device.Battery{}, device.ErrUnavailable
	case sdl.PowerStateNoBattery, sdl.PowerStateCharging, sdl.PowerStateCharged:
		return device.Battery{Type: device.BatteryWired, Level: device.LevelFull}, nil
	case sdl.PowerStateOnBattery:
		if percent < 0 {
			return device.Battery{Type: device.BatteryUnknown}, nil
		}
		return device.Battery{Type: device.BatteryNiMH, Level: device.LevelFromPercent(int(percent))}, nil
	}
	return device.Battery{Type: device.BatteryUnknown}, nil
}

func (d *Device) Keystroke(slot int) (device.KeyEvent, bool) {
	d.processEvents()
	info, ok := d.joystick(slot)
	if !ok || len(info.keys) == 0 {
		return device.KeyEvent{}, false
	}
	ev := info.keys[0]
	info.keys = info.keys[1:]
	return ev, true
}

// AudioDeviceIDs is not exposed by SDL's joystick API.
func (d *Device) AudioDeviceIDs(int) (device.AudioDevices, error) {
	return device.AudioDevices{}, device.ErrUnavailable
}
