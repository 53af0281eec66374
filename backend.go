package main

import (
	"github.com/pkg/errors"

	"github.com/soar/padview/internal/device"
)

// openDevice builds the backend named in the config. The sim backend starts
// with one pad plugged into slot 0.
func openDevice(name string) (device.Device, error) {
	if name == "sim" {
		sim := device.NewSim(device.MaxSlots)
		sim.Plug(0)
		return sim, nil
	}
	if newNative, ok := nativeBackends[name]; ok {
		return newNative(), nil
	}
	return nil, errors.Errorf("device backend %q is not available in this build", name)
}
