//go:build !nosdl

package main

import (
	"github.com/soar/padview/internal/device"
	"github.com/soar/padview/internal/device/sdl"
)

var nativeBackends = map[string]func() device.Device{
	"sdl": func() device.Device { return sdl.New() },
}
