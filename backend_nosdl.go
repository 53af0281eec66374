//go:build nosdl

package main

import "github.com/soar/padview/internal/device"

// Built with -tags nosdl: no native library is loaded and only the sim
// backend is available.
var nativeBackends = map[string]func() device.Device{}
