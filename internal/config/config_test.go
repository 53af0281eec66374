package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "padview.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
backend: sim
listen: ""
stick:
  left_deadzone: 8000
  secondary_deadzone: 0.2
vibration:
  weak:
    intensity: 0.4
    duration_ms: 250
`)
	c, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Backend != "sim" || c.Listen != "" {
		t.Errorf("backend=%q listen=%q", c.Backend, c.Listen)
	}
	if c.Stick.LeftDeadzone != 8000 || c.Stick.RightDeadzone != 8689 {
		t.Errorf("stick = %+v", c.Stick)
	}
	if c.Trigger.Threshold != 30 || c.Trigger.DigitalThreshold != 128 {
		t.Errorf("trigger defaults lost: %+v", c.Trigger)
	}
	if c.Vibration.Strong != (Pulse{1, 500}) || c.Vibration.Weak != (Pulse{0.4, 250}) {
		t.Errorf("vibration = %+v", c.Vibration)
	}

	tuning := c.Tuning()
	if tuning.LeftStickDeadzone != 8000 || tuning.SecondaryDeadzone != 0.2 || tuning.TriggerDigitalThreshold != 128 {
		t.Errorf("tuning = %+v", tuning)
	}
	if s := c.Vibration.Weak.Settings(); s.Left != 0.4 || s.Right != 0.4 || s.Duration != 250*time.Millisecond {
		t.Errorf("settings = %+v", s)
	}
	if c.FrameInterval() != 16*time.Millisecond {
		t.Errorf("FrameInterval = %v", c.FrameInterval())
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit file")
	}
}

func TestLoadWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	l := NewLoader()
	c, err := l.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Listen != "127.0.0.1:8080" || l.ConfigFile() != "" {
		t.Errorf("listen=%q file=%q", c.Listen, l.ConfigFile())
	}
}

func TestPrecedence(t *testing.T) {
	path := writeFile(t, "listen: \":7000\"\nbackend: sim\nlog:\n  level: warn\n")
	t.Setenv("PADVIEW_LISTEN", ":9000")
	t.Setenv("PADVIEW_STICK_RIGHT_DEADZONE", "1234")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--log-level", "debug"}); err != nil {
		t.Fatal(err)
	}

	l := NewLoader()
	if err := l.BindFlags(fs); err != nil {
		t.Fatal(err)
	}
	c, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Listen != ":9000" {
		t.Errorf("env should beat file: listen=%q", c.Listen)
	}
	if c.Stick.RightDeadzone != 1234 {
		t.Errorf("env nested key: right_deadzone=%d", c.Stick.RightDeadzone)
	}
	if c.Log.Level != "debug" {
		t.Errorf("flag should beat file: level=%q", c.Log.Level)
	}
	if c.Backend != "sim" {
		t.Errorf("unset flag should not override file: backend=%q", c.Backend)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"backend", func(c *Config) { c.Backend = "usb" }, "backend"},
		{"interval", func(c *Config) { c.FrameIntervalMS = 0 }, "frame_interval_ms"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"left deadzone", func(c *Config) { c.Stick.LeftDeadzone = 40000 }, "stick.left_deadzone"},
		{"right deadzone", func(c *Config) { c.Stick.RightDeadzone = -1 }, "stick.right_deadzone"},
		{"secondary", func(c *Config) { c.Stick.SecondaryDeadzone = 1 }, "stick.secondary_deadzone"},
		{"threshold", func(c *Config) { c.Trigger.Threshold = 256 }, "trigger.threshold"},
		{"digital", func(c *Config) { c.Trigger.DigitalThreshold = -5 }, "trigger.digital_threshold"},
		{"strong", func(c *Config) { c.Vibration.Strong.Intensity = 1.5 }, "vibration.strong.intensity"},
		{"weak", func(c *Config) { c.Vibration.Weak.DurationMS = -1 }, "vibration.weak.duration_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name %s", err, tt.key)
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeFile(t, "trigger:\n  threshold: 300\n")
	if _, err := NewLoader().Load(path); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("Load error = %v", err)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "padview.yaml")
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if err := WriteDefault(path, false); err == nil {
		t.Error("expected error when file exists")
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("forced WriteDefault: %v", err)
	}

	c, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load written defaults: %v", err)
	}
	want := Default()
	if c.Stick != want.Stick || c.Trigger != want.Trigger || c.Vibration != want.Vibration || c.Listen != want.Listen {
		t.Errorf("round trip = %+v, want %+v", c, want)
	}
}
