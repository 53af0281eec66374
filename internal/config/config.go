// Package config loads padview settings from defaults, a YAML file, the
// environment and command line flags, in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/soar/padview/internal/gamepad"
)

const (
	EnvPrefix = "PADVIEW"
	AppName   = "padview"
)

type Config struct {
	Backend         string          `mapstructure:"backend" yaml:"backend"`
	Listen          string          `mapstructure:"listen" yaml:"listen"`
	FrameIntervalMS int             `mapstructure:"frame_interval_ms" yaml:"frame_interval_ms"`
	Log             LogConfig       `mapstructure:"log" yaml:"log"`
	UI              UIConfig        `mapstructure:"ui" yaml:"ui"`
	Stick           StickConfig     `mapstructure:"stick" yaml:"stick"`
	Trigger         TriggerConfig   `mapstructure:"trigger" yaml:"trigger"`
	Vibration       VibrationConfig `mapstructure:"vibration" yaml:"vibration"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file,omitempty"`
}

type UIConfig struct {
	Console bool `mapstructure:"console" yaml:"console"`
	Tray    bool `mapstructure:"tray" yaml:"tray"`
}

// StickConfig holds deadzones. The first two are raw axis units, the
// secondary one is a fraction of the normalized range.
type StickConfig struct {
	LeftDeadzone      int     `mapstructure:"left_deadzone" yaml:"left_deadzone"`
	RightDeadzone     int     `mapstructure:"right_deadzone" yaml:"right_deadzone"`
	SecondaryDeadzone float64 `mapstructure:"secondary_deadzone" yaml:"secondary_deadzone"`
}

type TriggerConfig struct {
	Threshold        int `mapstructure:"threshold" yaml:"threshold"`
	DigitalThreshold int `mapstructure:"digital_threshold" yaml:"digital_threshold"`
}

// Pulse is a preset vibration triggered from the UI.
type Pulse struct {
	Intensity  float64 `mapstructure:"intensity" yaml:"intensity"`
	DurationMS int     `mapstructure:"duration_ms" yaml:"duration_ms"`
}

type VibrationConfig struct {
	Strong Pulse `mapstructure:"strong" yaml:"strong"`
	Weak   Pulse `mapstructure:"weak" yaml:"weak"`
}

func Default() *Config {
	t := gamepad.DefaultTuning()
	return &Config{
		Backend:         "sdl",
		Listen:          "127.0.0.1:8080",
		FrameIntervalMS: 16,
		Log:             LogConfig{Level: "info"},
		UI: UIConfig{
			Console: true,
			Tray:    runtime.GOOS == "windows",
		},
		Stick: StickConfig{
			LeftDeadzone:      int(t.LeftStickDeadzone),
			RightDeadzone:     int(t.RightStickDeadzone),
			SecondaryDeadzone: t.SecondaryDeadzone,
		},
		Trigger: TriggerConfig{
			Threshold:        int(t.TriggerThreshold),
			DigitalThreshold: int(t.TriggerDigitalThreshold),
		},
		Vibration: VibrationConfig{
			Strong: Pulse{Intensity: 1.0, DurationMS: 500},
			Weak:   Pulse{Intensity: 0.3, DurationMS: 300},
		},
	}
}

// Validate rejects values the runtime cannot use.
func (c *Config) Validate() error {
	switch c.Backend {
	case "sdl", "sim":
	default:
		return errors.Errorf("backend: unknown value %q", c.Backend)
	}
	if c.FrameIntervalMS < 1 || c.FrameIntervalMS > 1000 {
		return errors.Errorf("frame_interval_ms: %d out of range 1..1000", c.FrameIntervalMS)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	if err := inRange("stick.left_deadzone", c.Stick.LeftDeadzone, 0, 32767); err != nil {
		return err
	}
	if err := inRange("stick.right_deadzone", c.Stick.RightDeadzone, 0, 32767); err != nil {
		return err
	}
	if d := c.Stick.SecondaryDeadzone; !(d >= 0 && d < 1) {
		return errors.Errorf("stick.secondary_deadzone: %v out of range [0,1)", d)
	}
	if err := inRange("trigger.threshold", c.Trigger.Threshold, 0, 255); err != nil {
		return err
	}
	if err := inRange("trigger.digital_threshold", c.Trigger.DigitalThreshold, 0, 255); err != nil {
		return err
	}
	if err := c.Vibration.Strong.validate("vibration.strong"); err != nil {
		return err
	}
	return c.Vibration.Weak.validate("vibration.weak")
}

func (p Pulse) validate(key string) error {
	if !(p.Intensity >= 0 && p.Intensity <= 1) {
		return errors.Errorf("%s.intensity: %v out of range [0,1]", key, p.Intensity)
	}
	if p.DurationMS < 0 {
		return errors.Errorf("%s.duration_ms: negative", key)
	}
	return nil
}

func inRange(key string, v, lo, hi int) error {
	if v < lo || v > hi {
		return errors.Errorf("%s: %d out of range %d..%d", key, v, lo, hi)
	}
	return nil
}

// Tuning converts the stick and trigger sections. Call after Validate.
func (c *Config) Tuning() gamepad.Tuning {
	return gamepad.Tuning{
		LeftStickDeadzone:       int16(c.Stick.LeftDeadzone),
		RightStickDeadzone:      int16(c.Stick.RightDeadzone),
		TriggerThreshold:        uint8(c.Trigger.Threshold),
		TriggerDigitalThreshold: uint8(c.Trigger.DigitalThreshold),
		SecondaryDeadzone:       c.Stick.SecondaryDeadzone,
	}
}

func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

func (p Pulse) Settings() gamepad.VibrationSettings {
	return gamepad.VibrationSettings{
		Left:     p.Intensity,
		Right:    p.Intensity,
		Duration: time.Duration(p.DurationMS) * time.Millisecond,
	}
}

// Loader wraps a viper instance so tests can run in isolation.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("backend", c.Backend)
	v.SetDefault("listen", c.Listen)
	v.SetDefault("frame_interval_ms", c.FrameIntervalMS)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.file", c.Log.File)
	v.SetDefault("ui.console", c.UI.Console)
	v.SetDefault("ui.tray", c.UI.Tray)
	v.SetDefault("stick.left_deadzone", c.Stick.LeftDeadzone)
	v.SetDefault("stick.right_deadzone", c.Stick.RightDeadzone)
	v.SetDefault("stick.secondary_deadzone", c.Stick.SecondaryDeadzone)
	v.SetDefault("trigger.threshold", c.Trigger.Threshold)
	v.SetDefault("trigger.digital_threshold", c.Trigger.DigitalThreshold)
	v.SetDefault("vibration.strong.intensity", c.Vibration.Strong.Intensity)
	v.SetDefault("vibration.strong.duration_ms", c.Vibration.Strong.DurationMS)
	v.SetDefault("vibration.weak.intensity", c.Vibration.Weak.Intensity)
	v.SetDefault("vibration.weak.duration_ms", c.Vibration.Weak.DurationMS)
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"backend":        "backend",
	"listen":         "listen",
	"frame-interval": "frame_interval_ms",
	"log-level":      "log.level",
	"log-file":       "log.file",
	"console":        "ui.console",
	"tray":           "ui.tray",
}

// RegisterFlags adds the overridable settings to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("backend", d.Backend, "device backend (sdl or sim)")
	fs.String("listen", d.Listen, "status server address, empty to disable")
	fs.Int("frame-interval", d.FrameIntervalMS, "milliseconds between polls")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log-file", d.Log.File, "also write logs to this file")
	fs.Bool("console", d.UI.Console, "show the terminal monitor")
	fs.Bool("tray", d.UI.Tray, "show the system tray icon")
}

// BindFlags makes every registered flag in fs override its config key.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind flag %s", name)
		}
	}
	return nil
}

// Load reads path, or padview.yaml from the working and user config
// directories when path is empty. A missing default file is not an error.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		l.v.SetConfigName(AppName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(dir, AppName))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	c := &Config{}
	if err := l.v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return c, nil
}

// ConfigFile returns the file Load read, or "" when running on defaults.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch calls fn with the reloaded config each time the file changes.
// Invalid edits are logged and skipped.
func (l *Loader) Watch(fn func(*Config)) {
	if l.ConfigFile() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		c, err := l.decode()
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name).Msg("config reload rejected")
			return
		}
		log.Info().Str("file", e.Name).Msg("config reloaded")
		fn(c)
	})
	l.v.WatchConfig()
}

// DefaultPath is the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locate config dir")
	}
	return filepath.Join(dir, AppName, AppName+".yaml"), nil
}

// WriteDefault writes the default config to path. An existing file is kept
// unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.Errorf("%s already exists", path)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.Wrap(err, "encode defaults")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "write config")
}
