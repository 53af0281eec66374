package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/soar/padview/internal/config"
	"github.com/soar/padview/internal/console"
	"github.com/soar/padview/internal/gamepad"
	"github.com/soar/padview/internal/hub"
	"github.com/soar/padview/internal/server"
	"github.com/soar/padview/internal/tray"
)

var version = "dev"

// os.Interrupt covers Ctrl+C on every platform.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("padview")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "padview",
		Short:         "Live gamepad monitor with deadzone tuning and vibration tests",
		Long:          "padview polls a game controller, normalizes sticks and triggers, tracks button edges and drives timed vibration. State is shown in the terminal and streamed to a web page.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := config.NewLoader()
			if err := loader.BindFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := loader.Load(cfgFile)
			if err != nil {
				return err
			}
			return run(cfg, loader)
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default padview.yaml in . or the user config dir)")
	config.RegisterFlags(root.Flags())

	root.AddCommand(newVersionCmd(), newConfigCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "padview version %s\n", version)
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

// setupLogging points the global logger at out, plus the configured log
// file. The returned func closes the file.
func setupLogging(cfg *config.Config, out io.Writer, color bool) (func(), error) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = zerolog.ConsoleWriter{Out: out, NoColor: !color, TimeFormat: time.TimeOnly}
	closeFn := func() {}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.Wrap(err, "open log file")
		}
		w = zerolog.MultiLevelWriter(w, f)
		closeFn = func() { f.Close() }
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return closeFn, nil
}

func run(cfg *config.Config, loader *config.Loader) error {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var current atomic.Pointer[config.Config]
	current.Store(cfg)
	presets := func() (gamepad.VibrationSettings, gamepad.VibrationSettings) {
		c := current.Load()
		return c.Vibration.Strong.Settings(), c.Vibration.Weak.Settings()
	}

	dev, err := openDevice(cfg.Backend)
	if err != nil {
		return err
	}

	session := gamepad.NewSession(dev, gamepad.WithTuning(cfg.Tuning()))
	runner := gamepad.NewRunner(dev, session, gamepad.WithInterval(cfg.FrameInterval()))

	var mon *console.Monitor
	logOut, color := io.Writer(os.Stderr), true
	if cfg.UI.Console && console.IsTerminal() {
		mon = console.New(runner, presets, cancel)
		logOut, color = mon.LogWriter(), false
	}
	closeLog, err := setupLogging(cfg, logOut, color)
	if err != nil {
		return err
	}
	defer closeLog()

	if f := loader.ConfigFile(); f != "" {
		log.Info().Str("file", f).Msg("using config")
	}
	loader.Watch(func(c *config.Config) {
		current.Store(c)
		runner.SetTuning(c.Tuning())
		if level, err := zerolog.ParseLevel(c.Log.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})

	var srv *server.Server
	serverErrCh := make(chan error, 1)
	if cfg.Listen != "" {
		h := hub.NewHub()
		go h.Run(ctx)
		broadcaster := hub.NewBroadcaster(h, runner.Subscribe())
		go broadcaster.Run(ctx)

		srv, err = server.New(h, broadcaster, runner, cfg.Listen)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrCh <- err
			}
		}()
		log.Info().Str("url", srv.URL()).Msg("padview started")
	}

	if mon != nil {
		frames := runner.Subscribe()
		go func() {
			if err := mon.Run(ctx, frames); err != nil {
				log.Error().Err(err).Msg("console monitor")
			}
			cancel()
		}()
	} else {
		log.Info().Msg("press Ctrl+C to exit")
	}

	if cfg.UI.Tray {
		url := ""
		if srv != nil {
			url = srv.URL()
		}
		strong := func() { s, _ := presets(); runner.StartVibration(s.Left, s.Right, s.Duration) }
		weak := func() { _, w := presets(); runner.StartVibration(w.Left, w.Right, w.Duration) }
		t := tray.New(url, tray.Actions{
			Strong: strong,
			Weak:   weak,
			Stop:   runner.StopVibration,
			Quit:   cancel,
		})
		go t.Run(tray.Icon())
		defer t.Quit()
	}

	// The runner locks its goroutine to one OS thread for SDL.
	runnerErrCh := make(chan error, 1)
	go func() { runnerErrCh <- runner.Run(ctx) }()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serverErrCh:
		log.Error().Err(err).Msg("HTTP server error")
		runErr = err
	case err := <-runnerErrCh:
		if err != nil {
			log.Error().Err(err).Msg("controller loop failed")
		}
		runErr = err
		runnerErrCh <- nil
	}
	cancel()
	<-runnerErrCh

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown")
		}
	}

	log.Info().Msg("padview stopped")
	return runErr
}
