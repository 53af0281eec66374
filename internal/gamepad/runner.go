package gamepad

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/soar/padview/internal/device"
)

// DefaultFrameInterval is roughly one frame at 60Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Frame is what consumers see after each Update.
type Frame struct {
	State     GamepadState `json:"state"`
	Vibrating bool         `json:"vibrating"`
	Slot      int          `json:"slot"`
	Triggered []Button     `json:"triggered,omitempty"`
	Released  []Button     `json:"released,omitempty"`
}

// HasEdges reports whether any button changed state in this frame.
func (f Frame) HasEdges() bool {
	return len(f.Triggered) > 0 || len(f.Released) > 0
}

func frameOf(s *Session) Frame {
	return Frame{
		State:     s.Current(),
		Vibrating: s.IsVibrating(),
		Slot:      s.Slot(),
		Triggered: s.Triggered(),
		Released:  s.Released(),
	}
}

// ErrNotRunning is returned by Do when the runner loop has exited.
var ErrNotRunning = errors.New("runner not running")

// Runner confines a Session to one goroutine. It calls Update once per
// frame, publishes changed frames to subscribers and executes closures
// posted from other goroutines between frames.
type Runner struct {
	dev      device.Device
	session  *Session
	interval time.Duration
	clock    clock.Clock
	log      zerolog.Logger

	cmds chan func(*Session)
	done chan struct{}

	mu   sync.RWMutex
	subs []chan Frame
	last Frame
}

type RunnerOption func(*Runner)

func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithRunnerClock(c clock.Clock) RunnerOption {
	return func(r *Runner) { r.clock = c }
}

func NewRunner(dev device.Device, s *Session, opts ...RunnerOption) *Runner {
	r := &Runner{
		dev:      dev,
		session:  s,
		interval: DefaultFrameInterval,
		clock:    clock.New(),
		log:      log.With().Str("component", "runner").Logger(),
		cmds:     make(chan func(*Session), 64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe returns a channel receiving every frame that differs from the
// one before it. Slow subscribers miss frames rather than stall the loop.
// Call before Run.
func (r *Runner) Subscribe() <-chan Frame {
	ch := make(chan Frame, 64)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch
}

// CurrentFrame returns the last published frame.
func (r *Runner) CurrentFrame() Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Run opens the device and drives the session until ctx is cancelled.
// The goroutine is locked to its OS thread for the lifetime of the loop.
func (r *Runner) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.done)

	if err := r.dev.Open(); err != nil {
		return errors.Wrap(err, "open device")
	}
	defer func() {
		if err := r.dev.Close(); err != nil {
			r.log.Error().Err(err).Msg("close device")
		}
	}()

	r.session.Initialize()
	defer r.session.Finalize()

	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()

	r.step()
	for {
		select {
		case <-ctx.Done():
			r.closeSubs()
			return nil
		case fn := <-r.cmds:
			fn(r.session)
		case <-ticker.C:
			r.step()
		}
	}
}

func (r *Runner) step() {
	r.session.Update()
	f := frameOf(r.session)

	r.mu.Lock()
	// A frame after an edge frame is always sent so edges last one frame.
	changed := f.HasEdges() || r.last.HasEdges() || !ComputeDelta(r.last, f).IsEmpty()
	r.last = f
	subs := r.subs
	r.mu.Unlock()

	if !changed {
		return
	}
	for _, ch := range subs {
		select {
		case ch <- f:
		default:
			// Drop if channel is full to avoid blocking the device thread
		}
	}
}

func (r *Runner) closeSubs() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		close(ch)
	}
	r.subs = nil
}

// Post queues fn to run on the session goroutine without waiting.
func (r *Runner) Post(fn func(*Session)) {
	select {
	case r.cmds <- fn:
	case <-r.done:
	}
}

// Do runs fn on the session goroutine and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func(*Session)) error {
	finished := make(chan struct{})
	wrapped := func(s *Session) {
		fn(s)
		close(finished)
	}
	select {
	case r.cmds <- wrapped:
	case <-r.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) StartVibration(left, right float64, d time.Duration) {
	r.Post(func(s *Session) { s.StartVibrationEx(left, right, d) })
}

func (r *Runner) StopVibration() {
	r.Post(func(s *Session) { s.StopVibration() })
}

func (r *Runner) SetTuning(t Tuning) {
	r.Post(func(s *Session) { s.SetTuning(t) })
}

func (r *Runner) BatteryInfo(ctx context.Context) (BatteryInfo, error) {
	var info BatteryInfo
	err := r.Do(ctx, func(s *Session) { info = s.BatteryInfo() })
	return info, err
}

func (r *Runner) Capabilities(ctx context.Context) (Capabilities, error) {
	var caps Capabilities
	err := r.Do(ctx, func(s *Session) { caps = s.Capabilities() })
	return caps, err
}
