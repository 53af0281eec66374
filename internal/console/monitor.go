package console

import (
	"context"
	"io"
	"sync"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"

	"github.com/soar/padview/internal/gamepad"
)

const queryTimeout = time.Second

// Controls is what the monitor's keys act on.
type Controls interface {
	StartVibration(left, right float64, d time.Duration)
	StopVibration()
	BatteryInfo(ctx context.Context) (gamepad.BatteryInfo, error)
	Capabilities(ctx context.Context) (gamepad.Capabilities, error)
}

// Presets returns the strong and weak vibration presets. It is called on
// every key press so config reloads take effect.
type Presets func() (strong, weak gamepad.VibrationSettings)

type Monitor struct {
	ctrl    Controls
	presets Presets
	quit    func()

	app   *tview.Application
	state *tview.TextView
	log   *tview.TextView
	rows  *tview.Flex

	mu    sync.Mutex
	frame gamepad.Frame
	info  Info

	redraw  chan struct{}
	stopped chan struct{}
}

func New(ctrl Controls, presets Presets, quit func()) *Monitor {
	m := &Monitor{
		ctrl:    ctrl,
		presets: presets,
		quit:    quit,
		app:     tview.NewApplication(),
		state: tview.NewTextView().
			SetWrap(false),
		log: tview.NewTextView().
			SetMaxLines(1000),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		redraw:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	m.log.SetChangedFunc(m.requestDraw)
	m.log.SetBackgroundColor(tcell.ColorDarkBlue)
	m.log.ScrollToEnd()
	m.rows.
		AddItem(m.state, 24, 0, false).
		AddItem(m.log, 0, 1, false)
	m.app.SetRoot(m.rows, true)
	m.app.SetInputCapture(m.handleKey)
	m.state.SetText(Render(gamepad.Frame{}, Info{}))
	return m
}

// LogWriter is where log output should go while the monitor owns the screen.
func (m *Monitor) LogWriter() io.Writer { return m.log }

// Run draws frames until ctx is cancelled or the user quits.
func (m *Monitor) Run(ctx context.Context, frames <-chan gamepad.Frame) error {
	go m.drawLoop()
	go func() {
		for {
			select {
			case <-m.stopped:
				return
			case <-ctx.Done():
				m.app.Stop()
				return
			case f, ok := <-frames:
				if !ok {
					m.app.Stop()
					return
				}
				m.update(f)
			}
		}
	}()
	err := m.app.Run()
	close(m.stopped)
	return err
}

// drawLoop is the only caller of QueueUpdateDraw, which blocks until the
// event loop picks the update up.
func (m *Monitor) drawLoop() {
	for {
		select {
		case <-m.stopped:
			return
		case <-m.redraw:
		}
		select {
		case <-m.stopped:
			return
		default:
			m.app.QueueUpdateDraw(func() {})
		}
	}
}

// requestDraw never blocks; requests made while one is pending are merged.
func (m *Monitor) requestDraw() {
	select {
	case m.redraw <- struct{}{}:
	default:
	}
}

func (m *Monitor) update(f gamepad.Frame) {
	m.mu.Lock()
	connected := f.State.Connected && !m.frame.State.Connected
	m.frame = f
	text := Render(f, m.info)
	m.mu.Unlock()

	m.state.SetText(text)
	m.requestDraw()
	if connected {
		go m.refreshInfo()
	}
}

// fetchInfo queries battery and capabilities. Failed queries leave the
// matching field invalid.
func (m *Monitor) fetchInfo(ctx context.Context) Info {
	var info Info
	var err error
	if info.Battery, err = m.ctrl.BatteryInfo(ctx); err != nil {
		log.Debug().Err(err).Msg("battery query")
	}
	if info.Capabilities, err = m.ctrl.Capabilities(ctx); err != nil {
		log.Debug().Err(err).Msg("capabilities query")
	}
	return info
}

func (m *Monitor) refreshInfo() {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	info := m.fetchInfo(ctx)

	m.mu.Lock()
	m.info = info
	text := Render(m.frame, info)
	m.mu.Unlock()

	m.state.SetText(text)
	m.requestDraw()
}

func (m *Monitor) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() == tcell.KeyEscape {
		m.quit()
		return nil
	}
	if ev.Key() != tcell.KeyRune {
		return ev
	}

	strong, weak := m.presets()
	switch unicode.ToLower(ev.Rune()) {
	case 'q':
		m.quit()
	case 'v':
		m.ctrl.StartVibration(strong.Left, strong.Right, strong.Duration)
	case 'b':
		m.ctrl.StartVibration(weak.Left, weak.Right, weak.Duration)
	case 'x':
		m.ctrl.StopVibration()
	case 'i':
		go m.refreshInfo()
	default:
		return ev
	}
	return nil
}
