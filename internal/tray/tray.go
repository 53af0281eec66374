package tray

import (
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"

	"fyne.io/systray"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Actions are invoked from menu clicks. Nil actions hide their entry.
type Actions struct {
	Strong func()
	Weak   func()
	Stop   func()
	// Quit is called once when "Exit" is clicked.
	Quit func()
}

// Tray manages the system tray icon and menu
type Tray struct {
	url          string
	actions      Actions
	once         sync.Once
	shuttingDown atomic.Bool
	log          zerolog.Logger
}

// New creates a tray whose "Open status page" entry points at url. An empty
// url drops that entry.
func New(url string, actions Actions) *Tray {
	return &Tray{
		url:     url,
		actions: actions,
		log:     log.With().Str("component", "tray").Logger(),
	}
}

// Run initializes and runs the system tray (blocks until Quit())
func (t *Tray) Run(iconData []byte) {
	systray.Run(func() {
		t.onReady(iconData)
	}, func() {
		t.onExit()
	})
}

// Quit removes the icon and makes Run return.
func (t *Tray) Quit() {
	t.shuttingDown.Store(true)
	systray.Quit()
}

type menuEntry struct {
	item   *systray.MenuItem
	action func()
}

func (t *Tray) onReady(iconData []byte) {
	if iconData != nil {
		systray.SetIcon(iconData)
	}
	systray.SetTitle("padview")
	tooltip := "padview"
	if t.url != "" {
		tooltip += " - " + t.url
	}
	systray.SetTooltip(tooltip)

	var entries []menuEntry
	add := func(title, tip string, action func()) {
		if action != nil {
			entries = append(entries, menuEntry{systray.AddMenuItem(title, tip), action})
		}
	}
	if t.url != "" {
		add("Open status page", "Open the web monitor", t.openBrowser)
		systray.AddSeparator()
	}
	add("Strong vibration", "Run the strong vibration preset", t.actions.Strong)
	add("Weak vibration", "Run the weak vibration preset", t.actions.Weak)
	add("Stop vibration", "Stop the motors", t.actions.Stop)
	systray.AddSeparator()
	exit := systray.AddMenuItem("Exit", "Quit application")

	for _, e := range entries {
		go t.handleClicks(e)
	}
	go t.handleExit(exit)

	t.log.Info().Msg("system tray initialized")
}

// handleClicks runs e.action for every click until shutdown.
func (t *Tray) handleClicks(e menuEntry) {
	for range e.item.ClickedCh {
		if t.shuttingDown.Load() {
			return
		}
		e.action()
	}
}

func (t *Tray) handleExit(exit *systray.MenuItem) {
	<-exit.ClickedCh
	if t.shuttingDown.CompareAndSwap(false, true) {
		if t.actions.Quit != nil {
			t.once.Do(t.actions.Quit)
		}
		systray.Quit()
	}
}

func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	t.log.Info().Msg("system tray exiting")
}

// browserCommand returns the command that opens url in the default browser.
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		return "open", []string{url}
	default:
		return "xdg-open", []string{url}
	}
}

func (t *Tray) openBrowser() {
	name, args := browserCommand(runtime.GOOS, t.url)
	if err := exec.Command(name, args...).Start(); err != nil {
		t.log.Warn().Err(err).Msg("failed to open browser")
	}
}
