package console

import (
	"fmt"
	"strings"

	"github.com/soar/padview/internal/gamepad"
)

const (
	lineWidth = 79
	stickBarN = 13
	trigBarN  = 10
)

var (
	ruleHeavy = strings.Repeat("=", lineWidth)
	ruleLight = strings.Repeat("-", lineWidth)
)

// Info is the slow-changing controller data shown under the live state.
type Info struct {
	Battery      gamepad.BatteryInfo
	Capabilities gamepad.Capabilities
}

// StickBar draws v in [-1,1] as a 13 cell gauge with the center marked.
func StickBar(v float64) string {
	pos := int((v + 1) * 6)
	pos = max(0, min(pos, stickBarN-1))

	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < stickBarN; i++ {
		switch {
		case i == stickBarN/2:
			b.WriteByte('|')
		case i == pos:
			b.WriteByte('*')
		default:
			b.WriteByte('-')
		}
	}
	b.WriteByte(']')
	return b.String()
}

// TriggerBar draws v in [0,1] as a 10 cell fill gauge.
func TriggerBar(v float64) string {
	filled := max(0, min(int(v*trigBarN), trigBarN))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", trigBarN-filled) + "]"
}

func mark(on bool, label string) string {
	if on {
		return "[" + label + "]"
	}
	return " " + label + " "
}

// EventLine lists this frame's edges as "A+" for presses and "A-" for
// releases, presses first.
func EventLine(f gamepad.Frame) string {
	var b strings.Builder
	b.WriteString(" Event:")
	for _, btn := range f.Triggered {
		b.WriteString(" " + btn.String() + "+")
	}
	for _, btn := range f.Released {
		b.WriteString(" " + btn.String() + "-")
	}
	return b.String()
}

func infoLine(info Info) string {
	battery := "n/a"
	if info.Battery.Valid {
		battery = info.Battery.Level.String()
	}
	caps := "n/a"
	if c := info.Capabilities; c.Valid {
		var feats []string
		if c.Gamepad {
			feats = append(feats, "gamepad")
		}
		if c.ForceFeedback {
			feats = append(feats, "rumble")
		}
		if c.Wireless {
			feats = append(feats, "wireless")
		}
		if c.Voice {
			feats = append(feats, "voice")
		}
		caps = strings.Join(feats, ",")
		if caps == "" {
			caps = "none"
		}
	}
	return fmt.Sprintf(" Battery: %-10s Features: %s", battery, caps)
}

// Render lays out one frame as fixed-width text.
func Render(f gamepad.Frame, info Info) string {
	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	add("%s", ruleHeavy)
	add("%s", "                         GAMEPAD DEBUG MONITOR")
	add("%s", ruleHeavy)

	st := f.State
	if !st.Connected {
		add("")
		add(" Controller not connected...")
		add("")
		add(" Waiting for a compatible controller")
		add("")
		add("%s", ruleLight)
		add(" Esc/q: Exit")
		return finish(lines)
	}

	vib := ""
	if f.Vibrating {
		vib = "[VIBRATING]"
	}
	add(" Status: Connected (slot %d)%*s", f.Slot, lineWidth-28, vib)
	add("%s", infoLine(info))
	add("%s", ruleLight)

	ls, rs := st.Sticks.Left.Position, st.Sticks.Right.Position
	add(" L Stick | X:%6.2f %s   Y:%6.2f %s", ls.X, StickBar(ls.X), ls.Y, StickBar(ls.Y))
	add(" R Stick | X:%6.2f %s   Y:%6.2f %s", rs.X, StickBar(rs.X), rs.Y, StickBar(rs.Y))
	lt, rt := st.Triggers.Left.Value, st.Triggers.Right.Value
	add(" Trigger | LT:%5.2f %s    RT:%5.2f %s", lt, TriggerBar(lt), rt, TriggerBar(rt))
	add("%s", ruleLight)

	d, btn := st.Dpad, st.Buttons
	add("  D-PAD        %s                MAIN             %s", mark(d.Up, "U"), mark(btn.North, "Y"))
	add("            %s   %s                           %s  %s",
		mark(d.Left, "L"), mark(d.Right, "R"), mark(btn.West, "X"), mark(btn.East, "B"))
	add("               %s                                 %s", mark(d.Down, "D"), mark(btn.South, "A"))
	add("%s", ruleLight)

	add(" Shoulder: %s %s                                     %s %s",
		mark(btn.L1, "LB"), mark(st.Triggers.Left.Pressed, "LT"),
		mark(st.Triggers.Right.Pressed, "RT"), mark(btn.R1, "RB"))
	add(" Stick   : %s                                             %s",
		mark(st.Sticks.Left.Pressed, "LS"), mark(st.Sticks.Right.Pressed, "RS"))
	add(" System  : %s                                      %s",
		mark(btn.Select, "BACK"), mark(btn.Start, "START"))
	add("%s", ruleLight)

	add("%s", EventLine(f))
	add("%s", ruleHeavy)
	add(" Esc/q: Exit | V: Strong | B: Weak | X: Stop | I: Refresh info")
	return finish(lines)
}

func finish(lines []string) string {
	for i, l := range lines {
		if len(l) > lineWidth {
			lines[i] = l[:lineWidth]
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
