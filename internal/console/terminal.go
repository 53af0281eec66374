// Package console renders a live gamepad monitor in the terminal.
package console

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether stdin and stdout are both attached to a
// terminal, which the interactive monitor needs.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
