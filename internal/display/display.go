// Package display renders user-facing messages on the terminal.
package display

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var errorColor = color.New(color.FgRed)

// Error writes a single failure line to w, in red when w is a terminal.
func Error(w io.Writer, msg string) {
	if isTerminal(w) {
		errorColor.Fprintf(w, "bitload: %s\n", msg)
		return
	}
	fmt.Fprintf(w, "bitload: %s\n", msg)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
