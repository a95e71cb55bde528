// Package output prints CLI text, coloring it when stdout is a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
)

var (
	debug atomic.Bool
	out   io.Writer = color.Output
)

var styles = map[string]*color.Color{
	"title":   color.New(color.Bold, color.FgCyan),
	"dim":     color.New(color.Faint),
	"success": color.New(color.FgGreen),
	"warning": color.New(color.FgYellow),
	"danger":  color.New(color.FgRed, color.Bold),
	"accent":  color.New(color.FgBlue),
}

func SetDebug(on bool) { debug.Store(on) }

// SetOutput redirects printing and disables colors; tests use it.
func SetOutput(w io.Writer) {
	out = w
	color.NoColor = true
}

// Colorize wraps s in the named style. Unknown styles return s unchanged.
func Colorize(style, s string) string {
	c, ok := styles[style]
	if !ok {
		return s
	}
	return c.Sprint(s)
}

func Printf(format string, args ...interface{}) {
	fmt.Fprintf(out, format, args...)
}

func Println(args ...interface{}) {
	fmt.Fprintln(out, args...)
}

// Errorf prints to stderr.
func Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

func Debugf(format string, args ...interface{}) {
	if debug.Load() {
		fmt.Fprintf(out, Colorize("dim", format), args...)
	}
}
