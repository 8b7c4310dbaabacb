package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the pubflow banner followed by the version line.
func PrintBanner(w io.Writer, version string, color bool) {
	out := newOutput(w, color)
	lines := []struct{ text, hex string }{
		{"              _      __ _", "#38bdf8"},
		{"  _ __  _   _| |__  / _| | _____      __", "#22d3ee"},
		{" | '_ \\| | | | '_ \\| |_| |/ _ \\ \\ /\\ / /", "#2dd4bf"},
		{" | |_) | |_| | |_) |  _| | (_) \\ V  V /", "#34d399"},
		{" | .__/ \\__,_|_.__/|_| |_|\\___/ \\_/\\_/", "#4ade80"},
		{" |_|", "#a3e635"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.hex)))
	}
	fmt.Fprintln(w, out.String(" "+version).Faint())
	fmt.Fprintln(w)
}

func newOutput(w io.Writer, color bool) *termenv.Output {
	if !color {
		return termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
	}
	return termenv.NewOutput(w)
}
