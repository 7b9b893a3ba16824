package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Guichê banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`   ____       _      _          `, "#34d399"},
		{`  / ___|_   _(_) ___| |__   ___ `, "#2dd4bf"},
		{` | |  _| | | | |/ __| '_ \ / _ \`, "#22d3ee"},
		{` | |_| | |_| | | (__| | | |  __/`, "#38bdf8"},
		{`  \____|\__,_|_|\___|_| |_|\___|`, "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  atendimento de crédito").Faint())
	fmt.Fprintln(w)
}
