package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Responder answers one line of user input with markdown.
type Responder func(ctx context.Context, input string) (string, error)

// ChatOptions configures Chat.
type ChatOptions struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool                         // Prompt, banner and glamour rendering
	Render      func(string) (string, error) // Defaults to glamour when interactive, Plain otherwise
	Greeting    string                       // Rendered before the first prompt
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Chat runs a read-respond loop until EOF or ctx is done. Errors from the
// responder are printed and the loop continues.
func Chat(ctx context.Context, opts ChatOptions, respond Responder) error {
	if opts.Render == nil {
		opts.Render = Plain
		if opts.Interactive {
			opts.Render = NewRenderer(80)
		}
	}
	out := opts.Out

	if opts.Interactive {
		PrintBanner(out)
	}
	if opts.Greeting != "" {
		write(out, opts.Render, opts.Greeting)
	}

	prompt := termenv.String("você> ").Bold().String()
	scanner := bufio.NewScanner(opts.In)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if opts.Interactive {
			fmt.Fprint(out, prompt)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply, err := respond(ctx, line)
		if err != nil && reply == "" {
			fmt.Fprintln(out, termenv.String("erro: "+err.Error()).Foreground(termenv.ANSIRed))
			continue
		}
		write(out, opts.Render, reply)
	}
}

func write(out io.Writer, render func(string) (string, error), markdown string) {
	rendered, err := render(markdown)
	if err != nil {
		rendered = markdown + "\n"
	}
	fmt.Fprint(out, rendered)
}
