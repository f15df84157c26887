package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/storefront-client/internal/paywidget"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

// stdinConfirmer answers confirmation prompts from the terminal.
type stdinConfirmer struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func (a *App) confirmer(assumeYes bool) *stdinConfirmer {
	return &stdinConfirmer{in: a.in, out: a.out, assumeYes: assumeYes}
}

// Confirm accepts y or yes. End of input declines.
func (c *stdinConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if c.assumeYes {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, _ = fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read confirmation")
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// printLauncher asks the buyer to open the checkout page themselves.
func printLauncher(out io.Writer) paywidget.Launcher {
	return func(ctx context.Context, url string) error {
		_, err := fmt.Fprintf(out, "Open %s in your browser to complete the payment\n", url)
		return err
	}
}

// runShell reads commands from stdin until EOF or "exit". With the in-memory
// session store this is the only way to stay signed in across commands.
func runShell(ctx context.Context, inv *invocation, args []string) error {
	a := inv.app
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		_, _ = fmt.Fprint(a.out, "> ")
		line, err := a.in.ReadString('\n')
		fields := splitLine(line)
		if len(fields) > 0 {
			switch fields[0] {
			case "exit", "quit":
				return nil
			case "shell":
				_, _ = fmt.Fprintln(a.out, "already in a shell")
			default:
				if runErr := a.Run(ctx, fields); runErr != nil {
					_, _ = fmt.Fprintln(a.out, "error:", pkgerrors.UserMessage(runErr))
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read command")
		}
	}
}

// splitLine splits on whitespace, keeping double-quoted runs together.
func splitLine(line string) []string {
	var (
		fields  []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			if started {
				fields = append(fields, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		fields = append(fields, current.String())
	}
	return fields
}
