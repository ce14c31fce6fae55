package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/itohio/gotemp/pkg/monitor"
)

// commandTarget is the part of the monitor the command reader drives.
type commandTarget interface {
	Patch(target string, document []byte) error
	SaveModified() error
	Readings() []monitor.Reading
}

var _ commandTarget = (*monitor.Monitor)(nil)

var errEmptyCommand = errors.New("empty command")

// parseCommand splits a command line into its verb or patch target and the
// optional JSON document following it.
func parseCommand(line string) (string, string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", errEmptyCommand
	}
	verb, doc, _ := strings.Cut(line, " ")
	return verb, strings.TrimSpace(doc), nil
}

// serveCommands executes commands read from r until r is exhausted or ctx is
// done. Results are written to w, one line per command.
func serveCommands(ctx context.Context, r io.Reader, w io.Writer, target commandTarget, log zerolog.Logger) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		verb, doc, err := parseCommand(scanner.Text())
		if errors.Is(err, errEmptyCommand) {
			continue
		}

		switch verb {
		case "save":
			err = target.SaveModified()
		case "readings":
			for _, rd := range target.Readings() {
				state := "inactive"
				if rd.Active {
					state = "active"
				}
				fmt.Fprintf(w, "%-16s %-16s %-7s %-8s %7.2f %s\n", rd.Identity, rd.Name, rd.Kind, state, rd.Value, rd.Unit)
			}
			continue
		default:
			if doc == "" {
				err = fmt.Errorf("missing document for %q", verb)
				break
			}
			err = target.Patch(verb, []byte(doc))
		}

		if err != nil {
			log.Debug().Str("command", verb).Str("reason", err.Error()).Msg("command failed")
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(w, "ok")
	}
	return scanner.Err()
}
