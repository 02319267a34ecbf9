package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"

	"github.com/xhd2015/finchat-e2e/server/logs"
)

var help = `
Usage: finchat-e2e <command> [options]

Locates the financial-chat frontend dev server and backend API and checks
that both are ready before browser tests run.

Commands:
  check-port     Check whether a local TCP port is in use
  status         Show frontend and backend status
  base-url       Print the frontend URL tests should use
  wait           Wait for a server on one port to become accessible
  validate       Validate system readiness, exit 1 when not ready
  navigate       Open the discovered frontend in a browser
  launch         Start missing servers and keep them running

Run 'finchat-e2e <command> --help' for the options of a command.
`

func Run(args []string) error {
	defer logs.Sync()

	if len(args) == 0 {
		fmt.Print(strings.TrimPrefix(help, "\n"))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, rest := args[0], args[1:]
	switch command {
	case "check-port":
		return runCheckPort(rest)
	case "status":
		return runStatus(ctx, rest)
	case "base-url":
		return runBaseURL(ctx, rest)
	case "wait":
		return runWait(ctx, rest)
	case "validate":
		return runValidate(ctx, rest)
	case "navigate":
		return runNavigate(ctx, rest)
	case "launch":
		return runLaunch(ctx, rest)
	case "-h", "--help", "help":
		fmt.Print(strings.TrimPrefix(help, "\n"))
		return nil
	default:
		return errors.Newf("unknown command: %s\n%s", command, help)
	}
}

func checkNoExtraArgs(args []string) error {
	if len(args) > 0 {
		return errors.Newf("unrecognized extra args: %s", strings.Join(args, " "))
	}
	return nil
}

// ErrorMessage renders err for the terminal, followed by any user hints
// attached to it.
func ErrorMessage(err error) string {
	msg := err.Error()
	if hints := errors.FlattenHints(err); hints != "" {
		msg += "\nhint: " + strings.ReplaceAll(hints, "\n", "\n      ")
	}
	return msg
}
