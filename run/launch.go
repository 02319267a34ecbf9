package run

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xhd2015/less-gen/flags"

	"github.com/xhd2015/finchat-e2e/server/launcher"
	"github.com/xhd2015/finchat-e2e/server/readiness"
	"github.com/xhd2015/finchat-e2e/server/report"
)

var launchHelp = fmt.Sprintf(`
Usage: finchat-e2e launch [options]

Starts the backend and the frontend dev server unless they are already
accessible, validates readiness, and keeps them running until interrupted.

Options:
  --frontend-dir DIR     Directory of the frontend package (default: .)
  --frontend-cmd CMD     Frontend command, %s is replaced by the chosen port
                         (default: %q)
  --install              Run 'npm install' before starting the frontend
  --backend-dir DIR      Working directory of the backend command
  --backend-cmd CMD      Backend command; when empty the backend must be running
  --exit                 Stop the started servers and exit after validation
`, launcher.PortPlaceholder, strings.Join(launcher.DefaultFrontendCommand, " ")) + commonHelp

func runLaunch(ctx context.Context, args []string) error {
	var opts commonOptions
	var lopts launcher.Options
	var frontendCmd, backendCmd string
	var exitFlag bool
	args, err := opts.bind(flags.
		String("--frontend-dir", &lopts.FrontendDir).
		String("--frontend-cmd", &frontendCmd).
		Bool("--install", &lopts.Install).
		String("--backend-dir", &lopts.BackendDir).
		String("--backend-cmd", &backendCmd).
		Bool("--exit", &exitFlag)).
		Help("-h,--help", launchHelp).
		Parse(args)
	if err != nil {
		return err
	}
	if err := checkNoExtraArgs(args); err != nil {
		return err
	}
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}
	lopts.FrontendCommand = strings.Fields(frontendCmd)
	lopts.BackendCommand = strings.Fields(backendCmd)

	orch := readiness.New()
	l := launcher.New(lopts, orch)
	if _, err := l.Start(ctx, cfg); err != nil {
		return err
	}
	defer l.Stop()

	res := orch.ValidateSystemReadiness(ctx, cfg)
	report.Print(os.Stdout, res)
	if !res.Ready {
		return errors.New("system not ready after launch")
	}
	if exitFlag {
		return nil
	}

	fmt.Println("Servers running, press Ctrl-C to stop...")
	<-ctx.Done()
	fmt.Println("\nReceived interrupt signal, shutting down...")
	return nil
}
