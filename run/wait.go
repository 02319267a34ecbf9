package run

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/xhd2015/less-gen/flags"

	"github.com/xhd2015/finchat-e2e/server/readiness"
	"github.com/xhd2015/finchat-e2e/server/report"
)

var waitHelp = `
Usage: finchat-e2e wait --port PORT

Polls PORT until it answers HTTP, up to --retries attempts spaced by
--retry-delay. Exits with code 1 if the server never becomes accessible.

Options:
  --port PORT            Port to wait for (default: first frontend port)
` + commonHelp

func runWait(ctx context.Context, args []string) error {
	var opts commonOptions
	var portFlag int
	args, err := opts.bind(flags.
		Int("--port", &portFlag)).
		Help("-h,--help", waitHelp).
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

	port := portFlag
	if port <= 0 {
		port = cfg.FrontendPortRange.Start
	}
	st := readiness.WaitForServerReady(ctx, port, cfg)
	report.PrintStatus(os.Stdout, "Server", st)
	if !st.Accessible {
		return errors.New(st.Error)
	}
	return nil
}
