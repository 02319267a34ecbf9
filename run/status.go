package run

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/xhd2015/less-gen/flags"

	"github.com/xhd2015/finchat-e2e/server/readiness"
	"github.com/xhd2015/finchat-e2e/server/report"
	"github.com/xhd2015/finchat-e2e/server/status"
)

var statusHelp = `
Usage: finchat-e2e status [--only frontend|backend] [--json]

Scans the frontend port range and checks the backend port concurrently.

Options:
  --only ROLE            Check only the frontend or only the backend
  --json                 Print JSON instead of text
` + commonHelp

func runStatus(ctx context.Context, args []string) error {
	var opts commonOptions
	var only string
	var jsonFlag bool
	args, err := opts.bind(flags.
		String("--only", &only).
		Bool("--json", &jsonFlag)).
		Help("-h,--help", statusHelp).
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

	orch := readiness.New()
	var sys status.SystemStatus
	switch only {
	case "":
		sys = orch.GetSystemServerStatus(ctx, cfg)
	case string(status.ServerTypeFrontend):
		sys.Frontend = orch.FindFrontendServer(ctx, cfg)
	case string(status.ServerTypeBackend):
		sys.Backend = orch.VerifyBackendServer(ctx, cfg)
	default:
		return errors.Newf("--only must be frontend or backend, got %q", only)
	}

	if jsonFlag {
		var v interface{} = sys
		switch only {
		case string(status.ServerTypeFrontend):
			v = sys.Frontend
		case string(status.ServerTypeBackend):
			v = sys.Backend
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	if only != string(status.ServerTypeBackend) {
		if sys.Frontend != nil {
			report.PrintStatus(os.Stdout, "Frontend", *sys.Frontend)
		} else {
			fmt.Printf("Frontend: not found in port range %s\n", cfg.FrontendPortRange)
		}
	}
	if only != string(status.ServerTypeFrontend) {
		report.PrintStatus(os.Stdout, "Backend", sys.Backend)
	}
	return nil
}

var baseURLHelp = `
Usage: finchat-e2e base-url

Prints the URL of the running frontend, or of the first port of the range
when no frontend is running yet.
` + commonHelp

func runBaseURL(ctx context.Context, args []string) error {
	var opts commonOptions
	args, err := opts.bind(flags.New()).
		Help("-h,--help", baseURLHelp).
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

	fmt.Println(readiness.GetTestBaseURL(ctx, cfg))
	return nil
}
