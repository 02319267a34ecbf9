package run

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/xhd2015/less-gen/flags"

	"github.com/xhd2015/finchat-e2e/server/logs"
	"github.com/xhd2015/finchat-e2e/server/readiness"
	"github.com/xhd2015/finchat-e2e/server/report"
)

var validateHelp = `
Usage: finchat-e2e validate [--json-out FILE]

Checks that the backend is accessible and a frontend is running in the port
range. Prints one diagnostic per unmet condition and exits with code 1 when
the system is not ready.

Options:
  --json-out FILE        Also write the verdict as JSON to FILE
` + commonHelp

func runValidate(ctx context.Context, args []string) error {
	var opts commonOptions
	var jsonOut string
	args, err := opts.bind(flags.
		String("--json-out", &jsonOut)).
		Help("-h,--help", validateHelp).
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

	res := readiness.ValidateSystemReadiness(ctx, cfg)
	report.Print(os.Stdout, res)

	if jsonOut != "" {
		if err := report.WriteJSON(jsonOut, res); err != nil {
			return err
		}
		logs.Logger("Wrote readiness report to %s", jsonOut)
	}
	if !res.Ready {
		return errors.Newf("system not ready (%d problems)", len(res.Errors))
	}
	return nil
}
