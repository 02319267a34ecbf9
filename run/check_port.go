package run

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xhd2015/less-gen/flags"

	"github.com/xhd2015/finchat-e2e/server/portprobe"
)

var checkPortHelp = `
Usage: finchat-e2e check-port --port PORT

Checks whether something already listens on a local TCP port by trying to
bind it. Exits with code 0 if the port is in use, 1 if it is free.

Options:
  --port PORT      Port number to check (required)
  --timeout DUR    Bind timeout (default: 2s)
  -h, --help       Show this help message
`

func runCheckPort(args []string) error {
	var portFlag int
	var timeoutFlag string
	args, err := flags.
		Int("--port", &portFlag).
		String("--timeout", &timeoutFlag).
		Help("-h,--help", checkPortHelp).
		Parse(args)
	if err != nil {
		return err
	}
	if err := checkNoExtraArgs(args); err != nil {
		return err
	}

	if portFlag <= 0 {
		return errors.New("--port is required")
	}
	timeout, err := parseDuration("--timeout", timeoutFlag, 2*time.Second)
	if err != nil {
		return err
	}

	if !portprobe.IsPortInUse(portFlag, timeout) {
		return errors.Newf("port %d is free", portFlag)
	}
	fmt.Printf("port %d is in use\n", portFlag)
	return nil
}
