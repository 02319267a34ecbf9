// Package portprobe tells whether a local TCP port is already owned by
// another process.
package portprobe

import (
	"fmt"
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xhd2015/kool/pkgs/web"

	"github.com/xhd2015/finchat-e2e/server/config"
	"github.com/xhd2015/finchat-e2e/server/logs"
)

var listen = net.Listen

// IsPortInUse tries to bind port on all local interfaces. A successful bind
// means the port was free; the listener is closed before returning. A failed
// bind means something else owns the port.
//
// When the bind does not resolve within timeout the result is false: a hung
// probe must not stall a range scan. A non-positive timeout means
// config.DefaultTimeout.
func IsPortInUse(port int, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	type result struct {
		ln  net.Listener
		err error
	}
	done := make(chan result, 1)
	go func() {
		ln, err := listen("tcp", fmt.Sprintf(":%d", port))
		done <- result{ln: ln, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			logs.Debugf("[port-probe] port %d in use: %v", port, r.err)
			return true
		}
		r.ln.Close()
		logs.Debugf("[port-probe] port %d is free", port)
		return false
	case <-timer.C:
		logs.Debugf("[port-probe] bind on port %d timed out after %v, treating as free", port, timeout)
		go func() {
			// the abandoned bind may still succeed later
			if r := <-done; r.err == nil {
				r.ln.Close()
			}
		}()
		return false
	}
}

// FindFreePort returns the first port in [start, start+count) that can be bound.
func FindFreePort(start int, count int) (int, error) {
	port, err := web.FindAvailablePort(start, count)
	if err != nil {
		return 0, errors.Wrapf(err, "no free port in %d-%d", start, start+count-1)
	}
	return port, nil
}
