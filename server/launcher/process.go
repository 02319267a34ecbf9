package launcher

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/xhd2015/finchat-e2e/server/logs"
)

const stopGrace = 5 * time.Second

// sysProcAttr puts the child in its own process group so npm and the dev
// server it spawns are stopped together.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// stopGroup sends SIGTERM to the process group, then SIGKILL after a grace
// period if the leader has not exited.
func stopGroup(c *exec.Cmd) {
	if c.Process == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()

	pgid, err := syscall.Getpgid(c.Process.Pid)
	if err != nil {
		logs.Warnf("[launcher] could not get process group of PID=%d, signalling process only", c.Process.Pid)
		c.Process.Signal(syscall.SIGTERM)
		pgid = 0
	} else {
		logs.Debugf("[launcher] sending SIGTERM to process group %d", pgid)
		syscall.Kill(-pgid, syscall.SIGTERM)
	}

	select {
	case <-done:
		return
	case <-time.After(stopGrace):
	}

	if pgid > 0 {
		logs.Warnf("[launcher] process group %d still running, sending SIGKILL", pgid)
		syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		c.Process.Kill()
	}
	<-done
}
