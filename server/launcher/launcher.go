// Package launcher starts the frontend dev server and the backend API for a
// test run when they are not already running.
package launcher

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/xhd2015/xgo/support/cmd"

	"github.com/xhd2015/finchat-e2e/server/config"
	"github.com/xhd2015/finchat-e2e/server/logs"
	"github.com/xhd2015/finchat-e2e/server/portprobe"
	"github.com/xhd2015/finchat-e2e/server/readiness"
	"github.com/xhd2015/finchat-e2e/server/status"
)

// PortPlaceholder in a command argument is replaced by the chosen port.
const PortPlaceholder = "{port}"

// DefaultFrontendCommand starts Vite pinned to the chosen port, so the port
// probed afterwards is the port Vite actually bound.
var DefaultFrontendCommand = []string{"npm", "run", "dev", "--", "--port", PortPlaceholder, "--strictPort"}

// Options describes how to start the two servers.
type Options struct {
	FrontendDir     string
	FrontendCommand []string
	// Install runs `npm install` in FrontendDir before starting the dev server.
	Install bool

	BackendDir string
	// BackendCommand is optional; when empty the backend must already be up.
	BackendCommand []string

	// Env is appended to the current environment of both commands.
	Env []string

	Stdout io.Writer
	Stderr io.Writer
}

func (o *Options) frontendCommand() []string {
	if len(o.FrontendCommand) > 0 {
		return o.FrontendCommand
	}
	return DefaultFrontendCommand
}

// Result reports the servers the run will use.
type Result struct {
	Frontend status.ServerStatus
	Backend  status.ServerStatus
	// Started is true for servers launched by this run, false for reused ones.
	FrontendStarted bool
	BackendStarted  bool
}

// Launcher owns the processes it started.
type Launcher struct {
	opts Options
	orch *readiness.Orchestrator

	mu   sync.Mutex
	cmds []*exec.Cmd
}

// New returns a launcher. A nil orchestrator means readiness.New().
func New(opts Options, orch *readiness.Orchestrator) *Launcher {
	if orch == nil {
		orch = readiness.New()
	}
	return &Launcher{opts: opts, orch: orch}
}

// ExpandPort replaces every PortPlaceholder in args with port.
func ExpandPort(args []string, port int) []string {
	out := make([]string, len(args))
	p := strconv.Itoa(port)
	for i, a := range args {
		out[i] = strings.ReplaceAll(a, PortPlaceholder, p)
	}
	return out
}

// Start brings up the backend then the frontend, reusing servers that are
// already accessible. On failure every process started so far is stopped.
func (l *Launcher) Start(ctx context.Context, cfg config.PortDetectionConfig) (*Result, error) {
	res := &Result{}

	backend, started, err := l.startBackend(ctx, cfg)
	if err != nil {
		l.Stop()
		return nil, err
	}
	res.Backend, res.BackendStarted = backend, started

	frontend, started, err := l.startFrontend(ctx, cfg)
	if err != nil {
		l.Stop()
		return nil, err
	}
	res.Frontend, res.FrontendStarted = frontend, started
	return res, nil
}

func (l *Launcher) startBackend(ctx context.Context, cfg config.PortDetectionConfig) (status.ServerStatus, bool, error) {
	st := l.orch.VerifyBackendServer(ctx, cfg)
	if st.Accessible {
		logs.Logger("[launcher] reusing backend on port %d", cfg.BackendPort)
		return st, false, nil
	}
	if len(l.opts.BackendCommand) == 0 {
		return st, false, errors.WithHint(
			errors.Newf("backend not accessible on port %d: %s", cfg.BackendPort, st.Error),
			"start the analysis API or pass --backend-cmd",
		)
	}
	if st.Running {
		return st, false, errors.Newf("port %d is taken by a process that does not answer HTTP: %s", cfg.BackendPort, st.Error)
	}

	if err := l.spawn("backend", l.opts.BackendDir, ExpandPort(l.opts.BackendCommand, cfg.BackendPort)); err != nil {
		return st, false, err
	}
	st = l.orch.WaitForServerReady(ctx, cfg.BackendPort, cfg)
	if !st.Accessible {
		return st, true, errors.Newf("backend failed to start: %s", st.Error)
	}
	return st.WithType(status.ServerTypeBackend), true, nil
}

func (l *Launcher) startFrontend(ctx context.Context, cfg config.PortDetectionConfig) (status.ServerStatus, bool, error) {
	if found := l.orch.FindFrontendServer(ctx, cfg); found != nil {
		logs.Logger("[launcher] reusing frontend on port %d", found.Port)
		return *found, false, nil
	}

	if l.opts.Install {
		logs.Logger("[launcher] installing frontend dependencies in %s", l.opts.FrontendDir)
		if err := cmd.Debug().Dir(l.opts.FrontendDir).Run("npm", "install"); err != nil {
			return status.ServerStatus{}, false, errors.Wrap(err, "npm install")
		}
	}

	r := cfg.FrontendPortRange
	port, err := portprobe.FindFreePort(r.Start, r.Size())
	if err != nil {
		return status.ServerStatus{}, false, err
	}
	if !r.Contains(port) {
		return status.ServerStatus{}, false, errors.Newf("no free frontend port in %s", r)
	}

	if err := l.spawn("frontend", l.opts.FrontendDir, ExpandPort(l.opts.frontendCommand(), port)); err != nil {
		return status.ServerStatus{}, false, err
	}
	st := l.orch.WaitForServerReady(ctx, port, cfg)
	if !st.Accessible {
		return st, true, errors.Newf("frontend failed to start: %s", st.Error)
	}
	return st.WithType(status.ServerTypeFrontend), true, nil
}

func (l *Launcher) spawn(name string, dir string, args []string) error {
	if len(args) == 0 {
		return errors.Newf("empty %s command", name)
	}
	c := exec.Command(args[0], args[1:]...)
	c.Dir = dir
	c.SysProcAttr = sysProcAttr()
	if len(l.opts.Env) > 0 {
		c.Env = append(os.Environ(), l.opts.Env...)
	}
	c.Stdout = l.opts.Stdout
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	c.Stderr = l.opts.Stderr
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}

	logs.Logger("[launcher] starting %s: %s", name, strings.Join(args, " "))
	if err := c.Start(); err != nil {
		return errors.Wrapf(err, "failed to start %s", name)
	}
	logs.Logger("[launcher] %s started (PID=%d)", name, c.Process.Pid)

	l.mu.Lock()
	l.cmds = append(l.cmds, c)
	l.mu.Unlock()
	return nil
}

// Stop terminates every process this launcher started, newest first.
func (l *Launcher) Stop() {
	l.mu.Lock()
	cmds := l.cmds
	l.cmds = nil
	l.mu.Unlock()

	for i := len(cmds) - 1; i >= 0; i-- {
		stopGroup(cmds[i])
	}
}
