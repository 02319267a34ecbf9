// Package readiness locates the frontend dev server and the backend API before
// browser tests run, and aggregates their state into one verdict.
package readiness

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xhd2015/finchat-e2e/server/config"
	"github.com/xhd2015/finchat-e2e/server/healthcheck"
	"github.com/xhd2015/finchat-e2e/server/logs"
	"github.com/xhd2015/finchat-e2e/server/portprobe"
	"github.com/xhd2015/finchat-e2e/server/status"
)

// ErrBackendNotRunning is the error text of a backend port nothing listens on.
const ErrBackendNotRunning = "Backend server not running"

// Prober reports whether a port is occupied.
type Prober func(port int, timeout time.Duration) bool

// Verifier classifies an occupied port.
type Verifier interface {
	Verify(ctx context.Context, port int, cfg config.PortDetectionConfig) status.ServerStatus
}

// HMRVerifier checks the dev server's hot-reload websocket.
type HMRVerifier interface {
	VerifyHMR(ctx context.Context, port int, cfg config.PortDetectionConfig) error
}

// Orchestrator composes the port prober and the accessibility verifier. It
// holds no state between calls; nil fields fall back to the real
// implementations.
type Orchestrator struct {
	Probe    Prober
	Verifier Verifier
	HMR      HMRVerifier
}

// New returns an orchestrator backed by real sockets and HTTP.
func New() *Orchestrator {
	v := healthcheck.NewVerifier()
	return &Orchestrator{
		Probe:    portprobe.IsPortInUse,
		Verifier: v,
		HMR:      v,
	}
}

var defaultOrchestrator = New()

func (o *Orchestrator) prober() Prober {
	if o.Probe == nil {
		return portprobe.IsPortInUse
	}
	return o.Probe
}

func (o *Orchestrator) verifier() Verifier {
	if o.Verifier == nil {
		return defaultOrchestrator.Verifier
	}
	return o.Verifier
}

func (o *Orchestrator) hmr() HMRVerifier {
	if o.HMR == nil {
		return defaultOrchestrator.HMR
	}
	return o.HMR
}

// FindFrontendServer scans the frontend range in ascending order and returns
// the first accessible port, or nil when the range holds none. Only occupied
// ports are probed over HTTP.
func (o *Orchestrator) FindFrontendServer(ctx context.Context, cfg config.PortDetectionConfig) *status.ServerStatus {
	r := cfg.FrontendPortRange
	logs.Debugf("[readiness] scanning frontend ports %s", r)
	for port := r.Start; port <= r.End; port++ {
		if ctx.Err() != nil {
			logs.Debugf("[readiness] frontend scan cancelled at port %d", port)
			return nil
		}
		if !o.prober()(port, cfg.GetTimeout()) {
			continue
		}
		st := o.verifier().Verify(ctx, port, cfg)
		if st.Accessible {
			st = st.WithType(status.ServerTypeFrontend)
			logs.Debugf("[readiness] frontend found on port %d", port)
			return &st
		}
		logs.Debugf("[readiness] port %d occupied but not accessible: %s", port, st.Error)
	}
	return nil
}

// VerifyBackendServer checks the fixed backend port. An unoccupied port is
// reported without issuing any HTTP request.
func (o *Orchestrator) VerifyBackendServer(ctx context.Context, cfg config.PortDetectionConfig) status.ServerStatus {
	if !o.prober()(cfg.BackendPort, cfg.GetTimeout()) {
		return status.NotRunning(cfg.BackendPort, ErrBackendNotRunning).WithType(status.ServerTypeBackend)
	}
	return o.verifier().Verify(ctx, cfg.BackendPort, cfg).WithType(status.ServerTypeBackend)
}

// GetSystemServerStatus runs the frontend scan and the backend check
// concurrently.
func (o *Orchestrator) GetSystemServerStatus(ctx context.Context, cfg config.PortDetectionConfig) status.SystemStatus {
	var res status.SystemStatus
	var g errgroup.Group
	g.Go(func() error {
		res.Frontend = o.FindFrontendServer(ctx, cfg)
		return nil
	})
	g.Go(func() error {
		res.Backend = o.VerifyBackendServer(ctx, cfg)
		return nil
	})
	g.Wait()
	return res
}

// WaitForServerReady polls port up to cfg.RetryAttempts times, sleeping
// cfg.RetryDelay between attempts, and returns as soon as the port is
// accessible. After the last attempt the status carries the attempt count
// and the last observed cause.
func (o *Orchestrator) WaitForServerReady(ctx context.Context, port int, cfg config.PortDetectionConfig) status.ServerStatus {
	attempts := cfg.GetRetryAttempts()
	last := status.NotRunning(port, "port not in use")

	for attempt := 1; attempt <= attempts; attempt++ {
		if o.prober()(port, cfg.GetTimeout()) {
			st := o.verifier().Verify(ctx, port, cfg)
			if st.Accessible {
				logs.Debugf("[readiness] port %d ready on attempt %d/%d", port, attempt, attempts)
				return st
			}
			last = st
		} else {
			last = status.NotRunning(port, "port not in use")
		}
		logs.Debugf("[readiness] port %d not ready (attempt %d/%d): %s", port, attempt, attempts, last.Error)

		if attempt == attempts {
			break
		}
		if err := sleep(ctx, cfg.RetryDelay); err != nil {
			last.Error = fmt.Sprintf("%s (wait cancelled: %v)", last.Error, err)
			attempts = attempt
			break
		}
	}

	last.Accessible = false
	last.Error = fmt.Sprintf("Server on port %d not ready after %d attempts: %s", port, attempts, last.Error)
	return last
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ValidateSystemReadiness aggregates the system status into a verdict with
// one diagnostic per unmet condition.
func (o *Orchestrator) ValidateSystemReadiness(ctx context.Context, cfg config.PortDetectionConfig) status.SystemReadiness {
	sys := o.GetSystemServerStatus(ctx, cfg)
	res := status.SystemReadiness{
		Frontend: sys.Frontend,
		Backend:  sys.Backend,
		Errors:   []string{},
	}

	if !sys.Backend.Accessible {
		res.Errors = append(res.Errors, fmt.Sprintf("Backend server not accessible on port %d: %s", cfg.BackendPort, sys.Backend.Error))
	}
	switch {
	case sys.Frontend == nil:
		res.Errors = append(res.Errors, fmt.Sprintf("Frontend server not found in port range %s", cfg.FrontendPortRange))
	case !sys.Frontend.Accessible:
		res.Errors = append(res.Errors, fmt.Sprintf("Frontend server found on port %d but not accessible: %s", sys.Frontend.Port, sys.Frontend.Error))
	case cfg.CheckHMR:
		if err := o.hmr().VerifyHMR(ctx, sys.Frontend.Port, cfg); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Frontend HMR websocket not available on port %d: %v", sys.Frontend.Port, err))
		}
	}

	res.Ready = len(res.Errors) == 0
	if res.Ready {
		logs.Logger("[readiness] system ready: frontend=%d backend=%d", sys.Frontend.Port, cfg.BackendPort)
	} else {
		for _, e := range res.Errors {
			logs.Warnf("[readiness] %s", e)
		}
	}
	return res
}

// GetTestBaseURL returns the URL of the discovered frontend, or the URL of
// the first port of the range when none is running yet.
func (o *Orchestrator) GetTestBaseURL(ctx context.Context, cfg config.PortDetectionConfig) string {
	if st := o.FindFrontendServer(ctx, cfg); st != nil {
		return cfg.BaseURL(st.Port)
	}
	return cfg.BaseURL(cfg.FrontendPortRange.Start)
}

// FindFrontendServer scans with the default orchestrator.
func FindFrontendServer(ctx context.Context, cfg config.PortDetectionConfig) *status.ServerStatus {
	return defaultOrchestrator.FindFrontendServer(ctx, cfg)
}

// VerifyBackendServer checks the backend with the default orchestrator.
func VerifyBackendServer(ctx context.Context, cfg config.PortDetectionConfig) status.ServerStatus {
	return defaultOrchestrator.VerifyBackendServer(ctx, cfg)
}

// GetSystemServerStatus runs both checks with the default orchestrator.
func GetSystemServerStatus(ctx context.Context, cfg config.PortDetectionConfig) status.SystemStatus {
	return defaultOrchestrator.GetSystemServerStatus(ctx, cfg)
}

// WaitForServerReady polls port with the default orchestrator.
func WaitForServerReady(ctx context.Context, port int, cfg config.PortDetectionConfig) status.ServerStatus {
	return defaultOrchestrator.WaitForServerReady(ctx, port, cfg)
}

// ValidateSystemReadiness validates with the default orchestrator.
func ValidateSystemReadiness(ctx context.Context, cfg config.PortDetectionConfig) status.SystemReadiness {
	return defaultOrchestrator.ValidateSystemReadiness(ctx, cfg)
}

// GetTestBaseURL resolves the base URL with the default orchestrator.
func GetTestBaseURL(ctx context.Context, cfg config.PortDetectionConfig) string {
	return defaultOrchestrator.GetTestBaseURL(ctx, cfg)
}
