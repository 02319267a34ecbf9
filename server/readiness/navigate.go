package readiness

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/xhd2015/finchat-e2e/server/config"
	"github.com/xhd2015/finchat-e2e/server/logs"
	"github.com/xhd2015/finchat-e2e/server/status"
)

// LoadStateNetworkIdle waits until the page has had no network traffic for a
// short quiet window.
const LoadStateNetworkIdle = "networkidle"

// ErrNoFrontend is returned when no frontend server ever became reachable.
var ErrNoFrontend = errors.New("no frontend server reachable")

// Page is the part of a browser page handle needed to open the app.
type Page interface {
	Goto(ctx context.Context, url string) error
	WaitForLoadState(ctx context.Context, state string) error
}

// AutoNavigateToFrontend resolves the frontend URL and opens it in page.
// When the scan finds nothing, the first port of the range is polled in case
// the dev server is still starting. It returns the URL the page was sent to.
func (o *Orchestrator) AutoNavigateToFrontend(ctx context.Context, page Page, cfg config.PortDetectionConfig) (string, error) {
	st := o.FindFrontendServer(ctx, cfg)
	if st == nil {
		start := cfg.FrontendPortRange.Start
		logs.Logger("[navigate] no frontend in %s yet, waiting on port %d", cfg.FrontendPortRange, start)
		w := o.WaitForServerReady(ctx, start, cfg)
		if !w.Accessible {
			err := errors.Wrapf(ErrNoFrontend, "port range %s: %s", cfg.FrontendPortRange, w.Error)
			return "", errors.WithHint(err, "start the dev server with `npm run dev` or widen the frontend port range")
		}
		w = w.WithType(status.ServerTypeFrontend)
		st = &w
	}

	url := cfg.BaseURL(st.Port)
	logs.Logger("[navigate] opening %s", url)
	if err := page.Goto(ctx, url); err != nil {
		return url, errors.Wrapf(err, "navigate to %s", url)
	}
	if err := page.WaitForLoadState(ctx, LoadStateNetworkIdle); err != nil {
		return url, errors.Wrapf(err, "wait for %s on %s", LoadStateNetworkIdle, url)
	}
	return url, nil
}

// AutoNavigateToFrontend navigates page with the default orchestrator.
func AutoNavigateToFrontend(ctx context.Context, page Page, cfg config.PortDetectionConfig) (string, error) {
	return defaultOrchestrator.AutoNavigateToFrontend(ctx, page, cfg)
}
