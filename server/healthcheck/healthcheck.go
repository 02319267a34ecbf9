// Package healthcheck verifies that an occupied port answers HTTP.
package healthcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xhd2015/finchat-e2e/server/config"
	"github.com/xhd2015/finchat-e2e/server/logs"
	"github.com/xhd2015/finchat-e2e/server/status"
)

// Verifier issues accessibility probes. The zero value is not usable; use
// NewVerifier or set Client.
type Verifier struct {
	Client *http.Client
}

// NewVerifier returns a verifier whose client opens a fresh connection for
// every probe and never follows redirects.
func NewVerifier() *Verifier {
	return &Verifier{
		Client: &http.Client{
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

var defaultVerifier = NewVerifier()

// VerifyServerAccessibility probes port with the default verifier.
func VerifyServerAccessibility(ctx context.Context, port int, cfg config.PortDetectionConfig) status.ServerStatus {
	return defaultVerifier.Verify(ctx, port, cfg)
}

// HealthURL returns the URL requested when probing port.
func HealthURL(port int, cfg config.PortDetectionConfig) string {
	return cfg.BaseURL(port) + cfg.GetHealthCheckPath()
}

// Verify issues one GET against the health path of port, bounded by
// cfg.Timeout. Any HTTP response, including 4xx and 5xx, counts as
// accessible; only transport failures do not. The port is assumed occupied,
// so Running is always true in the result.
func (v *Verifier) Verify(ctx context.Context, port int, cfg config.PortDetectionConfig) status.ServerStatus {
	url := HealthURL(port, cfg)
	timeout := cfg.GetTimeout()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	st := status.ServerStatus{
		Port:    port,
		Running: true,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		elapsed := time.Since(start)
		st.ResponseTime = &elapsed
		st.Error = err.Error()
		return st
	}

	logs.Debugf("[health-check] GET %s", url)
	resp, err := v.Client.Do(req)
	elapsed := time.Since(start)
	st.ResponseTime = &elapsed
	if err != nil {
		logs.Debugf("[health-check] %s failed after %v: %v", url, elapsed, err)
		st.Error = err.Error()
		return st
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	logs.Debugf("[health-check] %s answered %d in %v", url, resp.StatusCode, elapsed)
	st.Accessible = resp.StatusCode >= 200 && resp.StatusCode < 600
	if !st.Accessible {
		st.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return st
}
