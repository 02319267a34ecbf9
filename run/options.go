package run

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xhd2015/less-gen/flags"

	"github.com/xhd2015/finchat-e2e/server/config"
	"github.com/xhd2015/finchat-e2e/server/logs"
)

var commonHelp = fmt.Sprintf(`
Discovery options:
  --config FILE          YAML config file (default: $%s)
  --frontend-start PORT  First frontend port to scan (default: %d)
  --frontend-end PORT    Last frontend port to scan (default: %d)
  --backend-port PORT    Backend API port (default: %d)
  --host HOST            Host used in probe URLs (default: %s)
  --timeout DUR          Per-probe timeout (default: %s)
  --health-path PATH     HTTP path probed on each server (default: %s)
  --retries N            Attempts while waiting for a server (default: %d)
  --retry-delay DUR      Delay between attempts (default: %s)
  --hmr                  Also require the Vite HMR websocket
  --verbose              Log every probe step
  -h, --help             Show this help message
`, config.ConfigFileEnv,
	config.DefaultFrontendPortStart, config.DefaultFrontendPortEnd, config.DefaultBackendPort,
	config.DefaultHost, config.DefaultTimeout, config.DefaultHealthCheckPath,
	config.DefaultRetryAttempts, config.DefaultRetryDelay)

// commonOptions are the discovery flags shared by every command. Zero values
// mean "not given" and keep the file or default value.
type commonOptions struct {
	configFile    string
	frontendStart int
	frontendEnd   int
	backendPort   int
	host          string
	timeout       string
	healthPath    string
	retries       int
	retryDelay    string
	hmr           bool
	verbose       bool
}

// bind registers the discovery flags on b.
func (o *commonOptions) bind(b *flags.Builder) *flags.Builder {
	return b.
		String("--config", &o.configFile).
		Int("--frontend-start", &o.frontendStart).
		Int("--frontend-end", &o.frontendEnd).
		Int("--backend-port", &o.backendPort).
		String("--host", &o.host).
		String("--timeout", &o.timeout).
		String("--health-path", &o.healthPath).
		Int("--retries", &o.retries).
		String("--retry-delay", &o.retryDelay).
		Bool("--hmr", &o.hmr).
		Bool("--verbose", &o.verbose)
}

func (o *commonOptions) resolve() (config.PortDetectionConfig, error) {
	logs.Init(o.verbose)

	var cfg config.PortDetectionConfig
	var err error
	if o.configFile != "" {
		cfg, err = config.Load(o.configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return cfg, err
	}

	if o.frontendStart > 0 {
		cfg.FrontendPortRange.Start = o.frontendStart
	}
	if o.frontendEnd > 0 {
		cfg.FrontendPortRange.End = o.frontendEnd
	}
	if o.backendPort > 0 {
		cfg.BackendPort = o.backendPort
	}
	if o.host != "" {
		cfg.Host = o.host
	}
	if o.healthPath != "" {
		cfg.HealthCheckPath = o.healthPath
	}
	if o.retries > 0 {
		cfg.RetryAttempts = o.retries
	}
	if o.hmr {
		cfg.CheckHMR = true
	}
	if cfg.Timeout, err = parseDuration("--timeout", o.timeout, cfg.Timeout); err != nil {
		return cfg, err
	}
	if cfg.RetryDelay, err = parseDuration("--retry-delay", o.retryDelay, cfg.RetryDelay); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseDuration(flag string, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def, errors.Wrapf(err, "invalid %s", flag)
	}
	return d, nil
}
