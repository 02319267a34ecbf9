package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// PortRange is an inclusive range of TCP ports.
type PortRange struct {
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`
}

// Contains reports whether port lies inside the range.
func (r PortRange) Contains(port int) bool {
	return port >= r.Start && port <= r.End
}

// Size returns the number of ports in the range.
func (r PortRange) Size() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

func (r PortRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// PortDetectionConfig describes one discovery run. It is passed by value
// and never mutated by the probes.
type PortDetectionConfig struct {
	// FrontendPortRange is scanned in ascending order for the dev server.
	FrontendPortRange PortRange `yaml:"frontend_port_range" json:"frontend_port_range"`

	// BackendPort is checked directly, without a scan.
	BackendPort int `yaml:"backend_port" json:"backend_port"`

	// Host is used to build probe and navigation URLs.
	Host string `yaml:"host" json:"host"`

	// Timeout bounds every single probe (bind attempt or HTTP GET).
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// HealthCheckPath is requested on every accessibility probe. Defaults to "/".
	HealthCheckPath string `yaml:"health_check_path" json:"health_check_path"`

	// RetryAttempts is the number of attempts made while waiting for a server.
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`

	// RetryDelay is slept between two attempts.
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`

	// CheckHMR additionally requires the Vite HMR websocket to accept a client.
	CheckHMR bool `yaml:"check_hmr" json:"check_hmr"`
}

// DefaultPortDetectionConfig returns the configuration used by the e2e suite
// when nothing is overridden.
func DefaultPortDetectionConfig() PortDetectionConfig {
	return PortDetectionConfig{
		FrontendPortRange: PortRange{
			Start: DefaultFrontendPortStart,
			End:   DefaultFrontendPortEnd,
		},
		BackendPort:     DefaultBackendPort,
		Host:            DefaultHost,
		Timeout:         DefaultTimeout,
		HealthCheckPath: DefaultHealthCheckPath,
		RetryAttempts:   DefaultRetryAttempts,
		RetryDelay:      DefaultRetryDelay,
	}
}

// GetHost returns the configured host, falling back to localhost.
func (c PortDetectionConfig) GetHost() string {
	if c.Host == "" {
		return DefaultHost
	}
	return c.Host
}

// GetHealthCheckPath returns the health path, always starting with a slash.
func (c PortDetectionConfig) GetHealthCheckPath() string {
	if c.HealthCheckPath == "" {
		return DefaultHealthCheckPath
	}
	if c.HealthCheckPath[0] != '/' {
		return "/" + c.HealthCheckPath
	}
	return c.HealthCheckPath
}

// GetTimeout returns the per-probe timeout, falling back to DefaultTimeout
// when unset.
func (c PortDetectionConfig) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// GetRetryAttempts never returns less than one attempt.
func (c PortDetectionConfig) GetRetryAttempts() int {
	if c.RetryAttempts < 1 {
		return 1
	}
	return c.RetryAttempts
}

// BaseURL returns the http URL of port on the configured host.
func (c PortDetectionConfig) BaseURL(port int) string {
	return fmt.Sprintf("http://%s:%d", c.GetHost(), port)
}

// Validate rejects configurations that cannot describe a discovery run.
func (c PortDetectionConfig) Validate() error {
	r := c.FrontendPortRange
	if !validPort(r.Start) || !validPort(r.End) {
		return errors.Newf("invalid frontend port range %s", r)
	}
	if r.End < r.Start {
		return errors.Newf("frontend port range %s is inverted", r)
	}
	if !validPort(c.BackendPort) {
		return errors.Newf("invalid backend port %d", c.BackendPort)
	}
	if c.Timeout <= 0 {
		return errors.Newf("timeout must be positive, got %s", c.Timeout)
	}
	if c.RetryAttempts < 1 {
		return errors.Newf("retry attempts must be at least 1, got %d", c.RetryAttempts)
	}
	if c.RetryDelay < 0 {
		return errors.Newf("retry delay must not be negative, got %s", c.RetryDelay)
	}
	return nil
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

// Load reads a YAML file on top of the defaults. Keys missing from the
// file keep their default values.
func Load(configPath string) (PortDetectionConfig, error) {
	cfg := DefaultPortDetectionConfig()
	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config file %s", configPath)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config file %s", configPath)
	}
	return cfg, nil
}

// LoadDefault loads the file named by $FINCHAT_E2E_CONFIG, or returns the
// defaults when the variable is unset.
func LoadDefault() (PortDetectionConfig, error) {
	path := os.Getenv(ConfigFileEnv)
	if path == "" {
		return DefaultPortDetectionConfig(), nil
	}
	return Load(path)
}
