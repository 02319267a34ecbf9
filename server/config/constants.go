package config

import "time"

// Network ports.
const (
	// DefaultFrontendPortStart is the first port the Vite dev server tries.
	DefaultFrontendPortStart = 3000

	// DefaultFrontendPortEnd is the last port scanned for the dev server.
	// Vite walks upwards when its preferred port is taken.
	DefaultFrontendPortEnd = 3010

	// DefaultBackendPort is the fixed port of the analysis API.
	DefaultBackendPort = 8000
)

// Probe defaults.
const (
	DefaultHost            = "localhost"
	DefaultTimeout         = 10 * time.Second
	DefaultHealthCheckPath = "/"
	DefaultRetryAttempts   = 3
	DefaultRetryDelay      = 2 * time.Second
)

// ConfigFileEnv names an optional YAML file read when --config is not given.
const ConfigFileEnv = "FINCHAT_E2E_CONFIG"
