package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPortDetectionConfig(t *testing.T) {
	cfg := DefaultPortDetectionConfig()

	assert.Equal(t, PortRange{Start: 3000, End: 3010}, cfg.FrontendPortRange)
	assert.Equal(t, 8000, cfg.BackendPort)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "/", cfg.HealthCheckPath)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.False(t, cfg.CheckHMR)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "e2e.yaml")
	content := `
frontend_port_range:
  start: 5173
  end: 5180
timeout: 500ms
retry_delay: 50ms
health_check_path: healthz
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, PortRange{Start: 5173, End: 5180}, cfg.FrontendPortRange)
	assert.Equal(t, 500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, "/healthz", cfg.GetHealthCheckPath())
	// untouched keys keep defaults
	assert.Equal(t, DefaultBackendPort, cfg.BackendPort)
	assert.Equal(t, DefaultRetryAttempts, cfg.RetryAttempts)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frontend_port_range: {start: 3010, end: 3000}\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inverted")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadDefaultFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e2e.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend_port: 8080\n"), 0644))
	t.Setenv(ConfigFileEnv, path)

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.BackendPort)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PortDetectionConfig)
		wantErr string
	}{
		{"zero start", func(c *PortDetectionConfig) { c.FrontendPortRange.Start = 0 }, "invalid frontend port range"},
		{"backend too large", func(c *PortDetectionConfig) { c.BackendPort = 70000 }, "invalid backend port"},
		{"zero timeout", func(c *PortDetectionConfig) { c.Timeout = 0 }, "timeout must be positive"},
		{"no attempts", func(c *PortDetectionConfig) { c.RetryAttempts = 0 }, "retry attempts"},
		{"negative delay", func(c *PortDetectionConfig) { c.RetryDelay = -time.Second }, "retry delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPortDetectionConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHelpers(t *testing.T) {
	var cfg PortDetectionConfig
	assert.Equal(t, "localhost", cfg.GetHost())
	assert.Equal(t, "/", cfg.GetHealthCheckPath())
	assert.Equal(t, 1, cfg.GetRetryAttempts())
	assert.Equal(t, DefaultTimeout, cfg.GetTimeout())
	cfg.Timeout = -time.Second
	assert.Equal(t, DefaultTimeout, cfg.GetTimeout())
	cfg.Timeout = 250 * time.Millisecond
	assert.Equal(t, 250*time.Millisecond, cfg.GetTimeout())
	assert.Equal(t, "http://localhost:3002", cfg.BaseURL(3002))

	r := PortRange{Start: 3000, End: 3010}
	assert.Equal(t, 11, r.Size())
	assert.True(t, r.Contains(3010))
	assert.False(t, r.Contains(3011))
	assert.Equal(t, 0, PortRange{Start: 5, End: 4}.Size())
}
