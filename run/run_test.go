package run

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhd2015/less-gen/flags"

	"github.com/xhd2015/finchat-e2e/server/config"
	"github.com/xhd2015/finchat-e2e/server/readiness"
)

func TestResolveDefaults(t *testing.T) {
	t.Setenv(config.ConfigFileEnv, "")

	var opts commonOptions
	cfg, err := opts.resolve()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPortDetectionConfig(), cfg)
}

func TestResolveFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e2e.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend_port: 9000\nretry_attempts: 7\n"), 0644))

	opts := commonOptions{
		configFile:    path,
		frontendStart: 5173,
		frontendEnd:   5175,
		timeout:       "250ms",
		retryDelay:    "1s",
		hmr:           true,
	}
	cfg, err := opts.resolve()
	require.NoError(t, err)

	assert.Equal(t, config.PortRange{Start: 5173, End: 5175}, cfg.FrontendPortRange)
	assert.Equal(t, 9000, cfg.BackendPort)
	assert.Equal(t, 7, cfg.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.True(t, cfg.CheckHMR)
}

func TestResolveRejectsBadValues(t *testing.T) {
	t.Setenv(config.ConfigFileEnv, "")

	_, err := (&commonOptions{timeout: "soon"}).resolve()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--timeout")

	_, err = (&commonOptions{frontendStart: 4000, frontendEnd: 3000}).resolve()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inverted")
}

func TestParseHeader(t *testing.T) {
	k, v, err := parseHeader("Authorization: Bearer abc:def")
	require.NoError(t, err)
	assert.Equal(t, "Authorization", k)
	assert.Equal(t, "Bearer abc:def", v)

	_, _, err = parseHeader("no-colon")
	assert.Error(t, err)
}

func TestRunUnknownCommand(t *testing.T) {
	err := Run([]string{"frobnicate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: frobnicate")
}

func TestRunCheckPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	assert.NoError(t, Run([]string{"check-port", "--port", strconv.Itoa(port)}))

	ln.Close()
	err = Run([]string{"check-port", "--port", strconv.Itoa(port)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is free")
}

func TestCommonOptionsBind(t *testing.T) {
	var opts commonOptions
	var port int
	args, err := opts.bind(flags.Int("--port", &port)).Parse([]string{
		"--port", "3001",
		"--config", "e2e.yaml",
		"--frontend-start", "5173",
		"--frontend-end", "5180",
		"--backend-port", "9000",
		"--host", "127.0.0.1",
		"--timeout", "1s",
		"--health-path", "/healthz",
		"--retries", "5",
		"--retry-delay", "100ms",
		"--hmr",
		"--verbose",
		"extra",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"extra"}, args)
	assert.Equal(t, 3001, port)
	assert.Equal(t, commonOptions{
		configFile:    "e2e.yaml",
		frontendStart: 5173,
		frontendEnd:   5180,
		backendPort:   9000,
		host:          "127.0.0.1",
		timeout:       "1s",
		healthPath:    "/healthz",
		retries:       5,
		retryDelay:    "100ms",
		hmr:           true,
		verbose:       true,
	}, opts)
}

func TestErrorMessageIncludesHints(t *testing.T) {
	err := errors.WithHint(errors.New("no frontend server reachable"), "start the dev server")
	err = errors.Wrap(err, "navigate")
	assert.Equal(t, "navigate: no frontend server reachable\nhint: start the dev server", ErrorMessage(err))

	assert.Equal(t, "port 3000 is free", ErrorMessage(errors.New("port 3000 is free")))
}

func TestNavigateOpenReportsBrowserFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	port := srv.Listener.Addr().(*net.TCPAddr).Port

	orig := openBrowser
	var opened []string
	openBrowser = func(url string) error {
		opened = append(opened, url)
		return errors.New("xdg-open: executable file not found in $PATH")
	}
	t.Cleanup(func() { openBrowser = orig })

	cfg := config.DefaultPortDetectionConfig()
	cfg.Host = "127.0.0.1"
	cfg.FrontendPortRange = config.PortRange{Start: port, End: port}

	url, err := readiness.AutoNavigateToFrontend(context.Background(), systemBrowser{}, cfg)
	require.Error(t, err)
	assert.Equal(t, []string{url}, opened)
	assert.Contains(t, err.Error(), "navigate to "+url)
	assert.Contains(t, err.Error(), "xdg-open")
}
