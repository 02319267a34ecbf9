package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerStatusJSONReportsMilliseconds(t *testing.T) {
	rt := 1500 * time.Microsecond
	s := ServerStatus{Port: 3002, Running: true, Accessible: true, ResponseTime: &rt, ServerType: ServerTypeFrontend}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(3002), got["port"])
	assert.Equal(t, 1.5, got["responseTimeMs"])
	assert.Equal(t, "frontend", got["serverType"])
	_, hasErr := got["error"]
	assert.False(t, hasErr)
}

func TestNotRunningOmitsResponseTime(t *testing.T) {
	s := NotRunning(8000, "Backend server not running")

	assert.False(t, s.Running)
	assert.False(t, s.Accessible)
	assert.Nil(t, s.ResponseTime)

	data, err := json.Marshal(s.WithType(ServerTypeBackend))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "responseTimeMs")
	assert.Contains(t, string(data), `"serverType":"backend"`)
}
