package portprobe

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freePort asks the kernel for a port and releases it immediately.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestIsPortInUseFreePortIsRepeatable(t *testing.T) {
	port := freePort(t)

	for i := 0; i < 3; i++ {
		assert.False(t, IsPortInUse(port, time.Second), "attempt %d", i)
	}

	// the probe must not leave its own listener behind
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	require.NoError(t, err)
	ln.Close()
}

func TestIsPortInUseDetectsListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	assert.True(t, IsPortInUse(port, time.Second))
}

func TestIsPortInUseReleasesAfterListenerCloses(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	require.True(t, IsPortInUse(port, time.Second))
	require.NoError(t, ln.Close())
	assert.False(t, IsPortInUse(port, time.Second))
}

func TestIsPortInUseZeroTimeoutUsesDefault(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	for i := 0; i < 20; i++ {
		require.True(t, IsPortInUse(port, 0), "attempt %d", i)
	}
}

// closeTracker reports when the wrapped listener is closed.
type closeTracker struct {
	net.Listener
	closed chan struct{}
}

func (l *closeTracker) Close() error {
	close(l.closed)
	return l.Listener.Close()
}

func TestIsPortInUseBindTimeoutFailsOpen(t *testing.T) {
	port := freePort(t)
	release := make(chan struct{})
	late := &closeTracker{closed: make(chan struct{})}

	orig := listen
	listen = func(network, address string) (net.Listener, error) {
		<-release
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, err
		}
		late.Listener = ln
		return late, nil
	}
	t.Cleanup(func() { listen = orig })

	start := time.Now()
	assert.False(t, IsPortInUse(port, 50*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)

	// the hung bind completes after the probe gave up
	close(release)
	select {
	case <-late.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("late listener was not closed")
	}
}
