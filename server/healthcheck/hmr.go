package healthcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"

	"github.com/xhd2015/finchat-e2e/server/config"
	"github.com/xhd2015/finchat-e2e/server/logs"
)

// HMRSubprotocol is the websocket subprotocol spoken by the Vite client.
const HMRSubprotocol = "vite-hmr"

type hmrMessage struct {
	Type string `json:"type"`
}

// VerifyHMR connects to the Vite hot-module-reload websocket on port and waits
// for the server's "connected" greeting. A dev server whose HTTP side is up
// but whose HMR socket is not yet accepting clients still reloads pages
// mid-test, so the e2e suite can opt into this stricter check.
func (v *Verifier) VerifyHMR(ctx context.Context, port int, cfg config.PortDetectionConfig) error {
	timeout := cfg.GetTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("ws://%s:%d/", cfg.GetHost(), port)
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		Subprotocols:     []string{HMRSubprotocol},
	}

	logs.Debugf("[hmr-check] dialing %s", url)
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return errors.Wrapf(err, "HMR handshake rejected with status %d", resp.StatusCode)
		}
		return errors.Wrap(err, "HMR websocket unreachable")
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(timeout)
	}
	conn.SetReadDeadline(deadline)

	var msg hmrMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return errors.Wrap(err, "no HMR greeting")
	}
	if msg.Type != "connected" {
		return errors.Newf("unexpected HMR greeting %q", msg.Type)
	}
	logs.Debugf("[hmr-check] %s connected", url)
	return nil
}
