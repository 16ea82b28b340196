// Package comms bridges the orchestrator onto NATS: a request/reply
// responder for submissions and cancellations, and a forwarder that
// republishes lifecycle events from the in-memory bus.
package comms

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
)

// Connect opens a NATS connection named name that reconnects for up to
// two minutes and logs connection state changes.
func Connect(url, name string, logger logging.Logger) (*nats.Conn, error) {
	logger = logging.OrNop(logger).Bind("component", "nats")
	logger.Info("nats_connecting", "url", url, "name", name)

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats_disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("nats_connection_closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}

	logger.Info("nats_connected", "url", nc.ConnectedUrl())
	return nc, nil
}
