package comms

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/nats-io/nats.go"

	"github.com/GharaibehR/Chief-of-Staff/commbus"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
)

// DefaultEventPrefix is the subject prefix of forwarded events.
const DefaultEventPrefix = "chiefofstaff.events"

// ForwardedEvents are the bus events republished by an EventForwarder.
var ForwardedEvents = []string{
	"RequestStarted",
	"IntentClassified",
	"AgentStarted",
	"AgentCompleted",
	"ValidationFailed",
	"RequestCompleted",
}

// EventForwarder republishes lifecycle events from the in-memory bus to
// NATS as JSON on "<prefix>.<event_name>", e.g.
// chiefofstaff.events.request_completed.
//
// Publish failures are returned to the bus so a CircuitBreakerMiddleware on
// the bus can stop forwarding while the broker is unreachable.
type EventForwarder struct {
	nc     *nats.Conn
	bus    commbus.CommBus
	prefix string
	logger logging.Logger
	unsubs []func()
}

// NewEventForwarder creates an EventForwarder. An empty prefix uses DefaultEventPrefix.
func NewEventForwarder(nc *nats.Conn, bus commbus.CommBus, prefix string, logger logging.Logger) *EventForwarder {
	if prefix == "" {
		prefix = DefaultEventPrefix
	}
	return &EventForwarder{
		nc:     nc,
		bus:    bus,
		prefix: prefix,
		logger: logging.OrNop(logger).Bind("component", "event_forwarder"),
	}
}

// Start subscribes to every forwarded event type.
func (f *EventForwarder) Start() {
	for _, eventType := range ForwardedEvents {
		f.unsubs = append(f.unsubs, f.bus.Subscribe(eventType, f.forward))
	}
	f.logger.Info("event_forwarder_started", "prefix", f.prefix, "events", len(ForwardedEvents))
}

// Stop removes the bus subscriptions.
func (f *EventForwarder) Stop() {
	for _, unsub := range f.unsubs {
		unsub()
	}
	f.unsubs = nil
}

// Subject returns the NATS subject for a bus event type.
func (f *EventForwarder) Subject(eventType string) string {
	return f.prefix + "." + snakeCase(eventType)
}

func (f *EventForwarder) forward(ctx context.Context, msg commbus.Message) (any, error) {
	eventType := commbus.GetMessageType(msg)
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", eventType, err)
	}

	subject := f.Subject(eventType)
	if err := f.nc.Publish(subject, data); err != nil {
		return nil, fmt.Errorf("publishing %s: %w", subject, err)
	}
	f.logger.Debug("event_forwarded", "subject", subject)
	return nil, nil
}

// snakeCase converts an event type name such as "RequestCompleted" to
// "request_completed".
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
