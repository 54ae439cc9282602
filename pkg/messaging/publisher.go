package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/nexus-community/backend/config"
)

// Publisher announces committed state changes to a message broker.
// Delivery is at-most-once and fire-and-forget: a send failure is logged and
// swallowed, and callers must never depend on event receipt for correctness.
// Implementations are safe for concurrent use by many in-flight requests.
type Publisher interface {
	// Connect establishes the broker connection. A failure leaves the
	// publisher in stub state (publishes become log-only no-ops) and does
	// not fail startup.
	Connect(ctx context.Context) error
	// Close releases the broker connection.
	Close() error
	// Publish sends the envelope using the given routing key.
	Publish(ctx context.Context, event Event, routingKey string) error
}

// PublishEvent builds the envelope for eventType and publishes it with the
// event type as routing key. Errors never propagate to mutation outcomes;
// callers may ignore the return value.
func PublishEvent(ctx context.Context, p Publisher, eventType EventType, payload, metadata map[string]interface{}) error {
	event := NewEvent(eventType, payload, metadata)
	return p.Publish(ctx, event, string(eventType))
}

// New selects a publisher backend from configuration. Unknown types warn and
// fall back to the stub so a misconfigured broker never blocks the service.
func New(cfg config.BrokerConfig, logger *zap.Logger) Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Type {
	case "kafka":
		return NewKafkaPublisher(cfg, logger)
	case "rabbitmq":
		return NewRabbitPublisher(cfg, logger)
	case "stub", "none", "":
		return NewStubPublisher(logger)
	default:
		logger.Warn("unknown broker type, using stub publisher", zap.String("type", cfg.Type))
		return NewStubPublisher(logger)
	}
}

// StubPublisher logs events and performs no network I/O. It is the
// compiled-in degradation target for every backend and the default when no
// broker is configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher creates a log-only publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

func (s *StubPublisher) Connect(ctx context.Context) error { return nil }

func (s *StubPublisher) Close() error { return nil }

func (s *StubPublisher) Publish(ctx context.Context, event Event, routingKey string) error {
	s.logger.Debug("stub publisher: event dropped",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID),
		zap.String("routing_key", routingKey))
	return nil
}
