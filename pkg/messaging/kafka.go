package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/config"
)

// KafkaWriter is the subset of kafka.Writer the publisher needs. Tests inject
// a fake to observe written messages.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes envelopes to Kafka topics named
// "<prefix>.<routing-key>". When the broker is unreachable at Connect time it
// stays in stub state and publishes become log-only no-ops.
type KafkaPublisher struct {
	brokers        []string
	topicPrefix    string
	publishTimeout time.Duration
	logger         *zap.Logger

	// writer is swapped by Connect and Close while requests publish
	// concurrently; the writer itself is safe for concurrent use.
	mu     sync.RWMutex
	writer KafkaWriter
}

// NewKafkaPublisher creates an unconnected Kafka publisher.
func NewKafkaPublisher(cfg config.BrokerConfig, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.PublishTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaPublisher{
		brokers:        cfg.KafkaBrokers,
		topicPrefix:    cfg.KafkaTopicPrefix,
		publishTimeout: timeout,
		logger:         logger,
	}
}

// NewKafkaPublisherWithWriter injects a writer directly. Used by tests.
func NewKafkaPublisherWithWriter(w KafkaWriter, topicPrefix string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		topicPrefix:    topicPrefix,
		publishTimeout: 5 * time.Second,
		writer:         w,
		logger:         logger,
	}
}

// Connect verifies broker reachability and prepares the writer. On failure
// the publisher remains in stub state; startup proceeds without a broker.
func (p *KafkaPublisher) Connect(ctx context.Context) error {
	if len(p.brokers) == 0 {
		p.logger.Warn("no kafka brokers configured, publisher in stub state")
		return nil
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		p.logger.Warn("kafka unreachable, publisher in stub state",
			zap.Strings("brokers", p.brokers), zap.Error(err))
		return nil
	}
	_ = conn.Close()

	p.mu.Lock()
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Balancer:               &kafka.LeastBytes{},
		WriteTimeout:           p.publishTimeout,
		AllowAutoTopicCreation: true,
	}
	p.mu.Unlock()
	p.logger.Info("kafka publisher connected", zap.Strings("brokers", p.brokers))
	return nil
}

// Close shuts down the writer if connected.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	w := p.writer
	p.writer = nil
	p.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

// Publish writes the envelope to "<prefix>.<routingKey>". In stub state the
// event is logged and dropped. A write failure is logged and swallowed.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event, routingKey string) error {
	if routingKey == "" {
		routingKey = event.EventType
	}
	topic := fmt.Sprintf("%s.%s", p.topicPrefix, routingKey)

	p.mu.RLock()
	w := p.writer
	p.mu.RUnlock()
	if w == nil {
		p.logger.Debug("kafka stub: event dropped",
			zap.String("event_type", event.EventType), zap.String("event_id", event.EventID))
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()
	msg := kafka.Message{Topic: topic, Key: []byte(event.EventID), Value: body}
	if err := w.WriteMessages(writeCtx, msg); err != nil {
		p.logger.Error("kafka publish failed",
			zap.String("event_type", event.EventType), zap.String("topic", topic), zap.Error(err))
		return nil
	}
	p.logger.Info("event published to kafka",
		zap.String("event_type", event.EventType), zap.String("event_id", event.EventID), zap.String("topic", topic))
	return nil
}
