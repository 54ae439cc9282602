package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/config"
)

// RabbitPublisher publishes envelopes to a durable topic exchange with the
// event type as routing key. When the broker is unreachable at Connect time
// it stays in stub state and publishes become log-only no-ops.
type RabbitPublisher struct {
	url            string
	exchange       string
	publishTimeout time.Duration
	logger         *zap.Logger

	// amqp channels are not safe for concurrent publishes; requests
	// serialize through mu.
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitPublisher creates an unconnected RabbitMQ publisher.
func NewRabbitPublisher(cfg config.BrokerConfig, logger *zap.Logger) *RabbitPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.PublishTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RabbitPublisher{
		url:            cfg.RabbitURL,
		exchange:       cfg.RabbitExchange,
		publishTimeout: timeout,
		logger:         logger,
	}
}

// Connect dials the broker and declares the topic exchange. On failure the
// publisher remains in stub state; startup proceeds without a broker.
func (p *RabbitPublisher) Connect(ctx context.Context) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn("rabbitmq unreachable, publisher in stub state", zap.Error(err))
		return nil
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.logger.Warn("rabbitmq channel failed, publisher in stub state", zap.Error(err))
		return nil
	}
	if err := channel.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		p.logger.Warn("rabbitmq exchange declare failed, publisher in stub state", zap.Error(err))
		return nil
	}

	p.mu.Lock()
	p.conn = conn
	p.channel = channel
	p.mu.Unlock()
	p.logger.Info("rabbitmq publisher connected", zap.String("exchange", p.exchange))
	return nil
}

// Close releases the channel and connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.logger.Warn("rabbitmq channel close failed", zap.Error(err))
	}
	err := p.conn.Close()
	p.conn = nil
	p.channel = nil
	return err
}

// Publish sends the envelope as a persistent JSON message. In stub state the
// event is logged and dropped. A send failure is logged and swallowed.
func (p *RabbitPublisher) Publish(ctx context.Context, event Event, routingKey string) error {
	if routingKey == "" {
		routingKey = event.EventType
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		p.logger.Debug("rabbitmq stub: event dropped",
			zap.String("event_type", event.EventType), zap.String("event_id", event.EventID))
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()
	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("rabbitmq publish failed",
			zap.String("event_type", event.EventType), zap.String("routing_key", routingKey), zap.Error(err))
		return nil
	}
	p.logger.Info("event published to rabbitmq",
		zap.String("event_type", event.EventType), zap.String("event_id", event.EventID), zap.String("routing_key", routingKey))
	return nil
}
