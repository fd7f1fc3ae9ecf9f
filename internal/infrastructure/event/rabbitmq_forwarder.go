package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	appcatalog "github.com/storefront/merchandising/internal/application/catalog"
	"github.com/storefront/merchandising/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	dialAttempts              = 5
	danglingPlacementRouteKey = "placement.dangling"
)

// amqpChannel is the subset of *amqp.Channel the forwarder uses
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	Close() error
}

// RabbitMQForwarder forwards domain events to a durable topic exchange so
// storefront caches and search indexers can react to taxonomy changes.
// It is subscribed to the in-memory bus as a wildcard handler.
type RabbitMQForwarder struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  amqpChannel
	exchange string
	source   string
	timeout  time.Duration
	logger   *zap.Logger
}

// DialRabbitMQForwarder connects with retries, enables publisher confirms
// and declares the exchange.
func DialRabbitMQForwarder(url, exchange, source string, timeout time.Duration, logger *zap.Logger) (*RabbitMQForwarder, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	f, err := newRabbitMQForwarder(ch, exchange, source, timeout, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	f.conn = conn
	logger.Info("RabbitMQ forwarder connected", zap.String("exchange", exchange))
	return f, nil
}

func newRabbitMQForwarder(ch amqpChannel, exchange, source string, timeout time.Duration, logger *zap.Logger) (*RabbitMQForwarder, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &RabbitMQForwarder{
		channel:  ch,
		exchange: exchange,
		source:   source,
		timeout:  timeout,
		logger:   logger.Named("rabbitmq"),
	}, nil
}

// EventTypes returns nil so the forwarder receives every event
func (f *RabbitMQForwarder) EventTypes() []string {
	return nil
}

// Handle forwards one domain event
func (f *RabbitMQForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	body, err := Encode(event, f.source)
	if err != nil {
		return err
	}
	return f.publish(ctx, RoutingKey(event.EventType()), event.EventID().String(), event.OccurredAt(), body)
}

// NotifyDanglingPlacement publishes a notice that a deleted category is
// still placed, for the merchant back office to pick up.
func (f *RabbitMQForwarder) NotifyDanglingPlacement(ctx context.Context, n appcatalog.DanglingPlacementNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return f.publish(ctx, danglingPlacementRouteKey, "", time.Now(), body)
}

func (f *RabbitMQForwarder) publish(ctx context.Context, routingKey, messageID string, ts time.Time, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    ts,
		AppId:        f.source,
		Body:         body,
	}

	f.mu.Lock()
	confirm, err := f.channel.PublishWithDeferredConfirmWithContext(ctx, f.exchange, routingKey, false, false, msg)
	f.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	// confirm is nil when the channel is not in confirm mode
	if confirm != nil {
		acked, err := confirm.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("publish confirmation for %s: %w", routingKey, err)
		}
		if !acked {
			return errors.New("message was not acknowledged by broker")
		}
	}

	f.logger.Debug("event forwarded",
		zap.String("exchange", f.exchange),
		zap.String("routing_key", routingKey))
	return nil
}

// Close closes the channel and connection
func (f *RabbitMQForwarder) Close() error {
	var errs []error
	if f.channel != nil {
		errs = append(errs, f.channel.Close())
	}
	if f.conn != nil {
		errs = append(errs, f.conn.Close())
	}
	return errors.Join(errs...)
}

var (
	_ shared.EventHandler                  = (*RabbitMQForwarder)(nil)
	_ appcatalog.DanglingPlacementNotifier = (*RabbitMQForwarder)(nil)
)
