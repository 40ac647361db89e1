package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Guizzs26/scorebook-sync/internal/models"
	"github.com/Guizzs26/scorebook-sync/pkg/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MatchExchange is the topic exchange carrying in-game notifications.
const MatchExchange = "scorebook.match.events"

// RoutingKey is match.<matchID>.<eventType>.
func RoutingKey(ev models.MatchEvent) string {
	return fmt.Sprintf("match.%s.%s", ev.MatchID, ev.Type)
}

// RabbitMQClient publishes match events with Publisher Confirms enabled
type RabbitMQClient struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	logger     *slog.Logger
	connClosed chan *amqp.Error
	chanClosed chan *amqp.Error
	closeOnce  sync.Once
	pubMu      sync.Mutex
	healthy    atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewRabbitMQClient(url string, l *slog.Logger) (*RabbitMQClient, error) {
	c, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := c.Channel()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	if err := declareExchange(ch); err != nil {
		ch.Close()
		c.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		c.Close()
		return nil, fmt.Errorf("failed to activate Publisher Confirms: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &RabbitMQClient{
		conn:       c,
		channel:    ch,
		logger:     l,
		connClosed: make(chan *amqp.Error, 1),
		chanClosed: make(chan *amqp.Error, 1),
		ctx:        ctx,
		cancel:     cancel,
	}

	client.healthy.Store(true)
	metrics.BrokerHealthy.Set(1)

	client.conn.NotifyClose(client.connClosed)
	client.channel.NotifyClose(client.chanClosed)

	go client.monitor()

	l.Info("Connected to RabbitMQ, publishing match events", "exchange", MatchExchange)
	return client, nil
}

func declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(MatchExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare topic exchange: %w", err)
	}
	return nil
}

func (r *RabbitMQClient) monitor() {
	select {
	case err := <-r.connClosed:
		r.healthy.Store(false)
		metrics.BrokerHealthy.Set(0)
		r.logger.Warn("RabbitMQ connection closed", "error", err)
	case err := <-r.chanClosed:
		r.healthy.Store(false)
		metrics.BrokerHealthy.Set(0)
		r.logger.Warn("RabbitMQ channel closed", "error", err)
	case <-r.ctx.Done():
	}
}

// PublishMatchEvent sends ev and blocks until the broker confirms it.
func (r *RabbitMQClient) PublishMatchEvent(ctx context.Context, ev models.MatchEvent) error {
	if !r.IsHealthy() {
		return fmt.Errorf("broker connection is closed")
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	routingKey := RoutingKey(ev)

	// Confirms are tracked per channel; serialize publishers sharing it.
	r.pubMu.Lock()
	deferred, err := r.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		MatchExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			MessageId:    ev.EventID,
			Type:         ev.Type,
			Timestamp:    ev.Timestamp,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	r.pubMu.Unlock()
	if err != nil {
		r.logger.Error("failed to publish match event", "routing_key", routingKey, "error", err)
		return fmt.Errorf("publish call failed: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-deferred.Done():
		if !deferred.Acked() {
			return fmt.Errorf("RabbitMQ NACK received for %s", routingKey)
		}
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("publisher confirm timeout")
	}
}

func (r *RabbitMQClient) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("Terminating RabbitMQ client")
		r.cancel()
		if r.channel != nil {
			r.channel.Close()
		}
		if r.conn != nil {
			r.conn.Close()
		}
	})
	return nil
}

func (r *RabbitMQClient) IsHealthy() bool {
	return r.healthy.Load()
}
