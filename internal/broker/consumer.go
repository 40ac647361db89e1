package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Guizzs26/scorebook-sync/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MatchEventConsumer follows the notifications of one match, or of every
// match when matchID is empty.
type MatchEventConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
	matchID string
}

func NewMatchEventConsumer(url, matchID string, logger *slog.Logger) (*MatchEventConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := declareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// Prefetch 1 keeps delivery order per match
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &MatchEventConsumer{
		conn:    conn,
		channel: ch,
		logger:  logger,
		matchID: matchID,
	}, nil
}

// BindingKey is the topic pattern this consumer subscribes with.
func (c *MatchEventConsumer) BindingKey() string {
	if c.matchID == "" {
		return "match.#"
	}
	return fmt.Sprintf("match.%s.#", c.matchID)
}

// Listen delivers events to handle until ctx ends or the channel closes.
// Watchers are transient so the queue is exclusive and auto-deleted.
func (c *MatchEventConsumer) Listen(ctx context.Context, handle func(models.MatchEvent)) error {
	q, err := c.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := c.channel.QueueBind(q.Name, c.BindingKey(), MatchExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := c.channel.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Watching match events", "queue", q.Name, "binding_key", c.BindingKey())

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			var ev models.MatchEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				c.logger.Error("Failed to unmarshal match event", "error", err)
				d.Nack(false, false)
				continue
			}

			handle(ev)

			if err := d.Ack(false); err != nil {
				c.logger.Error("Failed to Ack match event", "event_id", ev.EventID, "error", err)
			}
		}
	}
}

func (c *MatchEventConsumer) Close() {
	c.logger.Info("Shutting down match event consumer")
	c.channel.Close()
	c.conn.Close()
}
