package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const changesExchange = "studwerk.changes"

// AMQPPublisher publishes changes to a topic exchange, routing key
// "<entity>.<action>".
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	// Declaring the exchange is idempotent; safe if it already exists.
	if err := ch.ExchangeDeclare(changesExchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, changes ...Change) error {
	for _, change := range changes {
		body, err := json.Marshal(change)
		if err != nil {
			return err
		}
		routingKey := string(change.Entity) + "." + string(change.Action)
		err = p.ch.PublishWithContext(ctx, changesExchange, routingKey, false, false, amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now().UTC(),
			Body:        body,
		})
		if err != nil {
			return fmt.Errorf("failed to publish change: %w", err)
		}
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
