// Package notifier delivers ledger events to the out-of-process
// notification sink over RabbitMQ. The engine only hands events off; alert
// formatting and delivery belong to the consumer.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/srgjo27/floor_ledger/internal/core/domain"
)

const exchangeName = "ledger.events"

type RabbitMQNotifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.RWMutex
}

func NewRabbitMQNotifier(url string) (*RabbitMQNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchangeName, err)
	}

	return &RabbitMQNotifier{conn: conn, channel: channel}, nil
}

// Publish routes the event by its type, e.g. "order.held" or
// "chair.conflict", so sinks can bind to the slice of events they render.
func (n *RabbitMQNotifier) Publish(ctx context.Context, event domain.LedgerEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	err = n.channel.PublishWithContext(
		ctx,
		exchangeName,    // exchange
		event.EventType, // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (n *RabbitMQNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
