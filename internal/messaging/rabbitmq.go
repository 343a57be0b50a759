package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/soaringjerry/hireflow/internal/services"
)

// RabbitMQPublisher publishes JSON events to durable queues. Queues are
// declared lazily on first use.
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel

	mu       sync.Mutex
	declared map[string]bool
}

var _ services.EventPublisher = (*RabbitMQPublisher)(nil)

func NewRabbitMQPublisher(url string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &RabbitMQPublisher{conn: conn, channel: ch, declared: map[string]bool{}}, nil
}

func (p *RabbitMQPublisher) DeclareQueue(queueName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declared[queueName] {
		return nil
	}
	_, err := p.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	p.declared[queueName] = true
	return nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, queueName string, body []byte) error {
	if err := p.DeclareQueue(queueName); err != nil {
		return err
	}
	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx, "", queueName, false, false, message(body, time.Now()))
}

func (p *RabbitMQPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func message(body []byte, at time.Time) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    at,
	}
}
