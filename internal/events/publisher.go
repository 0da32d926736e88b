// Package events fans audit activity out to RabbitMQ for downstream
// consumers. Publishing is best effort: failures are logged and returned so
// callers can ignore them without interrupting the request.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/blacktie/internal/utils"
)

// ActivityQueue is the durable queue activity events are routed to.
const ActivityQueue = "blacktie.activity"

// ActivityEvent is the message body published for every audit entry.
type ActivityEvent struct {
	ID          uuid.UUID      `json:"id"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    *uuid.UUID     `json:"entity_id,omitempty"`
	Description string         `json:"description"`
	Actor       string         `json:"actor"`
	Details     map[string]any `json:"details,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// Publisher delivers activity events.
type Publisher interface {
	PublishActivity(ctx context.Context, event ActivityEvent) error
}

// NopPublisher drops every event. It is used when RABBITMQ_URL is unset.
type NopPublisher struct{}

func (NopPublisher) PublishActivity(context.Context, ActivityEvent) error { return nil }

// AMQPPublisher keeps one connection and channel open and redials lazily
// after the broker drops them.
type AMQPPublisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher returns a publisher for url. No connection is made until
// the first publish.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: ActivityQueue}
}

// PublishActivity marshals event and publishes it as a persistent message on
// the default exchange.
func (p *AMQPPublisher) PublishActivity(ctx context.Context, event ActivityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		utils.ErrorLogger.Warnf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		utils.ErrorLogger.Warnf("rabbitmq: connect failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    event.ID.String(),
		Type:         event.EntityType + "." + event.Action,
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		utils.ErrorLogger.Warnf("rabbitmq: publish failed: %v", err)
		p.reset()
		return err
	}
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reset()
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	p.conn = conn
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) reset() error {
	var err error
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}
