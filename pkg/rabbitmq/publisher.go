package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const confirmTimeout = 5 * time.Second

type Publisher struct {
	mu         sync.Mutex                   // one publish-and-confirm at a time
	ch         *amqp091.Channel             // AMQP channel for publishing messages
	confirms   <-chan amqp091.Confirmation // Channel to receive publish confirmations
	exchange   string                       // Exchange to publish messages to
	routingKey string                       // Routing key for the messages
}

func NewPublisher(conn *amqp091.Connection, exchange, routingKey string) (*Publisher, error) {

	if conn == nil {
		return nil, errors.New("AMQP connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, err
	}

	confirms := ch.NotifyPublish(make(chan amqp091.Confirmation, 100))

	return &Publisher{
		ch:         ch,
		confirms:   confirms,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// Publish wraps payload in an event envelope with a fresh id and waits for the broker confirm.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	body, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	return p.PublishBatch(ctx, [][]byte{body})
}

func (p *Publisher) PublishBatch(ctx context.Context, bodies [][]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, body := range bodies {
		if err := p.publish(ctx, body); err != nil {
			return err
		}
	}

	for range bodies {
		select {
		case confirm := <-p.confirms:
			if !confirm.Ack {
				return errors.New("confirmation not received for message")
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmTimeout):
			return errors.New("publish confirms timeout")
		}
	}

	return nil
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {

	if p.ch == nil {
		return errors.New("AMQP channel is nil")
	}

	return p.ch.PublishWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}

func NewEvent(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(EventPayload{
		ID:      uuid.NewString(),
		Type:    eventType,
		Payload: raw,
	})
}
