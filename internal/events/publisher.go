package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// Publisher hands scan events to the analytics pipeline. Implementations
// must not be relied on for the redirect outcome; callers fire and forget.
type Publisher interface {
	Publish(ctx context.Context, event ScanEvent) error
}

type rabbitPublisher struct {
	ch    *amqp091.Channel
	queue string
}

// NewRabbitPublisher declares the durable scan queue and returns a
// publisher bound to it.
func NewRabbitPublisher(ch *amqp091.Channel, queue string) (Publisher, error) {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}
	return &rabbitPublisher{ch: ch, queue: queue}, nil
}

func (p *rabbitPublisher) Publish(ctx context.Context, event ScanEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal scan event: %w", err)
	}

	err = p.ch.PublishWithContext(
		ctx,
		"", p.queue, false, false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish scan event: %w", err)
	}
	return nil
}
