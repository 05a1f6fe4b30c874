package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the publisher needs
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher implements domain.Publisher on a RabbitMQ exchange.
// The topic is used as the routing key.
type Publisher struct {
	channel  channel
	exchange string
}

// NewPublisher creates a Publisher on an already declared exchange
func NewPublisher(ch *amqp.Channel, exchange string) *Publisher {
	return &Publisher{channel: ch, exchange: exchange}
}

// DeclareExchange declares the durable topic exchange events are published on
func DeclareExchange(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}
	return nil
}

// Publish sends a persistent JSON message with the topic as routing key
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	err := p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		topic,      // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}
