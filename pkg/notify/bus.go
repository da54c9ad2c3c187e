package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/cartshop/pkg/config"
	"github.com/example/cartshop/pkg/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// BusNotifier publishes OrderPlaced events to a topic exchange.
type BusNotifier struct {
	conn       *amqp.Connection
	channel    publisher
	exchange   string
	routingKey string
}

func NewBusNotifier(cfg *config.RabbitMQConfig) (*BusNotifier, error) {
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("exchange name cannot be empty")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	return &BusNotifier{conn: conn, channel: channel, exchange: cfg.Exchange, routingKey: cfg.RoutingKey}, nil
}

func (n *BusNotifier) Notify(ctx context.Context, order *models.Order) error {
	body, err := json.Marshal(NewOrderPlaced(order))
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = n.channel.PublishWithContext(ctx, n.exchange, n.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("order-%d", order.ID),
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to exchange %s with routing key %s: %w", n.exchange, n.routingKey, err)
	}
	return nil
}

func (n *BusNotifier) Close() error {
	if c, ok := n.channel.(*amqp.Channel); ok {
		if err := c.Close(); err != nil {
			return err
		}
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
