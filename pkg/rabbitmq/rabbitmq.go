package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

const (
	// DefaultExchange is the topic exchange order events are published to.
	DefaultExchange = "smartbite.orders"
	// DefaultQueue receives every order event.
	DefaultQueue = "smartbite.order_events"
)

// channel is the subset of *amqp.Channel the client uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	queue    string
	logger   logrus.FieldLogger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
	Queue    string
}

func (c Config) withDefaults() Config {
	if c.Exchange == "" {
		c.Exchange = DefaultExchange
	}
	if c.Queue == "" {
		c.Queue = DefaultQueue
	}
	return c
}

// NewClient connects to RabbitMQ and declares the order exchange and queue.
func NewClient(cfg Config, logger logrus.FieldLogger) (*Client, error) {
	cfg = cfg.withDefaults()

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	client, err := newClientWithChannel(ch, cfg, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	client.conn = conn
	return client, nil
}

func newClientWithChannel(ch channel, cfg Config, logger logrus.FieldLogger) (*Client, error) {
	cfg = cfg.withDefaults()

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}
	// "order.#" matches order.placed and order.status_changed.
	if err := ch.QueueBind(cfg.Queue, "order.#", cfg.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue %s: %w", cfg.Queue, err)
	}

	logger.WithFields(logrus.Fields{"exchange": cfg.Exchange, "queue": cfg.Queue}).Info("RabbitMQ client ready")

	return &Client{
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		logger:   logger,
	}, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishJSON marshals payload and publishes it with the given routing key.
func (c *Client) PublishJSON(ctx context.Context, routingKey string, payload any) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", routingKey, err)
	}

	err = c.channel.Publish(
		c.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	c.logger.WithField("routing_key", routingKey).Debug("published event")
	return nil
}

// Consume delivers every message on the order queue to handler until ctx is
// done or the channel closes. Messages are acked on success and requeued once
// on failure; a redelivered message that fails again is dropped.
func (c *Client) Consume(ctx context.Context, handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c.handle(msg, handler)
			}
		}
	}()
	return nil
}

func (c *Client) handle(msg amqp.Delivery, handler func(msg amqp.Delivery) error) {
	log := c.logger.WithFields(logrus.Fields{"delivery_tag": msg.DeliveryTag, "routing_key": msg.RoutingKey})

	if err := handler(msg); err != nil {
		log.WithError(err).Warn("failed to process message")
		if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
			log.WithError(nackErr).Error("failed to nack message")
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		log.WithError(ackErr).Error("failed to ack message")
	}
}
