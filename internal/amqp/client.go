// Package amqp decouples transaction writes from the spreadsheet export
// worker through a durable RabbitMQ queue.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key matches the queue name on a direct exchange.
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishSync queues a transaction for spreadsheet export.
func (c *Client) PublishSync(ctx context.Context, id string, version int64) error {
	env, err := NewEnvelope(KindSync, SyncMessage{ID: id, Version: version})
	if err != nil {
		return fmt.Errorf("build sync message: %w", err)
	}
	if err := c.publish(ctx, env); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published transaction sync message",
		"id", id,
		"version", version,
		"queue", c.queueName)
	return nil
}

// PublishDelete queues a transaction removal for the spreadsheet.
func (c *Client) PublishDelete(ctx context.Context, id string) error {
	env, err := NewEnvelope(KindDelete, DeleteMessage{ID: id})
	if err != nil {
		return fmt.Errorf("build delete message: %w", err)
	}
	if err := c.publish(ctx, env); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published transaction delete message", "id", id, "queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, env *Envelope) error {
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Consume delivers queue messages to the handlers with manual acks. A
// handler error requeues the message; a poison message is dropped.
func (c *Client) Consume(ctx context.Context, onSync func(context.Context, *SyncMessage) error, onDelete func(context.Context, *DeleteMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming export messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			env, err := EnvelopeFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := c.dispatch(ctx, env, onSync, onDelete); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message", "error", err, "kind", env.Kind)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, env *Envelope, onSync func(context.Context, *SyncMessage) error, onDelete func(context.Context, *DeleteMessage) error) error {
	switch env.Kind {
	case KindSync:
		msg, err := env.Sync()
		if err != nil {
			return fmt.Errorf("decode sync payload: %w", err)
		}
		return onSync(ctx, msg)
	case KindDelete:
		msg, err := env.Delete()
		if err != nil {
			return fmt.Errorf("decode delete payload: %w", err)
		}
		return onDelete(ctx, msg)
	default:
		return fmt.Errorf("unknown message kind: %s", env.Kind)
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
