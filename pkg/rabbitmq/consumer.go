package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/maxrbv/audio-stereo-split-service/pkg/types"
	"github.com/maxrbv/audio-stereo-split-service/pkg/worker"
)

// Consumer pulls split requests off the queue and feeds them to the worker
// handler. Delivery is at-least-once: the handler is only acked after it
// returns nil, so a crash mid-message leads to redelivery.
type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	handler   *worker.Handler
}

// NewConsumer creates a new RabbitMQ consumer
func NewConsumer(rabbitURL, queueName string, handler *worker.Handler) (*Consumer, error) {
	conn, err := connectWithRetry(rabbitURL, 10, 5*time.Second)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Declare queue
	_, err = channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	// One unacked message at a time per consumer
	if err := channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	log.Printf("✓ Connected to RabbitMQ, queue: %s\n", queueName)

	return &Consumer{
		conn:      conn,
		channel:   channel,
		queueName: queueName,
		handler:   handler,
	}, nil
}

// Start consumes messages until the context is cancelled or the channel
// closes.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Println("[*] Waiting for messages. To exit press CTRL+C")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.processDelivery(ctx, msg)
		}
	}
}

// processDelivery unmarshals one delivery and maps the handler outcome to
// ack/nack. Permanent failures are dropped so the same malformed content
// doesn't loop through the queue forever; transient failures are requeued.
func (c *Consumer) processDelivery(ctx context.Context, msg amqp.Delivery) {
	var splitMsg types.SplitMessage
	if err := json.Unmarshal(msg.Body, &splitMsg); err != nil {
		log.Printf("[✗] Failed to parse message: %v\n", err)
		msg.Nack(false, false)
		return
	}

	if err := c.handler.Handle(ctx, &splitMsg); err != nil {
		if worker.IsPermanent(err) {
			log.Printf("[✗] Permanent failure for message %s: %v\n", splitMsg.MessageID, err)
			msg.Nack(false, false)
		} else {
			log.Printf("[!] Transient failure for message %s, requeueing: %v\n", splitMsg.MessageID, err)
			msg.Nack(false, true)
		}
		return
	}

	msg.Ack(false)
}

// Close closes the consumer connection
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
