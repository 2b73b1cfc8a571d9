package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPermanent — сообщение нельзя обработать повторно, оно уходит в DLQ.
var ErrPermanent = errors.New("permanent message failure")

// Handler обрабатывает сообщение. Ошибка, обёрнутая в ErrPermanent,
// отправляет сообщение в DLQ; прочие ошибки возвращают его в очередь.
type Handler func(ctx context.Context, msg *Message) error

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	Queue    Queue
	Handler  Handler
	Prefetch int
	Logger   *slog.Logger
}

// Consumer читает очередь и вызывает Handler.
type Consumer struct {
	conn     *Connection
	queue    Queue
	handler  Handler
	prefetch int
	logger   *slog.Logger
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		conn:     conn,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
		logger:   logger.With("queue", cfg.Queue),
	}
}

// Run потребляет сообщения до отмены ctx, переживая переподключения.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started")
			c.drain(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
			c.logger.Info("reconnected, restarting consumer")
		}
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(string(c.queue), "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				c.logger.Warn("deliveries channel closed")
				return
			}
			c.handle(ctx, raw)
		}
	}
}

// ack — решение по сообщению.
type ack int

const (
	ackOK ack = iota
	ackRequeue
	ackReject
)

// decide разбирает тело и вызывает Handler.
func (c *Consumer) decide(ctx context.Context, body []byte) ack {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message", "error", err)
		return ackReject
	}

	c.logger.Debug("received message", "message_id", msg.ID, "type", msg.Type)

	if err := c.handler(ctx, &msg); err != nil {
		c.logger.Error("handler failed",
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		if errors.Is(err, ErrPermanent) {
			return ackReject
		}
		return ackRequeue
	}
	return ackOK
}

func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	var err error
	switch c.decide(ctx, raw.Body) {
	case ackOK:
		err = raw.Ack(false)
	case ackRequeue:
		err = raw.Nack(false, true)
	case ackReject:
		err = raw.Nack(false, false)
	}
	if err != nil {
		c.logger.Warn("failed to settle delivery", "error", err)
	}
}

// DecodePayload разбирает payload сообщения в T.
func DecodePayload[T any](msg *Message) (T, error) {
	var out T
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return out, fmt.Errorf("%w: decode %s payload: %w", ErrPermanent, msg.Type, err)
	}
	return out, nil
}
