package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/notify"
)

// MessageType — тип сообщения.
type MessageType string

const (
	MessageTypeAlertBatch   MessageType = "alert.batch"
	MessageTypeRunCompleted MessageType = "run.completed"
	MessageTypeRunRequested MessageType = "run.requested"
)

// Message — конверт любого сообщения.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// RunRequestedPayload — команда запустить проверку или оптимизацию.
type RunRequestedPayload struct {
	// Purpose: health или optimization.
	Purpose string `json:"purpose"`

	// RequestedBy — кто запросил (для логов).
	RequestedBy string `json:"requestedBy,omitempty"`
}

// EventPublisher публикует событие с JSON payload.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key RoutingKey, msgType MessageType, payload any) error
}

// Publisher публикует сообщения через Connection.
type Publisher struct {
	conn   *Connection
	now    func() time.Time
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, now: time.Now, logger: logger}
}

// NewMessage оборачивает payload в Message.
func NewMessage(msgType MessageType, payload any, at time.Time) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: at,
	}, nil
}

// Publish отправляет msg в exchange с routingKey.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message, persistent bool) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	mode := amqp.Transient
	if persistent {
		mode = amqp.Persistent
	}

	return p.conn.WithChannel(func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx, string(exchange), string(routingKey), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: mode,
			MessageId:    msg.ID,
			Type:         string(msg.Type),
			Timestamp:    msg.Timestamp,
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishEvent публикует событие в sentinel.events.
func (p *Publisher) PublishEvent(ctx context.Context, key RoutingKey, msgType MessageType, payload any) error {
	msg, err := NewMessage(msgType, payload, p.now())
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeEvents, key, msg, false)
}

// RequestRun публикует команду запуска в sentinel.commands.
func (p *Publisher) RequestRun(ctx context.Context, payload RunRequestedPayload) error {
	msg, err := NewMessage(MessageTypeRunRequested, payload, p.now())
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeCommands, RoutingKeyRunRequested, msg, true)
}

// RunNotifier публикует run.completed по завершении run.
type RunNotifier struct {
	publisher EventPublisher
}

// NewRunNotifier создаёт RunNotifier.
func NewRunNotifier(p EventPublisher) *RunNotifier {
	return &RunNotifier{publisher: p}
}

// Notify публикует RunCompletedEvent.
func (n *RunNotifier) Notify(ctx context.Context, result *domain.WorkflowRunResult) error {
	return n.publisher.PublishEvent(ctx, RoutingKeyRunCompleted, MessageTypeRunCompleted, notify.NewRunCompletedEvent(result))
}
