package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/shaiso/Sentinel/internal/mq"
	"github.com/shaiso/Sentinel/internal/notify"
)

// LogSink пишет алерты в лог.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink создаёт LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, b Batch) error {
	for _, a := range b.Alerts {
		s.logger.WarnContext(ctx, "alert",
			"source", b.Source,
			"run_id", b.RunID,
			"overall", b.Overall,
			"message", a,
		)
	}
	return nil
}

// WebhookSink отправляет пачку JSON-ом на webhook.
type WebhookSink struct {
	webhook *notify.Webhook
}

// NewWebhookSink создаёт WebhookSink.
func NewWebhookSink(w *notify.Webhook) *WebhookSink {
	return &WebhookSink{webhook: w}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Send(ctx context.Context, b Batch) error {
	return s.webhook.Post(ctx, b)
}

// AMQPSink публикует пачку в sentinel.events с ключом alert.<source>.
type AMQPSink struct {
	publisher mq.EventPublisher
}

// NewAMQPSink создаёт AMQPSink.
func NewAMQPSink(p mq.EventPublisher) *AMQPSink {
	return &AMQPSink{publisher: p}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Send(ctx context.Context, b Batch) error {
	return s.publisher.PublishEvent(ctx, mq.AlertRoutingKey(b.Source), mq.MessageTypeAlertBatch, b)
}

// DefaultRedisChannel — канал Redis для пачек алертов.
const DefaultRedisChannel = "sentinel:alerts"

// RedisSink публикует пачку в канал Redis (PUBLISH).
type RedisSink struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisSink создаёт RedisSink. Пустой channel — DefaultRedisChannel.
func NewRedisSink(client redis.UniversalClient, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Send(ctx context.Context, b Batch) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("redis sink: marshal batch: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis sink: publish %s: %w", s.channel, err)
	}
	return nil
}
