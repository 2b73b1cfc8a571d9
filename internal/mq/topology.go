package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangeEvents   Exchange = "sentinel.events"
	ExchangeCommands Exchange = "sentinel.commands"
	ExchangeDLQ      Exchange = "sentinel.dlq"
)

const (
	QueueAlerts       Queue = "events.alerts"
	QueueRunsComplete Queue = "events.runs"
	QueueRunRequests  Queue = "commands.runs"
	QueueDLQCommands  Queue = "dlq.commands"
)

const (
	RoutingKeyRunCompleted RoutingKey = "run.completed"
	RoutingKeyRunRequested RoutingKey = "run.requested"
	RoutingKeyDLQCommands  RoutingKey = "commands"
)

// AlertRoutingKey — ключ пачки алертов из source (monitor, optimization).
func AlertRoutingKey(source string) RoutingKey {
	return RoutingKey("alert." + source)
}

type binding struct {
	queue    Queue
	key      string
	exchange Exchange
}

var topology = struct {
	exchanges []struct {
		name Exchange
		kind string
	}
	queues   []Queue
	bindings []binding
}{
	exchanges: []struct {
		name Exchange
		kind string
	}{
		{ExchangeEvents, amqp.ExchangeTopic},
		{ExchangeCommands, amqp.ExchangeDirect},
		{ExchangeDLQ, amqp.ExchangeDirect},
	},
	queues: []Queue{QueueAlerts, QueueRunsComplete, QueueRunRequests, QueueDLQCommands},
	bindings: []binding{
		{QueueAlerts, "alert.#", ExchangeEvents},
		{QueueRunsComplete, "run.#", ExchangeEvents},
		{QueueRunRequests, string(RoutingKeyRunRequested), ExchangeCommands},
		{QueueDLQCommands, string(RoutingKeyDLQCommands), ExchangeDLQ},
	},
}

// queueArgs — команды уходят в DLQ после nack без requeue.
func queueArgs(q Queue) amqp.Table {
	if q != QueueRunRequests {
		return nil
	}
	return amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQCommands),
	}
}

// SetupTopology объявляет exchanges, очереди и привязки. Идемпотентна.
func SetupTopology(conn *Connection) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		for _, ex := range topology.exchanges {
			if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range topology.queues {
			if _, err := ch.QueueDeclare(string(q), true, false, false, false, queueArgs(q)); err != nil {
				return fmt.Errorf("declare queue %s: %w", q, err)
			}
		}

		for _, b := range topology.bindings {
			if err := ch.QueueBind(string(b.queue), b.key, string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}
		return nil
	})
}
