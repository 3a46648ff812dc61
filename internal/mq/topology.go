package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// ExchangeEvents — обменник событий пакетной обработки.
const ExchangeEvents Exchange = "rowpipe.events"

// Очереди.
const (
	QueueRowFailures Queue = "rowpipe.row_failures"
	QueueBatches     Queue = "rowpipe.batches"
)

// Ключи маршрутизации.
const (
	RoutingKeyRowFailed     RoutingKey = "row.failed"
	RoutingKeyBatchFinished RoutingKey = "batch.finished"
)

type binding struct {
	queue      Queue
	routingKey RoutingKey
}

// bindings — очереди и их ключи в ExchangeEvents.
var bindings = []binding{
	{QueueRowFailures, RoutingKeyRowFailed},
	{QueueBatches, RoutingKeyBatchFinished},
}

// SetupTopology объявляет обменник, очереди и привязки.
// Повторный вызов безопасен: все объекты durable и объявляются идемпотентно.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeEvents), // name
			"direct",               // type
			true,                   // durable
			false,                  // auto-deleted
			false,                  // internal
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(ExchangeEvents), false, nil); err != nil {
				return fmt.Errorf("bind queue %s: %w", b.queue, err)
			}
		}
		return nil
	})
}
