package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Rowpipe/internal/domain"
)

// MessageType — тип сообщения.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRowFailed     MessageType = "row.failed"
	MessageTypeBatchFinished MessageType = "batch.finished"
)

// Message — конверт публикуемого сообщения.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// BatchFinishedPayload — итоги пакета.
type BatchFinishedPayload struct {
	BatchID   uuid.UUID `json:"batch_id"`
	Processed int       `json:"processed"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Halted    bool      `json:"halted"`
}

// Publisher публикует события пакета в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение в ExchangeEvents.
func (p *Publisher) Publish(ctx context.Context, routingKey RoutingKey, msg *Message) error {
	publishing, err := newPublishing(msg)
	if err != nil {
		return err
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.PublishWithContext(ctx, string(ExchangeEvents), string(routingKey), false, false, publishing); err != nil {
			return fmt.Errorf("publish to %s/%s: %w", ExchangeEvents, routingKey, err)
		}

		p.logger.Debug("published message",
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishRowFailed публикует запись журнала ошибок.
func (p *Publisher) PublishRowFailed(ctx context.Context, rec domain.FailureRecord) error {
	return p.Publish(ctx, RoutingKeyRowFailed, newMessage(MessageTypeRowFailed, rec))
}

// Append реализует журнал ошибок поверх PublishRowFailed.
func (p *Publisher) Append(ctx context.Context, rec domain.FailureRecord) error {
	return p.PublishRowFailed(ctx, rec)
}

// PublishBatchFinished публикует итоги пакета.
func (p *Publisher) PublishBatchFinished(ctx context.Context, payload BatchFinishedPayload) error {
	return p.Publish(ctx, RoutingKeyBatchFinished, newMessage(MessageTypeBatchFinished, payload))
}

func newMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

func newPublishing(msg *Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		Timestamp:    msg.Timestamp,
		Body:         body,
	}, nil
}
