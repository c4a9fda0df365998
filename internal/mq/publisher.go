package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/depsgraph/internal/snapshot"
	"github.com/shaiso/depsgraph/internal/telemetry"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeGraphValidated MessageType = "graph.validated"
	MessageTypeGraphFailed    MessageType = "graph.failed"
)

// Publisher публикует события графов в RabbitMQ.
type Publisher struct {
	broker  *Broker
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewPublisher создаёт новый Publisher. metrics может быть nil.
func NewPublisher(broker *Broker, logger *slog.Logger, metrics *telemetry.Metrics) *Publisher {
	return &Publisher{
		broker:  broker,
		logger:  logger,
		metrics: metrics,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(typ MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// GraphValidatedPayload — граф сцены собран, проверен и сохранён.
type GraphValidatedPayload struct {
	SnapshotID  uuid.UUID `json:"snapshot_id"`
	GraphID     uuid.UUID `json:"graph_id"`
	Scene       string    `json:"scene"`
	Fingerprint string    `json:"fingerprint"`
	Operations  int       `json:"operations"`
	Relations   int       `json:"relations"`
}

// GraphFailedPayload — сцену не удалось собрать.
type GraphFailedPayload struct {
	Scene string `json:"scene"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ValidatedPayload собирает payload события по снимку.
func ValidatedPayload(s *snapshot.Snapshot) GraphValidatedPayload {
	return GraphValidatedPayload{
		SnapshotID:  s.ID,
		GraphID:     s.GraphID,
		Scene:       s.Scene,
		Fingerprint: s.Fingerprint,
		Operations:  len(s.Operations),
		Relations:   len(s.Relations),
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.broker.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.metrics.EventPublished(string(routingKey))
	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)
	return nil
}

// PublishGraphValidated публикует событие о новом снимке графа.
func (p *Publisher) PublishGraphValidated(ctx context.Context, s *snapshot.Snapshot) error {
	msg := NewMessage(MessageTypeGraphValidated, ValidatedPayload(s))
	return p.Publish(ctx, ExchangeGraphs, RoutingKeyValidated, msg)
}

// PublishGraphFailed публикует событие о неудачной сборке сцены.
func (p *Publisher) PublishGraphFailed(ctx context.Context, scene, path string, cause error) error {
	msg := NewMessage(MessageTypeGraphFailed, GraphFailedPayload{
		Scene: scene,
		Path:  path,
		Error: cause.Error(),
	})
	return p.Publish(ctx, ExchangeGraphs, RoutingKeyFailed, msg)
}
