package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Ошибки разбора событий. Такие сообщения не возвращаются в очередь.
var (
	ErrMalformedEvent = errors.New("malformed graph event")
	ErrUnknownEvent   = errors.New("unknown graph event type")
)

// EventMeta — поля конверта, общие для всех событий графов.
type EventMeta struct {
	ID          string      `json:"id"`
	Type        MessageType `json:"type"`
	Timestamp   time.Time   `json:"timestamp"`
	Redelivered bool        `json:"redelivered,omitempty"`
}

// Handlers — обработчики событий графов по типу.
// Событие, для которого обработчик не задан, подтверждается без обработки.
type Handlers struct {
	Validated func(ctx context.Context, meta EventMeta, p GraphValidatedPayload) error
	Failed    func(ctx context.Context, meta EventMeta, p GraphFailedPayload) error
}

// envelope — Message в том виде, в каком оно приходит из очереди.
type envelope struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Dispatch разбирает тело сообщения и вызывает обработчик его типа.
func (h Handlers) Dispatch(ctx context.Context, body []byte, redelivered bool) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	meta := EventMeta{
		ID:          env.ID,
		Type:        env.Type,
		Timestamp:   env.Timestamp,
		Redelivered: redelivered,
	}

	switch env.Type {
	case MessageTypeGraphValidated:
		p, err := decodePayload[GraphValidatedPayload](env)
		if err != nil || h.Validated == nil {
			return err
		}
		return h.Validated(ctx, meta, p)

	case MessageTypeGraphFailed:
		p, err := decodePayload[GraphFailedPayload](env)
		if err != nil || h.Failed == nil {
			return err
		}
		return h.Failed(ctx, meta, p)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

func decodePayload[T any](env envelope) (T, error) {
	var p T
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return p, fmt.Errorf("%w: %s %s: empty payload", ErrMalformedEvent, env.Type, env.ID)
	}
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return p, fmt.Errorf("%w: %s %s: %v", ErrMalformedEvent, env.Type, env.ID, err)
	}
	return p, nil
}

// settlement — что сделать с доставкой после обработки.
type settlement int

const (
	settleAck settlement = iota
	settleRequeue
	settleReject // в DLQ очереди, если она настроена
)

// settle выбирает исход доставки. Неразборчивые события и повторный сбой
// уже возвращённого сообщения отправляются в DLQ.
func settle(err error, redelivered, requeue bool) settlement {
	switch {
	case err == nil:
		return settleAck
	case errors.Is(err, ErrMalformedEvent), errors.Is(err, ErrUnknownEvent):
		return settleReject
	case requeue && !redelivered:
		return settleRequeue
	default:
		return settleReject
	}
}

// SubscriberConfig — параметры подписки на очередь событий.
type SubscriberConfig struct {
	Queue    Queue
	Handlers Handlers

	// Prefetch — число неподтверждённых доставок на подписчика. По умолчанию 1.
	Prefetch int

	// RequeueOnError возвращает сообщение в очередь при первой ошибке
	// обработчика. Повторная ошибка отправляет его в DLQ.
	RequeueOnError bool
}

// Subscriber читает события графов из одной очереди.
type Subscriber struct {
	broker *Broker
	logger *slog.Logger
	cfg    SubscriberConfig
}

// NewSubscriber создаёт подписчика.
func NewSubscriber(broker *Broker, logger *slog.Logger, cfg SubscriberConfig) *Subscriber {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	return &Subscriber{
		broker: broker,
		logger: logger.With("queue", string(cfg.Queue)),
		cfg:    cfg,
	}
}

// Run читает очередь до отмены ctx и переподписывается после
// каждого переподключения брокера. Возвращает ctx.Err().
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		reconnected := s.broker.Reconnected()

		deliveries, err := s.subscribe(ctx)
		if err != nil {
			s.logger.Warn("subscribe failed, waiting for reconnect", "error", err)
		} else {
			s.logger.Info("subscribed")
			if err := s.drain(ctx, deliveries); err != nil {
				return err
			}
			s.logger.Warn("delivery stream closed, waiting for reconnect")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reconnected:
		}
	}
}

func (s *Subscriber) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery
	err := s.broker.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.Qos(s.cfg.Prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
		d, err := ch.ConsumeWithContext(ctx, string(s.cfg.Queue), "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", s.cfg.Queue, err)
		}
		deliveries = d
		return nil
	})
	return deliveries, err
}

// drain обрабатывает доставки, пока поток не закроется (nil)
// или не отменят ctx (ctx.Err()).
func (s *Subscriber) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			s.handle(ctx, d)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, d amqp.Delivery) {
	err := s.cfg.Handlers.Dispatch(ctx, d.Body, d.Redelivered)

	var ackErr error
	switch settle(err, d.Redelivered, s.cfg.RequeueOnError) {
	case settleAck:
		ackErr = d.Ack(false)
	case settleRequeue:
		s.logger.Warn("event handler failed, requeueing", "message_id", d.MessageId, "error", err)
		ackErr = d.Nack(false, true)
	case settleReject:
		s.logger.Error("event rejected", "message_id", d.MessageId, "type", d.Type, "error", err)
		ackErr = d.Nack(false, false)
	}
	if ackErr != nil {
		s.logger.Warn("failed to settle delivery", "message_id", d.MessageId, "error", ackErr)
	}
}
