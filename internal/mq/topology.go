package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeGraphs Exchange = "depsgraph.graphs"
	ExchangeDLQ    Exchange = "depsgraph.dlq"
)

// Queues — имена очередей.
const (
	QueueGraphsValidated Queue = "graphs.validated"
	QueueGraphsFailed    Queue = "graphs.failed"
	QueueDLQGraphs       Queue = "dlq.graphs"
)

// Routing keys.
const (
	RoutingKeyValidated RoutingKey = "graph.validated"
	RoutingKeyFailed    RoutingKey = "graph.failed"
	RoutingKeyDLQGraphs RoutingKey = "graphs"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	dlq  bool
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

var (
	exchanges = []exchangeDecl{
		{ExchangeGraphs, amqp.ExchangeTopic},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	queues = []queueDecl{
		// Потребитель может отклонить событие, оно уходит в DLQ
		{QueueGraphsValidated, true},
		{QueueGraphsFailed, false},
		{QueueDLQGraphs, false},
	}

	bindings = []bindingDecl{
		{QueueGraphsValidated, RoutingKeyValidated, ExchangeGraphs},
		{QueueGraphsFailed, RoutingKeyFailed, ExchangeGraphs},
		{QueueDLQGraphs, RoutingKeyDLQGraphs, ExchangeDLQ},
	}
)

// SetupTopology объявляет обменники, очереди и привязки.
func SetupTopology(ctx context.Context, broker *Broker) error {
	return broker.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

// queueArgs возвращает аргументы очереди.
func queueArgs(q queueDecl) amqp.Table {
	if !q.dlq {
		return nil
	}
	return amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQGraphs),
	}
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			queueArgs(q),   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	var sb strings.Builder
	sb.WriteString("depsgraph RabbitMQ topology:\n")

	for _, ex := range exchanges {
		fmt.Fprintf(&sb, "  %s (%s)\n", ex.name, ex.kind)
		for _, b := range bindings {
			if b.exchange != ex.name {
				continue
			}
			fmt.Fprintf(&sb, "    %s [routing: %s]", b.queue, b.routingKey)
			for _, q := range queues {
				if q.name == b.queue && q.dlq {
					fmt.Fprintf(&sb, " dlq: %s", QueueDLQGraphs)
				}
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
