// Package mq публикует события о собранных графах в RabbitMQ.
//
// Структура:
//   - broker.go     — сессия RabbitMQ и её замена после обрыва
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий
//   - subscriber.go — разбор событий и подписка на очередь (команда watch)
//
// Типы сообщений:
//   - graph.validated — граф сцены собран, проверен и сохранён
//   - graph.failed    — сцену не удалось собрать
//
// Exchanges:
//   - depsgraph.graphs — события графов (topic)
//   - depsgraph.dlq    — dead letter queue
package mq
