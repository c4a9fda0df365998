// Package api содержит HTTP API depsgraphd.
//
// Структура:
//   - handler.go          — Handler с DI (хранилище, пересборка, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (recovery, request id, logging)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (response)
//   - snapshot_handler.go — обработчики для /snapshots и снимков сцен
//   - scene_handler.go    — проверка присланной сцены и внеочередная пересборка
//
// API только читает хранилище снимков; снимки пишет scheduler.
package api
