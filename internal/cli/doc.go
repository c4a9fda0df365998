// Package cli реализует инструмент командной строки depsgraph.
//
// # Обзор
//
// CLI собирает графы зависимостей из описаний сцен (HCL, YAML, JSON),
// проверяет связи, снимает снимки графов и работает с хранилищем снимков.
// В отличие от depsgraphd, CLI не работает по расписанию: каждая команда
// выполняется один раз над указанными файлами.
//
// # Ключевые компоненты
//
// ## Env
//
// Общие настройки команд: режим вывода, переменные HCL (--var k=v),
// хранилище снимков (--store sqlite|postgres, --db). Флаги корневой
// команды пишутся в Env до вызова RunE, поэтому команды читают его лениво.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Warn/Error) — в stderr.
// Это позволяет использовать pipe: depsgraph export scene.hcl | jq .relations
//
// ## Commands
//
//   - build: сборка и проверка графов, --cycles и --order для диагностики
//   - validate: проверка описаний и имён функций без сборки
//   - export: снимок графа в stdout, файл (.json, .zst) или хранилище
//   - snapshots, show, diff: просмотр и сравнение сохранённых снимков
//   - kinds, callbacks: зарегистрированные типы узлов и функции
//   - watch: события graph.validated и graph.failed из RabbitMQ
//
// Каждая команда создаётся фабричной функцией (NewBuildCmd и т.д.),
// принимающей *Env.
package cli
