// Package repo хранит снимки проверенных графов.
//
// Store описывает хранилище; реализации:
//   - PostgresStore — PostgreSQL через pgx, для демона
//   - SQLiteStore — локальный файл SQLite, для CLI и тестов
//
// Снимки хранятся сжатыми (snapshot.Encode). Пара (scene, fingerprint)
// уникальна: повторное сохранение той же сцены без изменений
// возвращает ErrAlreadyExists.
package repo
