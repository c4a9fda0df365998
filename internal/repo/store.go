package repo

import (
	"context"
	_ "embed"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/depsgraph/internal/snapshot"
)

//go:embed schema/postgres.sql
var postgresSchema string

//go:embed schema/sqlite.sql
var sqliteSchema string

// Store — хранилище снимков графов.
type Store interface {
	// Save сохраняет снимок. Если для сцены уже есть снимок с тем же
	// отпечатком, возвращает ErrAlreadyExists.
	Save(ctx context.Context, s *snapshot.Snapshot) error

	// Get возвращает снимок по ID.
	Get(ctx context.Context, id uuid.UUID) (*snapshot.Snapshot, error)

	// Latest возвращает последний снимок сцены.
	Latest(ctx context.Context, scene string) (*snapshot.Snapshot, error)

	// List возвращает краткие записи о снимках, новые первыми.
	// Пустая scene — все сцены.
	List(ctx context.Context, scene string) ([]Summary, error)

	// Close освобождает ресурсы хранилища.
	Close() error
}

// Summary — краткая запись о снимке без содержимого.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	Scene       string    `json:"scene"`
	GraphID     uuid.UUID `json:"graph_id"`
	Fingerprint string    `json:"fingerprint"`
	Relations   int       `json:"relations"`
	CreatedAt   time.Time `json:"created_at"`
}
