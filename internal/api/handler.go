package api

import (
	"context"
	"log/slog"

	"github.com/shaiso/depsgraph/internal/engine"
	"github.com/shaiso/depsgraph/internal/repo"
	"github.com/shaiso/depsgraph/internal/scheduler"
)

// Rebuilder выполняет внеочередную пересборку сцен.
type Rebuilder interface {
	Tick(ctx context.Context) ([]scheduler.Result, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store     repo.Store
	rebuilder Rebuilder
	build     engine.BuildOptions
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Store     repo.Store
	Rebuilder Rebuilder // опционально
	Build     engine.BuildOptions
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		store:     cfg.Store,
		rebuilder: cfg.Rebuilder,
		build:     cfg.Build,
		logger:    cfg.Logger,
	}
}
