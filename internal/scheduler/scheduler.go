package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/depsgraph/internal/depsgraph"
	"github.com/shaiso/depsgraph/internal/engine"
	"github.com/shaiso/depsgraph/internal/repo"
	"github.com/shaiso/depsgraph/internal/snapshot"
	"github.com/shaiso/depsgraph/internal/telemetry"
)

// EventPublisher публикует события о пересборке сцен.
type EventPublisher interface {
	PublishGraphValidated(ctx context.Context, s *snapshot.Snapshot) error
	PublishGraphFailed(ctx context.Context, scene, path string, cause error) error
}

// Status — итог пересборки одной сцены.
type Status string

// Итоги пересборки.
const (
	StatusStored    Status = "stored"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
)

// Result — итог пересборки одной сцены.
type Result struct {
	Path       string
	Scene      string
	Status     Status
	SnapshotID uuid.UUID
	Err        error
}

// Scheduler — периодическая пересборка сцен из каталога.
type Scheduler struct {
	mu sync.Mutex // пересборки не пересекаются

	dir       string
	patterns  []string
	cron      string
	timezone  string
	vars      map[string]string
	store     repo.Store
	storeName string
	publisher EventPublisher
	build     engine.BuildOptions
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// Config — конфигурация Scheduler.
type Config struct {
	Dir       string   // каталог сцен
	Patterns  []string // glob-шаблоны (default: "**/*")
	Cron      string   // расписание пересборки (default: "*/5 * * * *")
	Timezone  string   // часовой пояс расписания (default: UTC)
	Vars      map[string]string
	Store     repo.Store
	StoreName string         // метка хранилища для метрик
	Publisher EventPublisher // опционально
	Types     *depsgraph.Registry
	Callbacks depsgraph.CallbackSource
	Metrics   *telemetry.Metrics
	Logger    *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Store == nil {
		return nil, errors.New("scheduler: store is required")
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"**/*"}
	}
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "*/5 * * * *"
	}
	if err := ValidateCronExpr(cronExpr); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		dir:       cfg.Dir,
		patterns:  patterns,
		cron:      cronExpr,
		timezone:  cfg.Timezone,
		vars:      cfg.Vars,
		store:     cfg.Store,
		storeName: cfg.StoreName,
		publisher: cfg.Publisher,
		build: engine.BuildOptions{
			Types:     cfg.Types,
			Callbacks: cfg.Callbacks,
			Logger:    logger,
			Metrics:   cfg.Metrics,
		},
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

// Run пересобирает сцены по расписанию до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next, err := NextRun(s.cron, time.Now(), s.timezone)
		if err != nil {
			return err
		}
		s.logger.Debug("next rebuild scheduled", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := s.Tick(ctx); err != nil {
			s.logger.Error("scheduler tick failed", "error", err)
		}
	}
}

// Tick выполняет одну пересборку.
//
// 1. Находит файлы сцен в каталоге
// 2. Для каждой сцены: разбор, сборка, проверка связей, снимок
// 3. Сохраняет снимок, если отпечаток новый
// 4. Публикует graph.validated или graph.failed
//
// Ошибка одной сцены не блокирует обработку остальных.
// Одновременные вызовы выполняются по очереди.
func (s *Scheduler) Tick(ctx context.Context) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := engine.Discover(s.dir, s.patterns...)
	if err != nil {
		return nil, fmt.Errorf("discover scenes: %w", err)
	}

	results := make([]Result, 0, len(files))
	var stored, unchanged, failed int

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := s.processScene(ctx, path)
		switch res.Status {
		case StatusStored:
			stored++
		case StatusUnchanged:
			unchanged++
		case StatusFailed:
			failed++
		}
		results = append(results, res)
	}

	s.logger.Info("scheduler tick completed",
		"scenes", len(files),
		"stored", stored,
		"unchanged", unchanged,
		"failed", failed,
	)
	return results, nil
}

// processScene пересобирает одну сцену.
func (s *Scheduler) processScene(ctx context.Context, path string) Result {
	res := Result{Path: path}

	spec, err := engine.Parse(path, s.vars)
	if err != nil {
		return s.fail(ctx, res, err)
	}
	res.Scene = spec.Name
	logger := telemetry.WithScene(s.logger, spec.Name)

	scene, err := engine.Build(ctx, spec, s.build)
	if err != nil {
		return s.fail(ctx, res, err)
	}
	snap, err := snapshot.Export(scene.Graph)
	scene.Graph.Free()
	if err != nil {
		return s.fail(ctx, res, err)
	}
	res.SnapshotID = snap.ID

	err = s.store.Save(ctx, snap)
	if errors.Is(err, repo.ErrAlreadyExists) {
		logger.Debug("scene unchanged", "fingerprint", snap.Fingerprint)
		res.Status = StatusUnchanged
		return res
	}
	if err != nil {
		return s.fail(ctx, res, fmt.Errorf("save snapshot: %w", err))
	}
	s.metrics.SnapshotStored(s.storeName)

	logger.Info("snapshot stored",
		"snapshot_id", snap.ID,
		"fingerprint", snap.Fingerprint,
		"relations", len(snap.Relations),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishGraphValidated(ctx, snap); err != nil {
			// Снимок уже сохранён, потребители увидят его при следующем событии
			logger.Warn("failed to publish graph.validated", "error", err)
		}
	}

	res.Status = StatusStored
	return res
}

// fail фиксирует ошибку сцены и публикует graph.failed.
func (s *Scheduler) fail(ctx context.Context, res Result, err error) Result {
	res.Status = StatusFailed
	res.Err = err

	s.logger.Error("scene rebuild failed",
		"path", res.Path,
		"scene", res.Scene,
		"error", err,
	)

	if s.publisher != nil {
		if perr := s.publisher.PublishGraphFailed(ctx, res.Scene, res.Path, err); perr != nil {
			s.logger.Warn("failed to publish graph.failed", "path", res.Path, "error", perr)
		}
	}
	return res
}
