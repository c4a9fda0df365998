// depsgraphd — служба периодической пересборки графов сцен.
//
// depsgraphd:
//   - Находит описания сцен в каталоге SCENE_DIR
//   - По расписанию REBUILD_CRON собирает граф каждой сцены и проверяет связи
//   - Сохраняет снимок графа, если он изменился (PostgreSQL или SQLite)
//   - Публикует события graph.validated и graph.failed в RabbitMQ
//   - Отдаёт снимки по HTTP API (/api/v1) вместе с /healthz и /metrics
//
// RabbitMQ необязателен: без него снимки только сохраняются.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/depsgraph/internal/api"
	"github.com/shaiso/depsgraph/internal/callbacks"
	"github.com/shaiso/depsgraph/internal/engine"
	"github.com/shaiso/depsgraph/internal/mq"
	"github.com/shaiso/depsgraph/internal/repo"
	"github.com/shaiso/depsgraph/internal/scheduler"
	"github.com/shaiso/depsgraph/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting depsgraphd")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	// Хранилище снимков: PostgreSQL при заданном DB_URL, иначе SQLite
	var (
		store     repo.Store
		storeName string
	)
	if os.Getenv("DB_URL") != "" {
		pool, err := repo.NewPool(ctx)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		pg := repo.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		store, storeName = pg, "postgres"
		logger.Info("database connected")
	} else {
		path := envOr("SQLITE_PATH", ".depsgraph/snapshots.db")
		sq, err := repo.OpenSQLite(path)
		if err != nil {
			logger.Error("failed to open sqlite store", "path", path, "error", err)
			os.Exit(1)
		}
		store, storeName = sq, "sqlite"
		logger.Info("sqlite store opened", "path", path)
	}
	defer store.Close()

	// RabbitMQ
	var publisher scheduler.EventPublisher
	broker, err := mq.Dial(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, events disabled", "error", err)
	} else {
		defer broker.Close()

		if err := mq.SetupTopology(ctx, broker); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		logger.Debug(mq.TopologyInfo())

		publisher = mq.NewPublisher(broker, logger, metrics)
	}

	var patterns []string
	if v := os.Getenv("SCENE_GLOB"); v != "" {
		patterns = strings.Split(v, ",")
	}

	cbs := callbacks.DefaultRegistry()

	sched, err := scheduler.New(scheduler.Config{
		Dir:       envOr("SCENE_DIR", "scenes"),
		Patterns:  patterns,
		Cron:      os.Getenv("REBUILD_CRON"),
		Timezone:  os.Getenv("REBUILD_TZ"),
		Store:     store,
		StoreName: storeName,
		Publisher: publisher,
		Callbacks: cbs,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics + API снимков
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if broker != nil && !broker.Connected() {
			w.Write([]byte("ok (amqp reconnecting)"))
			return
		}
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	handler := api.NewHandler(api.Config{
		Store:     store,
		Rebuilder: sched,
		Build: engine.BuildOptions{
			Callbacks: cbs,
			Logger:    logger,
			Metrics:   metrics,
		},
		Logger: logger,
	})
	handler.RegisterRoutes(mux)

	port := ":" + envOr("DEPSGRAPHD_PORT", "8083")

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Первая пересборка сразу при старте
	if _, err := sched.Tick(ctx); err != nil {
		logger.Error("initial rebuild failed", "error", err)
	}

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler stopped", "error", err)
	}
	logger.Info("depsgraphd stopped")
}

// envOr возвращает значение переменной окружения или def.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
