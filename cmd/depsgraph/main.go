// depsgraph CLI — сборка и проверка графов зависимостей сцен.
//
// Использование:
//
//	depsgraph [--json] [--var k=v] [--store sqlite|postgres] [--db PATH|DSN] <command> [flags]
//
// Команды:
//
//	build      Сборка и проверка графов
//	validate   Проверка описаний сцен
//	export     Снимок графа
//	snapshots  Список сохранённых снимков
//	show       Связи снимка
//	diff       Сравнение снимков
//	kinds      Типы узлов
//	callbacks  Стандартные функции вычисления
//	watch      События графов из RabbitMQ
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/depsgraph/internal/cli"
	"github.com/shaiso/depsgraph/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Логи CLI идут в stderr и по умолчанию показывают только предупреждения
	level := slog.LevelWarn
	if os.Getenv("LOG_LEVEL") != "" {
		level = telemetry.LogLevel()
	}

	env := &cli.Env{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}

	if err := cli.NewRootCmd(env, version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
