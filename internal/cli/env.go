package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/depsgraph/internal/callbacks"
	"github.com/shaiso/depsgraph/internal/engine"
	"github.com/shaiso/depsgraph/internal/repo"
)

// DefaultSQLitePath — файл хранилища снимков по умолчанию.
const DefaultSQLitePath = ".depsgraph/snapshots.db"

// Env — общие настройки команд. Поля заполняются из PersistentFlags
// до вызова RunE, поэтому команды читают их лениво.
type Env struct {
	JSON  bool
	Vars  []string // переменные HCL в виде k=v
	Store string   // sqlite | postgres
	DB    string   // путь к файлу SQLite или DSN PostgreSQL

	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Output создаёт Output по флагам.
func (e *Env) Output() *Output {
	stdout, stderr := e.Stdout, e.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return NewOutputTo(e.JSON, stdout, stderr)
}

// ParseVars разбирает переменные k=v.
func (e *Env) ParseVars() (map[string]string, error) {
	vars := make(map[string]string, len(e.Vars))
	for _, kv := range e.Vars {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q: expected key=value", kv)
		}
		vars[k] = v
	}
	return vars, nil
}

// BuildOptions возвращает параметры сборки со стандартными функциями.
func (e *Env) BuildOptions() engine.BuildOptions {
	return engine.BuildOptions{
		Callbacks: callbacks.DefaultRegistry(),
		Logger:    e.logger(),
	}
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenStore открывает хранилище снимков.
func (e *Env) OpenStore(ctx context.Context) (repo.Store, error) {
	switch e.Store {
	case "", "sqlite":
		path := e.DB
		if path == "" {
			path = DefaultSQLitePath
		}
		return repo.OpenSQLite(path)

	case "postgres":
		var (
			pool *pgxpool.Pool
			err  error
		)
		if e.DB != "" {
			pool, err = repo.NewPoolDSN(ctx, e.DB)
		} else {
			pool, err = repo.NewPool(ctx)
		}
		if err != nil {
			return nil, err
		}
		store := repo.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store %q: expected sqlite or postgres", e.Store)
	}
}

// sceneFiles раскрывает аргументы: файлы берутся как есть,
// каталоги просматриваются по шаблонам.
func sceneFiles(args, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"**/*"}
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		found, err := engine.Discover(arg, patterns...)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scene files found")
	}
	return files, nil
}
