package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shaiso/depsgraph/internal/snapshot"
)

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore — хранилище снимков в локальном файле SQLite.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLite открывает или создаёт базу по пути path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// Одна запись за раз
	conn.SetMaxOpenConns(1)

	for _, pragma := range sqlitePragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLiteStore{conn: conn, path: path}, nil
}

// Path возвращает путь к файлу базы.
func (r *SQLiteStore) Path() string {
	return r.path
}

// Save сохраняет снимок.
func (r *SQLiteStore) Save(ctx context.Context, s *snapshot.Snapshot) error {
	payload, err := snapshot.Encode(s)
	if err != nil {
		return err
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM graph_snapshots WHERE scene = ? AND fingerprint = ?`,
		s.Scene, s.Fingerprint,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check snapshot: %w", err)
	}
	if exists > 0 {
		return ErrAlreadyExists
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO graph_snapshots (id, scene, graph_id, fingerprint, relations, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID.String(),
		s.Scene,
		s.GraphID.String(),
		s.Fingerprint,
		len(s.Relations),
		payload,
		s.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get возвращает снимок по ID.
func (r *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (*snapshot.Snapshot, error) {
	return r.queryOne(ctx, "get snapshot",
		`SELECT payload FROM graph_snapshots WHERE id = ?`, id.String())
}

// Latest возвращает последний снимок сцены.
func (r *SQLiteStore) Latest(ctx context.Context, scene string) (*snapshot.Snapshot, error) {
	return r.queryOne(ctx, "get latest snapshot", `
		SELECT payload
		FROM graph_snapshots
		WHERE scene = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, scene)
}

func (r *SQLiteStore) queryOne(ctx context.Context, op, query string, arg any) (*snapshot.Snapshot, error) {
	var payload []byte
	err := r.conn.QueryRowContext(ctx, query, arg).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return snapshot.Decode(payload)
}

// List возвращает краткие записи о снимках.
func (r *SQLiteStore) List(ctx context.Context, scene string) ([]Summary, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT id, scene, graph_id, fingerprint, relations, created_at
		FROM graph_snapshots
		WHERE ? = '' OR scene = ?
		ORDER BY created_at DESC, rowid DESC
	`, scene, scene)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s           Summary
			id, graphID string
			createdAt   int64
		)
		if err := rows.Scan(&id, &s.Scene, &graphID, &s.Fingerprint, &s.Relations, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse snapshot id: %w", err)
		}
		if s.GraphID, err = uuid.Parse(graphID); err != nil {
			return nil, fmt.Errorf("parse graph id: %w", err)
		}
		s.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close закрывает базу.
func (r *SQLiteStore) Close() error {
	return r.conn.Close()
}
