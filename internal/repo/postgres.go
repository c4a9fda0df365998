package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/depsgraph/internal/snapshot"
)

// uniqueViolation — код ошибки PostgreSQL при нарушении уникальности.
const uniqueViolation = "23505"

var _ Store = (*PostgresStore)(nil)

// PostgresStore — хранилище снимков в PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore создаёт хранилище поверх пула соединений.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate создаёт таблицы, если их нет.
func (r *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Save сохраняет снимок.
func (r *PostgresStore) Save(ctx context.Context, s *snapshot.Snapshot) error {
	payload, err := snapshot.Encode(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO graph_snapshots (id, scene, graph_id, fingerprint, relations, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.Scene,
		s.GraphID,
		s.Fingerprint,
		len(s.Relations),
		payload,
		s.CreatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Get возвращает снимок по ID.
func (r *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*snapshot.Snapshot, error) {
	query := `SELECT payload FROM graph_snapshots WHERE id = $1`
	return r.queryOne(ctx, "get snapshot", query, id)
}

// Latest возвращает последний снимок сцены.
func (r *PostgresStore) Latest(ctx context.Context, scene string) (*snapshot.Snapshot, error) {
	query := `
		SELECT payload
		FROM graph_snapshots
		WHERE scene = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.queryOne(ctx, "get latest snapshot", query, scene)
}

func (r *PostgresStore) queryOne(ctx context.Context, op, query string, arg any) (*snapshot.Snapshot, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, query, arg).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return snapshot.Decode(payload)
}

// List возвращает краткие записи о снимках.
func (r *PostgresStore) List(ctx context.Context, scene string) ([]Summary, error) {
	query := `
		SELECT id, scene, graph_id, fingerprint, relations, created_at
		FROM graph_snapshots
		WHERE $1 = '' OR scene = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, scene)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(
			&s.ID,
			&s.Scene,
			&s.GraphID,
			&s.Fingerprint,
			&s.Relations,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close закрывает пул соединений.
func (r *PostgresStore) Close() error {
	r.pool.Close()
	return nil
}
