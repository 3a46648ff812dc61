package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Rowpipe/internal/domain"
)

const pgFailureSchema = `
	CREATE TABLE IF NOT EXISTS row_failures (
		id          UUID PRIMARY KEY,
		batch_id    UUID NOT NULL,
		logged_at   TIMESTAMPTZ NOT NULL,
		row_number  INTEGER NOT NULL,
		step        TEXT NOT NULL,
		status_code INTEGER,
		message     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_row_failures_batch ON row_failures(batch_id, row_number);
`

// FailureRepo — журнал ошибок строк в PostgreSQL.
type FailureRepo struct {
	pool *pgxpool.Pool
}

// NewFailureRepo создаёт новый FailureRepo.
func NewFailureRepo(pool *pgxpool.Pool) *FailureRepo {
	return &FailureRepo{pool: pool}
}

// EnsureSchema создаёт таблицу журнала, если её нет.
func (r *FailureRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, pgFailureSchema); err != nil {
		return fmt.Errorf("create row_failures: %w", err)
	}
	return nil
}

// Append добавляет запись в журнал.
func (r *FailureRepo) Append(ctx context.Context, rec domain.FailureRecord) error {
	query := `
		INSERT INTO row_failures (id, batch_id, logged_at, row_number, step, status_code, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.BatchID,
		rec.Timestamp,
		rec.Row,
		rec.Step,
		nullInt(rec.StatusCode),
		rec.Message,
	)
	if err != nil {
		return fmt.Errorf("insert row failure: %w", err)
	}
	return nil
}

// GetByID возвращает запись журнала по ID.
func (r *FailureRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FailureRecord, error) {
	query := `
		SELECT id, batch_id, logged_at, row_number, step, status_code, message
		FROM row_failures
		WHERE id = $1
	`
	rec, err := scanFailure(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListByBatch возвращает записи пакета в порядке строк.
func (r *FailureRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.FailureRecord, error) {
	query := `
		SELECT id, batch_id, logged_at, row_number, step, status_code, message
		FROM row_failures
		WHERE batch_id = $1
		ORDER BY row_number
	`
	rows, err := r.pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("query row failures: %w", err)
	}
	defer rows.Close()

	var records []domain.FailureRecord
	for rows.Next() {
		rec, err := scanFailure(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate row failures: %w", err)
	}
	return records, nil
}

// Close закрывает пул соединений.
func (r *FailureRepo) Close() error {
	r.pool.Close()
	return nil
}

func scanFailure(row pgx.Row) (*domain.FailureRecord, error) {
	var (
		rec        domain.FailureRecord
		statusCode *int32
	)
	err := row.Scan(
		&rec.ID,
		&rec.BatchID,
		&rec.Timestamp,
		&rec.Row,
		&rec.Step,
		&statusCode,
		&rec.Message,
	)
	if err != nil {
		return nil, err
	}
	if statusCode != nil {
		rec.StatusCode = int(*statusCode)
	}
	return &rec, nil
}

// nullInt превращает 0 в NULL.
func nullInt(v int) *int32 {
	if v == 0 {
		return nil
	}
	n := int32(v)
	return &n
}
