package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shaiso/Rowpipe/internal/domain"
)

const sqliteFailureSchema = `
	CREATE TABLE IF NOT EXISTS row_failures (
		id          TEXT PRIMARY KEY,
		batch_id    TEXT NOT NULL,
		logged_at   TIMESTAMP NOT NULL,
		row_number  INTEGER NOT NULL,
		step        TEXT NOT NULL,
		status_code INTEGER,
		message     TEXT NOT NULL
	)`

const sqliteFailureIndex = `CREATE INDEX IF NOT EXISTS idx_row_failures_batch ON row_failures(batch_id, row_number)`

// SQLiteFailureRepo — журнал ошибок строк в локальном файле SQLite.
type SQLiteFailureRepo struct {
	db *sql.DB
}

// OpenSQLite открывает (или создаёт) БД журнала.
func OpenSQLite(dsn string) (*SQLiteFailureRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	r := &SQLiteFailureRepo{db: db}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return r, nil
}

func (r *SQLiteFailureRepo) initSchema() error {
	for _, stmt := range []string{sqliteFailureSchema, sqliteFailureIndex} {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append добавляет запись в журнал.
func (r *SQLiteFailureRepo) Append(ctx context.Context, rec domain.FailureRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO row_failures (id, batch_id, logged_at, row_number, step, status_code, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(),
		rec.BatchID.String(),
		rec.Timestamp.UTC(),
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
func (r *SQLiteFailureRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FailureRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, batch_id, logged_at, row_number, step, status_code, message
		FROM row_failures WHERE id = ?`, id.String())

	rec, err := scanSQLiteFailure(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListByBatch возвращает записи пакета в порядке строк.
func (r *SQLiteFailureRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.FailureRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, batch_id, logged_at, row_number, step, status_code, message
		FROM row_failures WHERE batch_id = ? ORDER BY row_number`, batchID.String())
	if err != nil {
		return nil, fmt.Errorf("query row failures: %w", err)
	}
	defer rows.Close()

	var records []domain.FailureRecord
	for rows.Next() {
		rec, err := scanSQLiteFailure(rows)
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

// Close закрывает БД.
func (r *SQLiteFailureRepo) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteFailure(row rowScanner) (*domain.FailureRecord, error) {
	var (
		rec         domain.FailureRecord
		id, batchID string
		loggedAt    time.Time
		statusCode  sql.NullInt64
	)
	if err := row.Scan(&id, &batchID, &loggedAt, &rec.Row, &rec.Step, &statusCode, &rec.Message); err != nil {
		return nil, err
	}

	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse failure id: %w", err)
	}
	if rec.BatchID, err = uuid.Parse(batchID); err != nil {
		return nil, fmt.Errorf("parse batch id: %w", err)
	}
	rec.Timestamp = loggedAt
	if statusCode.Valid {
		rec.StatusCode = int(statusCode.Int64)
	}
	return &rec, nil
}
