package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Rowpipe/internal/domain"
)

func newTestSQLite(t *testing.T) *SQLiteFailureRepo {
	t.Helper()
	r, err := OpenSQLite(filepath.Join(t.TempDir(), "failures.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func record(batchID uuid.UUID, row int, statusCode int) domain.FailureRecord {
	return domain.FailureRecord{
		ID:         uuid.New(),
		BatchID:    batchID,
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Row:        row,
		Step:       "Create user",
		StatusCode: statusCode,
		Message:    "email already taken",
	}
}

func TestSQLiteFailureRepo_AppendAndGet(t *testing.T) {
	r := newTestSQLite(t)
	ctx := context.Background()

	rec := record(uuid.New(), 3, 422)
	if err := r.Append(ctx, rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.BatchID != rec.BatchID || got.Row != 3 || got.StatusCode != 422 || got.Message != rec.Message {
		t.Errorf("unexpected record: %+v", got)
	}
	if !got.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, rec.Timestamp)
	}
}

func TestSQLiteFailureRepo_NoStatusCode(t *testing.T) {
	r := newTestSQLite(t)
	ctx := context.Background()

	// Транспортная ошибка: ответа не было
	rec := record(uuid.New(), 1, 0)
	if err := r.Append(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.StatusCode != 0 || got.StatusText() != "N/A" {
		t.Errorf("expected no status code, got %d", got.StatusCode)
	}
}

func TestSQLiteFailureRepo_ListByBatch(t *testing.T) {
	r := newTestSQLite(t)
	ctx := context.Background()

	batch := uuid.New()
	for _, row := range []int{5, 2, 9} {
		if err := r.Append(ctx, record(batch, row, 500)); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Append(ctx, record(uuid.New(), 1, 500)); err != nil {
		t.Fatal(err)
	}

	records, err := r.ListByBatch(ctx, batch)
	if err != nil {
		t.Fatalf("ListByBatch() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []int{2, 5, 9} {
		if records[i].Row != want {
			t.Errorf("records[%d].Row = %d, want %d", i, records[i].Row, want)
		}
	}
}

func TestSQLiteFailureRepo_NotFound(t *testing.T) {
	r := newTestSQLite(t)

	if _, err := r.GetByID(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNullInt(t *testing.T) {
	if nullInt(0) != nil {
		t.Error("zero should map to NULL")
	}
	if v := nullInt(404); v == nil || *v != 404 {
		t.Errorf("unexpected value: %v", v)
	}
}
