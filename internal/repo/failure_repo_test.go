package repo

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

// Тест против живого PostgreSQL; запускается только при заданном
// ROWPIPE_TEST_POSTGRES_DSN.
func TestFailureRepo_Postgres(t *testing.T) {
	dsn := os.Getenv("ROWPIPE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROWPIPE_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	r := NewFailureRepo(pool)
	defer r.Close()

	if err := r.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	batch := uuid.New()
	rec := record(batch, 7, 0)
	if err := r.Append(ctx, rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Row != 7 || got.StatusCode != 0 || got.Step != rec.Step {
		t.Errorf("unexpected record: %+v", got)
	}

	records, err := r.ListByBatch(ctx, batch)
	if err != nil || len(records) != 1 {
		t.Errorf("ListByBatch() = %d records, err %v", len(records), err)
	}
}

func TestNewPool_EmptyDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), ""); err == nil {
		t.Error("expected error for empty dsn")
	}
}
