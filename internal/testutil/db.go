package testutil

import (
	"context"
	"testing"

	"ms-event-ledger/internal/database"

	"github.com/uptrace/bun"
)

// NewDB returns an in-memory SQLite database with the full schema, closed
// when the test ends.
func NewDB(t *testing.T) *bun.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.CreateSchema(ctx, db); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}
