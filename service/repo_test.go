package service

import (
	"context"
	"os"
	"testing"
)

// testDSN returns the connection string for a scratch Postgres instance
// already carrying the consumer's schema, or skips the test if none is
// configured.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("OPERATIONS_SERVICE_TEST_DSN")
	if dsn == "" {
		t.Skip("OPERATIONS_SERVICE_TEST_DSN not set, skipping Postgres integration test")
	}
	return dsn
}

func TestPgRepoFetchOperationsPaginates(t *testing.T) {
	ctx := context.Background()
	pool, err := OpenPool(ctx, testDSN(t), 2)
	if err != nil {
		t.Fatalf("OpenPool: %v", err)
	}
	defer pool.Close()

	repo := NewPgRepo(pool)
	first, cursor, err := repo.FetchOperations(ctx, nil, nil, Page{Limit: 1})
	if err != nil {
		t.Fatalf("FetchOperations: %v", err)
	}
	if cursor == nil {
		t.Skip("fewer than 2 rows present in the test database, cannot exercise pagination")
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 row, got %d", len(first))
	}

	second, _, err := repo.FetchOperations(ctx, nil, nil, Page{Start: cursor, Limit: 1})
	if err != nil {
		t.Fatalf("FetchOperations (page 2): %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected 1 row in second page, got %d", len(second))
	}
	if second[0].UID != *cursor {
		t.Errorf("second page should start inclusive at the cursor, got uid %d want %d", second[0].UID, *cursor)
	}
}
