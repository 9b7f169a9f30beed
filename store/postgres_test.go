package store

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/wavesplatform/operations-service/updates"
)

// testDSN returns the connection string for a scratch Postgres instance,
// or skips the test if none is configured. These tests exercise the real
// driver and schema; they are not run as part of a hermetic unit-test
// pass.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("OPERATIONS_SERVICE_TEST_DSN")
	if dsn == "" {
		t.Skip("OPERATIONS_SERVICE_TEST_DSN not set, skipping Postgres integration test")
	}
	return dsn
}

func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	s, err := Open(testDSN(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStoreInsertAndRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var b1, b2 BlockUID
	err := s.Transaction(ctx, func(ctx context.Context, repo Repo) error {
		var err error
		b1, err = repo.InsertBlock(ctx, "blk-test-1", 1, 1_700_000_000_000)
		if err != nil {
			return err
		}
		if err := repo.InsertTx(ctx, "tx-test-1", b1, "sender-1", updates.TxTypeInvokeScript, updates.OpTypeInvokeScript, json.RawMessage(`{}`)); err != nil {
			return err
		}
		b2, err = repo.InsertBlock(ctx, "blk-test-2", 2, 1_700_000_000_001)
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if b1 == 0 || b2 == 0 || b2 <= b1 {
		t.Fatalf("expected strictly increasing uids, got %d, %d", b1, b2)
	}

	err = s.Transaction(ctx, func(ctx context.Context, repo Repo) error {
		return repo.RollbackToBlock(ctx, b1)
	})
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}

	err = s.Transaction(ctx, func(ctx context.Context, repo Repo) error {
		height, err := repo.LastHeight(ctx)
		if err != nil {
			return err
		}
		if height == nil || *height != 1 {
			t.Errorf("expected last height 1 after rollback, got %v", height)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestPostgresStoreRollbackCascadesToTransactions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var b1, b2 BlockUID
	err := s.Transaction(ctx, func(ctx context.Context, repo Repo) error {
		var err error
		b1, err = repo.InsertBlock(ctx, "blk-cascade-1", 10, 1_700_000_000_000)
		if err != nil {
			return err
		}
		b2, err = repo.InsertBlock(ctx, "blk-cascade-2", 11, 1_700_000_000_001)
		if err != nil {
			return err
		}
		if err := repo.InsertTx(ctx, "tx-cascade-1", b2, "sender-1", updates.TxTypeInvokeScript, updates.OpTypeInvokeScript, json.RawMessage(`{}`)); err != nil {
			return err
		}
		return repo.InsertTx(ctx, "tx-cascade-2", b2, "sender-2", updates.TxTypeInvokeScript, updates.OpTypeInvokeScript, json.RawMessage(`{}`))
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	err = s.Transaction(ctx, func(ctx context.Context, repo Repo) error {
		return repo.RollbackToBlock(ctx, b1)
	})
	if err != nil {
		t.Fatalf("rollback of a block with attached transactions must cascade, got: %v", err)
	}

	err = s.Transaction(ctx, func(ctx context.Context, repo Repo) error {
		if _, err := repo.BlockUID(ctx, "blk-cascade-2"); err == nil {
			t.Error("expected rolled-back block to be gone")
		}
		height, err := repo.LastHeight(ctx)
		if err != nil {
			return err
		}
		if height == nil || *height != 10 {
			t.Errorf("expected last height 10 after rollback, got %v", height)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestPostgresStoreTransactionRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sentinel := context.Canceled
	err := s.Transaction(ctx, func(ctx context.Context, repo Repo) error {
		if _, err := repo.InsertBlock(ctx, "blk-test-aborted", 999, 0); err != nil {
			return err
		}
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	err = s.Transaction(ctx, func(ctx context.Context, repo Repo) error {
		_, err := repo.BlockUID(ctx, "blk-test-aborted")
		if err == nil {
			t.Error("aborted transaction must not have persisted its insert")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
}
