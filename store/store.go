// Package store is the consumer's write-side persistence layer: a single
// connection behind an atomic-transaction API, matching the original's
// "shared store handle" design (SPEC_FULL.md §5) — the read path's
// pooled access lives in package service instead.
package store

import (
	"context"
	"encoding/json"

	"github.com/wavesplatform/operations-service/updates"
)

// BlockUID is the monotonic surrogate key assigned to each persisted
// block or microblock row; "rollback to block X" deletes every row with
// a larger uid than X's.
type BlockUID int64

// Repo is the set of operations available inside one Store transaction.
// A Repo must never be used outside the transaction that produced it.
type Repo interface {
	// LastHeight returns the greatest height stored, or nil if the store
	// is empty.
	LastHeight(ctx context.Context) (*uint32, error)
	// RollbackToHeight deletes every row with height greater than height.
	RollbackToHeight(ctx context.Context, height uint32) error
	// RollbackToBlock deletes every row with uid greater than uid.
	RollbackToBlock(ctx context.Context, uid BlockUID) error
	// InsertBlock inserts one block/microblock row and returns its uid.
	InsertBlock(ctx context.Context, id string, height uint32, timestamp uint64) (BlockUID, error)
	// InsertTx inserts one transaction row under the given block.
	InsertTx(ctx context.Context, id string, blockUID BlockUID, sender string, txType updates.TransactionType, opType updates.OperationType, operation json.RawMessage) error
	// BlockUID looks up the uid of a previously inserted block by id.
	BlockUID(ctx context.Context, blockID string) (BlockUID, error)
}

// Store runs a function within a database transaction, committing on a
// nil return and rolling back otherwise.
type Store interface {
	Transaction(ctx context.Context, fn func(context.Context, Repo) error) error
	Close() error
}
