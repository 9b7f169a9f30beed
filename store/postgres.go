package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wavesplatform/operations-service/updates"
)

// PostgresStore is a Store backed by a single pgx connection. The
// underlying *sql.DB is capped at one open connection: transactions are
// blocking database work and must never interleave on the same
// connection, which a single-conn pool enforces
// without a hand-rolled mutex around connection state.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to Postgres at dsn and returns a PostgresStore holding
// exactly one connection.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// Transaction runs fn inside a single SQL transaction, committing if fn
// returns nil and rolling back otherwise (including on panic, which is
// re-raised after rollback).
func (s *PostgresStore) Transaction(ctx context.Context, fn func(context.Context, Repo) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	repo := &postgresRepo{tx: tx}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, repo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %s)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type postgresRepo struct {
	tx *sql.Tx
}

func (r *postgresRepo) LastHeight(ctx context.Context) (*uint32, error) {
	var height sql.NullInt32
	err := r.tx.QueryRowContext(ctx, `SELECT max(height) FROM blocks_microblocks`).Scan(&height)
	if err != nil {
		return nil, fmt.Errorf("last_height: %w", err)
	}
	if !height.Valid {
		return nil, nil
	}
	h := uint32(height.Int32)
	return &h, nil
}

func (r *postgresRepo) RollbackToHeight(ctx context.Context, height uint32) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM blocks_microblocks WHERE height > $1`, int32(height))
	if err != nil {
		return fmt.Errorf("rollback_to_height: %w", err)
	}
	return nil
}

func (r *postgresRepo) RollbackToBlock(ctx context.Context, uid BlockUID) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM blocks_microblocks WHERE uid > $1`, int64(uid))
	if err != nil {
		return fmt.Errorf("rollback_to_block: %w", err)
	}
	return nil
}

func (r *postgresRepo) InsertBlock(ctx context.Context, id string, height uint32, timestamp uint64) (BlockUID, error) {
	var uid int64
	err := r.tx.QueryRowContext(ctx,
		`INSERT INTO blocks_microblocks (id, height, time_stamp) VALUES ($1, $2, $3) RETURNING uid`,
		id, int32(height), int64(timestamp),
	).Scan(&uid)
	if err != nil {
		return 0, fmt.Errorf("insert_block: %w", err)
	}
	return BlockUID(uid), nil
}

func (r *postgresRepo) InsertTx(ctx context.Context, id string, blockUID BlockUID, sender string, txType updates.TransactionType, opType updates.OperationType, operation json.RawMessage) error {
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO transactions (id, block_uid, sender, tx_type, op_type, operation) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, int64(blockUID), sender, int16(txType), string(opType), operation,
	)
	if err != nil {
		return fmt.Errorf("insert_tx: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert_tx: %w", err)
	}
	if rows != 1 {
		return fmt.Errorf("insert_tx: expected to insert 1 row, inserted %d", rows)
	}
	return nil
}

func (r *postgresRepo) BlockUID(ctx context.Context, blockID string) (BlockUID, error) {
	var uid int64
	err := r.tx.QueryRowContext(ctx, `SELECT uid FROM blocks_microblocks WHERE id = $1`, blockID).Scan(&uid)
	if err != nil {
		return 0, fmt.Errorf("block_uid: %w", err)
	}
	return BlockUID(uid), nil
}
