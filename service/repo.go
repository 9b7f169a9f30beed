// Package service is the read-only paginated operations API: a pooled
// Postgres reader behind a small HTTP surface.
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wavesplatform/operations-service/updates"
)

// Operation is one persisted transaction row, re-serialized as its
// original normalized JSON body.
type Operation struct {
	UID  int64
	Body json.RawMessage
}

// MarshalJSON renders the operation's stored body verbatim; UID is
// surfaced separately as a pagination cursor, not as a field of the
// operation itself.
func (o Operation) MarshalJSON() ([]byte, error) { return o.Body, nil }

// Page selects a window of rows: start (if set) is the first uid to
// include, and limit bounds how many rows are returned.
type Page struct {
	Start *int64
	Limit uint32
}

// Repo is the read path's query surface.
type Repo interface {
	// FetchOperations returns up to page.Limit operations matching the
	// given filters, plus the cursor to pass as the next page's Start, or
	// nil if this was the last page.
	FetchOperations(ctx context.Context, opTypes []updates.OperationType, sender *string, page Page) ([]Operation, *int64, error)
}

// PgRepo is a Repo backed by a pgxpool connection pool.
type PgRepo struct {
	pool *pgxpool.Pool
}

// NewPgRepo builds a PgRepo over an already-open pool.
func NewPgRepo(pool *pgxpool.Pool) *PgRepo { return &PgRepo{pool: pool} }

// FetchOperations probes for one extra row beyond the requested limit to
// detect whether a further page exists, avoiding a separate COUNT query.
func (r *PgRepo) FetchOperations(ctx context.Context, opTypes []updates.OperationType, sender *string, page Page) ([]Operation, *int64, error) {
	query := `SELECT uid, operation FROM transactions WHERE 1 = 1`
	args := []interface{}{}

	if len(opTypes) > 0 {
		rawTypes := make([]string, len(opTypes))
		for i, t := range opTypes {
			rawTypes[i] = string(t)
		}
		args = append(args, rawTypes)
		query += fmt.Sprintf(" AND op_type = ANY($%d)", len(args))
	}
	if sender != nil {
		args = append(args, *sender)
		query += fmt.Sprintf(" AND sender = $%d", len(args))
	}
	if page.Start != nil {
		args = append(args, *page.Start)
		query += fmt.Sprintf(" AND uid >= $%d", len(args))
	}
	args = append(args, int64(page.Limit)+1)
	query += fmt.Sprintf(" ORDER BY uid LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch_operations: %w", err)
	}
	defer rows.Close()

	var operations []Operation
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.UID, &op.Body); err != nil {
			return nil, nil, fmt.Errorf("fetch_operations: %w", err)
		}
		operations = append(operations, op)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("fetch_operations: %w", err)
	}

	var next *int64
	if uint32(len(operations)) > page.Limit {
		last := operations[len(operations)-1]
		next = &last.UID
		operations = operations[:len(operations)-1]
	}
	return operations, next, nil
}
