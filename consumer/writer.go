package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wavesplatform/operations-service/log"
	"github.com/wavesplatform/operations-service/store"
	"github.com/wavesplatform/operations-service/updates"
)

// Writer applies batches of events to a store.Store, one transaction per
// batch. There is no retry layer: any store error is fatal, since a
// partially-applied batch would desynchronize the store from the
// upstream chain and only a supervisor restart (with bootstrap's rewind)
// can recover safely.
type Writer struct {
	db  store.Store
	log log.Logger
}

// NewWriter builds a Writer over db.
func NewWriter(db store.Store, logger log.Logger) *Writer {
	return &Writer{db: db, log: logger}
}

// Run drains batches until in is closed or ctx is canceled, applying
// each one atomically and reporting the resulting height.
func (w *Writer) Run(ctx context.Context, in <-chan []updates.Event, metrics *Metrics) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-in:
			if !ok {
				return nil
			}
			start := time.Now()
			w.log.Debug("writing batch", "count", len(batch))
			newHeight, err := w.writeBatch(ctx, batch)
			if err != nil {
				return fmt.Errorf("write batch: %w", err)
			}
			elapsed := time.Since(start)
			metrics.DatabaseWriteTimeMs.Set(float64(elapsed.Milliseconds()))
			if newHeight != nil {
				metrics.Height.Set(float64(*newHeight))
				w.log.Info("saved batch", "count", len(batch), "elapsed", elapsed, "height", *newHeight)
			} else {
				w.log.Info("saved batch", "count", len(batch), "elapsed", elapsed)
			}
		}
	}
}

// writeBatch applies one batch within a single transaction and returns
// the height of the last Append seen, if any.
func (w *Writer) writeBatch(ctx context.Context, batch []updates.Event) (*uint32, error) {
	var lastHeight *uint32
	err := w.db.Transaction(ctx, func(ctx context.Context, repo store.Repo) error {
		lastHeight = nil
		for _, event := range batch {
			switch e := event.(type) {
			case *updates.Append:
				if e.Timestamp == nil {
					panic("internal error: append event reached the writer without a timestamp")
				}
				blockUID, err := repo.InsertBlock(ctx, e.BlockIDValue, e.Height, *e.Timestamp)
				if err != nil {
					return err
				}
				for _, tx := range e.Transactions {
					body, err := json.Marshal(tx)
					if err != nil {
						return fmt.Errorf("marshal transaction %s: %w", tx.ID, err)
					}
					if err := repo.InsertTx(ctx, tx.ID, blockUID, tx.Sender, tx.TxType, tx.OpType, body); err != nil {
						return err
					}
				}
				height := e.Height
				lastHeight = &height

			case *updates.Rollback:
				blockUID, err := repo.BlockUID(ctx, e.BlockIDValue)
				if err != nil {
					return err
				}
				if err := repo.RollbackToBlock(ctx, blockUID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lastHeight, nil
}
