package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/wavesplatform/operations-service/log"
	"github.com/wavesplatform/operations-service/updates"
)

// BatchingParams bounds how long the Batcher accumulates updates before
// flushing. Either bound may be left unset (nil): with both unset the
// batcher flushes every update individually, since buffering under no
// bound at all risks holding updates forever.
type BatchingParams struct {
	MaxUpdates *uint32
	MaxDelay   *time.Duration
}

// Batcher absorbs short reorgs in memory and groups sequential updates
// into batches for the Writer. It always holds back a trailing
// microblock by one flush cycle, since a single-microblock rollback
// (the most common kind) can then be resolved by dropping it from the
// buffer instead of round-tripping through the database.
type Batcher struct {
	params BatchingParams
	output chan<- []updates.Event
	log    log.Logger

	buffer             []updates.Event
	lastBlockTimestamp *uint64
	lastBlockHeight    *uint32
	lastFlush          time.Time
}

// NewBatcher creates a Batcher that writes completed batches to out
// (capacity should be 1: the writer applies one batch at a time and
// back-pressures the whole pipeline while doing so). Its input channel
// and metrics are passed to Run.
func NewBatcher(params BatchingParams, out chan<- []updates.Event, logger log.Logger) *Batcher {
	capacity := 1
	if params.MaxUpdates != nil {
		capacity = int(*params.MaxUpdates)
	}
	return &Batcher{
		params:    params,
		output:    out,
		log:       logger,
		buffer:    make([]updates.Event, 0, capacity),
		lastFlush: time.Now(),
	}
}

// Run drains in until it is closed or ctx is canceled, flushing
// completed batches to the Batcher's output channel.
func (b *Batcher) Run(ctx context.Context, in <-chan updates.Event, metrics *Metrics) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-in:
			if !ok {
				return nil
			}
			b.pushUpdate(event)
			if b.needFlush() {
				count := len(b.buffer)
				elapsed := time.Since(b.lastFlush)
				b.log.Debug("collected updates", "count", count, "elapsed", elapsed)
				metrics.UpdatesBatchSize.Set(float64(count))
				metrics.UpdatesBatchTimeMs.Set(float64(elapsed.Milliseconds()))
				if err := b.flush(ctx); err != nil {
					return err
				}
			}
		}
	}
}

func (b *Batcher) pushUpdate(event updates.Event) {
	switch e := event.(type) {
	case *updates.Append:
		if e.IsMicroblock && e.Timestamp == nil {
			if b.lastBlockHeight == nil {
				panic("internal error: propagate timestamp failed (no known block)")
			}
			if *b.lastBlockHeight != e.Height {
				panic(fmt.Sprintf("internal error: propagate timestamp failed (last_height=%d, append.height=%d)", *b.lastBlockHeight, e.Height))
			}
			if b.lastBlockTimestamp == nil {
				panic("internal error: propagate timestamp failed (no saved timestamp)")
			}
			ts := *b.lastBlockTimestamp
			e.Timestamp = &ts
		} else {
			height := e.Height
			b.lastBlockHeight = &height
			b.lastBlockTimestamp = e.Timestamp
		}
		b.buffer = append(b.buffer, event)

	case *updates.Rollback:
		// Scan the buffer backwards for the block this rollback targets.
		// If found, drop everything after it and discard the rollback
		// itself — it has already been handled in memory. Otherwise keep
		// it so the database applies it.
		for i := len(b.buffer) - 1; i >= 0; i-- {
			if append_, ok := b.buffer[i].(*updates.Append); ok && append_.BlockID() == e.BlockID() {
				b.buffer = b.buffer[:i+1]
				return
			}
		}
		b.lastBlockHeight = nil
		b.lastBlockTimestamp = nil
		b.buffer = append(b.buffer, event)
	}
}

func (b *Batcher) needFlush() bool {
	if len(b.buffer) == 0 {
		return false
	}

	last := b.buffer[len(b.buffer)-1]

	// Don't flush with a rollback on top: wait for its replacement block.
	if _, ok := last.(*updates.Rollback); ok {
		return false
	}

	// Flush if a rollback is queued anywhere but on top (its replacement
	// block has already arrived).
	for _, u := range b.buffer {
		if _, ok := u.(*updates.Rollback); ok {
			return true
		}
	}

	// Flush if a microblock sits on top of at least two other updates
	// (a microblock with only one or zero peers stays buffered to absorb
	// its most likely rollback in memory; see the consumer.Batcher entry
	// of DESIGN.md for why the threshold is two rather than the one a
	// naive reading of the flush-predicate table would suggest).
	if len(b.buffer) > 2 {
		if append_, ok := last.(*updates.Append); ok && append_.IsMicroblock {
			return true
		}
	}

	if b.params.MaxUpdates != nil && uint32(len(b.buffer)) >= *b.params.MaxUpdates {
		return true
	}

	if b.params.MaxDelay != nil && time.Since(b.lastFlush) >= *b.params.MaxDelay {
		return true
	}

	// With neither bound configured, never hold an update back.
	if b.params.MaxUpdates == nil && b.params.MaxDelay == nil {
		return true
	}

	return false
}

func (b *Batcher) flush(ctx context.Context) error {
	var delayed updates.Event
	last := b.buffer[len(b.buffer)-1]
	if append_, ok := last.(*updates.Append); ok && append_.IsMicroblock {
		delayed = last
		b.buffer = b.buffer[:len(b.buffer)-1]
	}

	batch := b.buffer
	b.buffer = make([]updates.Event, 0, cap(batch))

	select {
	case b.output <- batch:
	case <-ctx.Done():
		return ctx.Err()
	}

	if delayed != nil {
		b.buffer = append(b.buffer, delayed)
	}
	b.lastFlush = time.Now()
	return nil
}
