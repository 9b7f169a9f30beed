package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wavesplatform/operations-service/log"
	"github.com/wavesplatform/operations-service/updates"
)

func u32(v uint32) *uint32 { return &v }
func u64(v uint64) *uint64 { return &v }

func appendBlock(id string, height uint32, ts uint64) *updates.Append {
	return &updates.Append{BlockIDValue: id, Height: height, Timestamp: u64(ts)}
}

func appendMicroblock(id string, height uint32) *updates.Append {
	return &updates.Append{BlockIDValue: id, Height: height, IsMicroblock: true}
}

func rollback(id string) *updates.Rollback {
	return &updates.Rollback{BlockIDValue: id}
}

func runBatcher(t *testing.T, maxUpdates uint32, events []updates.Event) [][]updates.Event {
	t.Helper()
	in := make(chan updates.Event, len(events))
	out := make(chan []updates.Event, len(events))
	for _, e := range events {
		in <- e
	}
	close(in)

	b := NewBatcher(BatchingParams{MaxUpdates: u32(maxUpdates)}, out, log.New())
	metrics := NewMetrics(prometheus.NewRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Run(ctx, in, metrics); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	var batches [][]updates.Event
	for batch := range out {
		batches = append(batches, batch)
	}
	return batches
}

func TestBatcherScenario1_SequentialBlocksFlushAsOneBatch(t *testing.T) {
	events := []updates.Event{
		appendBlock("b1", 1, 100),
		appendBlock("b2", 2, 200),
		appendBlock("b3", 3, 300),
	}
	batches := runBatcher(t, 3, events)
	if len(batches) != 1 || len(batches[0]) != 3 {
		t.Fatalf("expected one batch of 3, got %v", batches)
	}
}

func TestBatcherScenario2_MicroblockThenBlockTailIsNotDelayed(t *testing.T) {
	events := []updates.Event{
		appendBlock("b1", 1, 100),
		appendMicroblock("mb1", 1),
		appendBlock("b2", 2, 200),
	}
	batches := runBatcher(t, 3, events)
	if len(batches) != 1 || len(batches[0]) != 3 {
		t.Fatalf("expected one batch of 3 (tail is a block, not delayed), got %v", batches)
	}
	mb := batches[0][1].(*updates.Append)
	if mb.Timestamp == nil || *mb.Timestamp != 100 {
		t.Errorf("microblock must inherit parent block's timestamp, got %v", mb.Timestamp)
	}
}

func TestBatcherScenario3_RollbackFoldsBufferInMemory(t *testing.T) {
	events := []updates.Event{
		appendBlock("b1", 1, 100),
		appendMicroblock("mb1", 1),
	}
	in := make(chan updates.Event, len(events)+1)
	out := make(chan []updates.Event, len(events)+1)
	for _, e := range events {
		in <- e
	}
	in <- rollback("b1")
	close(in)

	b := NewBatcher(BatchingParams{MaxUpdates: u32(3)}, out, log.New())
	metrics := NewMetrics(prometheus.NewRegistry())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Run(ctx, in, metrics); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	var batches [][]updates.Event
	for batch := range out {
		batches = append(batches, batch)
	}
	if len(batches) != 0 {
		t.Fatalf("rollback absorbed in memory must not flush anything, got %v", batches)
	}
	if len(b.buffer) != 1 || b.buffer[0].BlockID() != "b1" {
		t.Fatalf("buffer after the fold should contain only b1, got %v", b.buffer)
	}
}

func TestBatcherScenario4_MicroblockTailIsDelayed(t *testing.T) {
	events := []updates.Event{
		appendBlock("b1", 1, 100),
		appendMicroblock("mb1", 1),
		appendMicroblock("mb2", 1),
	}
	batches := runBatcher(t, 3, events)
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one batch of 2 with mb2 held back, got %v", batches)
	}
	if batches[0][0].BlockID() != "b1" || batches[0][1].BlockID() != "mb1" {
		t.Fatalf("unexpected batch contents: %v", batches)
	}
}

func TestBatcherScenario5_UnresolvedRollbackStaysOnTop(t *testing.T) {
	events := []updates.Event{rollback("bX")}
	batches := runBatcher(t, 3, events)
	if len(batches) != 0 {
		t.Fatalf("a rollback sitting on top of the buffer must not flush, got %v", batches)
	}
}

func TestBatcherBoundedPressure(t *testing.T) {
	events := []updates.Event{
		appendBlock("b1", 1, 100),
		appendBlock("b2", 2, 200),
		appendMicroblock("mb1", 2),
	}
	in := make(chan updates.Event, len(events))
	out := make(chan []updates.Event, len(events))
	for _, e := range events {
		in <- e
	}
	close(in)

	b := NewBatcher(BatchingParams{MaxUpdates: u32(2)}, out, log.New())
	metrics := NewMetrics(prometheus.NewRegistry())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Run(ctx, in, metrics); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(b.buffer) > 3 {
		t.Fatalf("buffer size at any point must not exceed max_updates+1, got %d", len(b.buffer))
	}
}

func TestBatcherRollbackNotInBufferFollowedByMicroblockPanics(t *testing.T) {
	// Flagged, not resolved, in SPEC_FULL.md §9: a rollback whose target
	// isn't in the buffer clears the cached height/timestamp; a
	// timestamp-less microblock arriving right after has nothing to
	// inherit from and the programmer-error assertion fires. Whether the
	// real upstream can produce this sequence is unestablished.
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic from the unsatisfiable timestamp-propagation assertion")
		}
	}()
	b := NewBatcher(BatchingParams{MaxUpdates: u32(3)}, make(chan []updates.Event, 1), log.New())
	b.pushUpdate(rollback("bZ-not-in-buffer"))
	b.pushUpdate(appendMicroblock("mb", 1))
}
