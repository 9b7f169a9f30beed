package consumer

import (
	"context"
	"fmt"

	"github.com/wavesplatform/operations-service/log"
	"github.com/wavesplatform/operations-service/updates"
	"github.com/wavesplatform/operations-service/updates/updatespb"
)

// Source turns the upstream gRPC stream into a channel of normalized
// Events.
type Source struct {
	client     *updatespb.Client
	normalizer *updates.Normalizer
	log        log.Logger
}

// NewSource builds a Source over an already-connected client.
func NewSource(client *updatespb.Client, normalizer *updates.Normalizer, logger log.Logger) *Source {
	return &Source{client: client, normalizer: normalizer, log: logger}
}

// Stream opens the upstream Subscribe RPC from fromHeight and returns a
// channel of normalized events. The channel's capacity (16) is
// arbitrary, chosen only to let the pump goroutine stay slightly ahead
// of the batcher; it closes when the upstream stream ends or errors, and
// the pump goroutine logs the cause before returning.
func (s *Source) Stream(ctx context.Context, fromHeight uint32) (<-chan updates.Event, error) {
	if fromHeight > uint32(1<<31-1) {
		return nil, fmt.Errorf("from_height %d exceeds the upstream's signed 32-bit range", fromHeight)
	}
	stream, err := s.client.Subscribe(ctx, int32(fromHeight))
	if err != nil {
		return nil, fmt.Errorf("subscribe from height %d: %w", fromHeight, err)
	}

	out := make(chan updates.Event, 16)
	go s.pump(ctx, stream, out)
	return out, nil
}

func (s *Source) pump(ctx context.Context, stream updatespb.Stream, out chan<- updates.Event) {
	defer close(out)
	for {
		envelope, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error("error receiving blockchain updates", "error", err)
			return
		}
		if envelope.Update == nil {
			continue
		}
		event, err := s.normalizer.Normalize(envelope.Update)
		if err != nil {
			s.log.Error("error normalizing blockchain update", "error", err)
			return
		}
		select {
		case out <- event:
		case <-ctx.Done():
			return
		}
	}
}
