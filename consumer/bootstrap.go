package consumer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wavesplatform/operations-service/config"
	"github.com/wavesplatform/operations-service/log"
	"github.com/wavesplatform/operations-service/store"
	"github.com/wavesplatform/operations-service/updates"
	"github.com/wavesplatform/operations-service/updates/updatespb"
)

// Run wires Source, Batcher and Writer together and blocks until the
// upstream stream ends, ctx is canceled, or a fatal error occurs.
// It first, in parallel, connects to the upstream updates endpoint and
// opens the store, reading the last stored height and rewinding the store
// by config.StartRollbackDepth so a crash mid-microblock can never leave
// the store ahead of a surviving upstream.
func Run(ctx context.Context, cfg config.Consumer, metrics *Metrics) error {
	logger := log.New("component", "consumer")

	argRegime, err := updates.ParseArgEncodingRegime(cfg.ArgumentEncodingRegime)
	if err != nil {
		return err
	}
	tsEncoding, err := updates.ParseTimestampEncoding(cfg.TimestampEncoding)
	if err != nil {
		return err
	}

	var db *store.PostgresStore
	var client *updatespb.Client
	var lastHeight *uint32

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("connecting to database", "config", cfg.Postgres.String())
		var err error
		db, err = store.Open(cfg.Postgres.DSN())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		return db.Transaction(gctx, func(ctx context.Context, repo store.Repo) error {
			height, err := repo.LastHeight(ctx)
			if err != nil {
				return err
			}
			logger.Info("last stored height", "height", height)
			if err := rewindOnBootstrap(ctx, repo, height, cfg.StartRollbackDepth, logger); err != nil {
				return err
			}
			lastHeight = height
			return nil
		})
	})
	g.Go(func() error {
		logger.Info("connecting to blockchain-updates", "url", cfg.BlockchainUpdatesURL)
		var err error
		client, err = updatespb.Connect(gctx, cfg.BlockchainUpdatesURL)
		if err != nil {
			return fmt.Errorf("connect to blockchain-updates: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	defer db.Close()
	defer client.Close()

	startingHeight := cfg.StartingHeight
	if lastHeight != nil {
		startingHeight = *lastHeight
	}
	logger.Info("starting to fetch updates", "height", startingHeight)

	normalizer := updates.NewNormalizer(argRegime, tsEncoding)
	source := NewSource(client, normalizer, logger.New("component", "source"))
	events, err := source.Stream(ctx, startingHeight)
	if err != nil {
		return err
	}

	var maxUpdates *uint32
	if cfg.BatchMaxSize > 0 {
		maxUpdates = &cfg.BatchMaxSize
	}
	maxDelay := cfg.BatchMaxDelay()
	batches := make(chan []updates.Event, 1)
	batcher := NewBatcher(BatchingParams{MaxUpdates: maxUpdates, MaxDelay: &maxDelay}, batches, logger.New("component", "batcher"))
	writer := NewWriter(db, logger.New("component", "writer"))

	pipeline, pctx := errgroup.WithContext(ctx)
	pipeline.Go(func() error {
		defer close(batches)
		return batcher.Run(pctx, events, metrics)
	})
	pipeline.Go(func() error {
		return writer.Run(pctx, batches, metrics)
	})
	return pipeline.Wait()
}

// rewindOnBootstrap applies the startup safety rewind: if height is known
// and at least depth, every row past height-depth is deleted, down to and
// including a full wipe when height equals depth exactly.
func rewindOnBootstrap(ctx context.Context, repo store.Repo, height *uint32, depth uint32, logger log.Logger) error {
	if height == nil || depth == 0 || *height < depth {
		return nil
	}
	rewindTo := *height - depth
	if err := repo.RollbackToHeight(ctx, rewindTo); err != nil {
		return err
	}
	logger.Info("rolled back for safety", "height", rewindTo)
	return nil
}
