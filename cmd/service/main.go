// Command service serves the read-only, paginated operations HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/wavesplatform/operations-service/config"
	"github.com/wavesplatform/operations-service/log"
	"github.com/wavesplatform/operations-service/service"
)

func main() {
	cfg, err := config.LoadService()
	if err != nil {
		log.Crit("failed to load configuration", "error", err)
	}
	log.SetupDefault(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := service.OpenPool(ctx, cfg.Postgres.DSN(), cfg.PoolSize)
	if err != nil {
		log.Crit("failed to open database pool", "error", err)
	}
	defer pool.Close()

	repo := service.NewPgRepo(pool)
	srv := service.NewServer(repo, log.New("component", "service"))

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info("serving operations API", "addr", addr)

	httpServer := &http.Server{Addr: addr, Handler: srv.Router()}
	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Crit("service terminated", "error", err)
	}
	log.Info("service shut down cleanly")
}
