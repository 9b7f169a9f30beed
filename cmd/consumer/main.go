// Command consumer runs the blockchain-updates ingestion pipeline:
// stream → batch → write. It serves Prometheus metrics on METRICS_PORT
// and exits the process on any fatal error; a supervisor is expected to
// restart it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wavesplatform/operations-service/config"
	"github.com/wavesplatform/operations-service/consumer"
	"github.com/wavesplatform/operations-service/log"
)

func main() {
	cfg, err := config.LoadConsumer()
	if err != nil {
		log.Crit("failed to load configuration", "error", err)
	}
	log.SetupDefault(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := consumer.NewMetrics(registry)

	go serveMetrics(cfg.MetricsPort, registry)

	if err := consumer.Run(ctx, cfg, metrics); err != nil && ctx.Err() == nil {
		log.Crit("consumer terminated", "error", err)
	}
	log.Info("consumer shut down cleanly")
}

func serveMetrics(port uint16, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/startz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	addr := fmt.Sprintf(":%d", port)
	log.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Crit("metrics server failed", "error", err)
	}
}
