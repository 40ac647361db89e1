package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Guizzs26/scorebook-sync/internal/api"
	"github.com/Guizzs26/scorebook-sync/internal/broker"
	"github.com/Guizzs26/scorebook-sync/internal/config"
	"github.com/Guizzs26/scorebook-sync/internal/db"
	"github.com/Guizzs26/scorebook-sync/pkg/infra"
	"github.com/Guizzs26/scorebook-sync/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := infra.SetupLogger(cfg)
	defer infra.CloseLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := db.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Fatal error connecting to Postgres", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("Fatal error preparing schema", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(cfg.HTTPAddr, repo, logger)
	if err := srv.Start(); err != nil {
		logger.Error("Fatal error starting score API", "error", err)
		os.Exit(1)
	}

	go startObservabilityServer(cfg.MetricsAddr, logger)

	brokerDone := make(chan struct{})
	go runBrokerLink(ctx, cfg.RabbitMQURL, srv, logger, brokerDone)

	logger.Info("Score API started", "pid", os.Getpid())
	<-ctx.Done()

	logger.Info("Shutting down score API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	<-brokerDone
	logger.Info("Shutdown complete")
}

// runBrokerLink keeps a healthy publisher installed on srv. While the broker
// is down the API keeps serving and notifications are skipped.
func runBrokerLink(ctx context.Context, url string, srv *api.Server, logger *slog.Logger, done chan struct{}) {
	defer close(done)

	backoff := infra.NewBackoff(1*time.Second, 60*time.Second, 2.0)
	var client *broker.RabbitMQClient

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		if client == nil || !client.IsHealthy() {
			if client != nil {
				srv.SetPublisher(nil)
				client.Close()
				client = nil
				metrics.BrokerReconnections.Inc()
			}

			c, err := broker.NewRabbitMQClient(url, logger)
			if err != nil {
				metrics.BrokerHealthy.Set(0)
				logger.Error("RabbitMQ link failure, retrying", "attempt", backoff.Attempts()+1, "error", err)
				if !backoff.Wait(ctx) {
					return
				}
				continue
			}

			logger.Info("RabbitMQ link established")
			client = c
			backoff.Reset()
			srv.SetPublisher(client)
		}

		select {
		case <-ctx.Done():
			srv.SetPublisher(nil)
			client.Close()
			return
		case <-ticker.C:
		}
	}
}

func startObservabilityServer(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("Observability server online", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Observability server failed", "error", err)
	}
}
