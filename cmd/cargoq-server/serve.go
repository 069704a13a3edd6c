package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
	"github.com/dayemsiddiqui/cargo-queue/cmd/cargoq-server/internal/api"
	"github.com/dayemsiddiqui/cargo-queue/cmd/cargoq-server/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the expiry sweeper",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()
		return serve(ctx, a)
	},
}

func serve(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger
	logger.Infof("Starting cargo-queue server v%s", api.Version)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	notifications := a.notifications()

	queues, err := cargoqueue.NewQueueService(
		cargoqueue.WithRepositories(a.repos.Queue, a.repos.Message),
		cargoqueue.WithLogger(logger),
		cargoqueue.WithMetrics(m),
		cargoqueue.WithNotifications(notifications),
	)
	if err != nil {
		return err
	}

	topics, err := cargoqueue.NewTopicService(
		cargoqueue.WithTopicRepositories(a.repos.Topic, queues),
		cargoqueue.WithTopicLogger(logger),
		cargoqueue.WithTopicMetrics(m),
		cargoqueue.WithTopicNotifications(notifications),
		cargoqueue.WithFanoutConcurrency(cfg.Queue.FanoutConcurrency),
	)
	if err != nil {
		return err
	}

	sweeper, err := a.newSweeper(m)
	if err != nil {
		return err
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go func() {
		logger.Infof("Starting expiry sweeper (interval: %v)", cfg.Queue.SweepInterval)
		sweeper.Run(workerCtx, cfg.Queue.SweepInterval)
	}()

	handler := api.NewHandler(queues, topics, logger, cfg.Queue.ClaimVisibility)
	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(handler, api.RouterConfig{
			RateLimit: cfg.Server.RateLimit,
			Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			Ping:      a.ping,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	cancelWorker()
	logger.Info("Server stopped gracefully")
	return nil
}
