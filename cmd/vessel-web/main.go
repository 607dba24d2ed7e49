package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Bucknalla/go-vessel-simulator/internal/logging"
	"github.com/Bucknalla/go-vessel-simulator/internal/metrics"
	"github.com/Bucknalla/go-vessel-simulator/internal/tracing"
	"github.com/Bucknalla/go-vessel-simulator/internal/web"
	"github.com/Bucknalla/go-vessel-simulator/vessel"
)

func main() {
	envErr := godotenv.Load()

	cfg := web.LoadConfig()
	logger, err := logging.New("vessel-web", os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if envErr != nil {
		logger.Debugf("no .env file found, using system environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.ConfigFromEnv(), logger)
	if err != nil {
		logger.Fatalf("failed to initialise tracing: %v", err)
	}
	defer tracing.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatalf("failed to register metrics: %v", err)
	}

	server, err := web.NewServer(cfg, logger, collector.Handler(),
		vessel.WithRecorder(collector, tracing.NewRunSpans(nil)))
	if err != nil {
		logger.Fatalf("failed to create server: %v", err)
	}
	go server.Broadcast(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Infof("starting vessel simulator web server on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down server...")

	server.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("server forced to shutdown: %v", err)
	}
	logger.Infof("server exited gracefully")
}
