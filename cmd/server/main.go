package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"StockForecaster/internal/artifact"
	"StockForecaster/internal/collector"
	"StockForecaster/internal/config"
	"StockForecaster/internal/forecast"
	"StockForecaster/internal/logging"
	"StockForecaster/internal/recorder"
	"StockForecaster/internal/scheduler"
	"StockForecaster/internal/server"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config validation: %v", err)
	}

	logger, logCloser, err := logging.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		logrus.Fatalf("init logging: %v", err)
	}
	defer logCloser.Close()
	logger.Info("StockForecaster starting")

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "alpaca":
		fetcher = collector.NewAlpacaFetcher(cfg.DataSource.AlpacaKey, cfg.DataSource.AlpacaSecret)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(collector.DefaultYahooBaseURL, cfg.DataSource.Proxy)
	}
	logger.WithField("source", fetcher.Name()).Info("data source selected")

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.WithError(err).Warn("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	svc := forecast.NewService(
		collector.NewCollector(fetcher, logger),
		artifact.NewStore(cfg.Artifacts.ModelPath, cfg.Artifacts.ScalerPath),
		rec,
		logger,
	)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RetrainEnabled() {
		sched := scheduler.NewScheduler(ctx, svc, logger)
		if err := sched.RegisterRetrain(cfg.Schedule.RetrainCron, cfg.Schedule.RetrainSymbol); err != nil {
			logger.Fatalf("register cron tasks: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	if level, _ := logrus.ParseLevel(cfg.Log.Level); level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	api := server.New(svc, rec, server.Options{
		LogFile:     cfg.Log.File,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit,
	}, logger)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("run HTTP server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.WithField("signal", sig.String()).Info("shutdown signal received, stopping")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server forced to shutdown")
	}
	logger.Info("StockForecaster stopped")
}
