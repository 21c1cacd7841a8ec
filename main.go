package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"tripcost/anomaly"
	qhttp "tripcost/http"
	"tripcost/logging"
	"tripcost/ml"
	"tripcost/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load config
	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Wire the model cache and scoring
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	cache := ml.NewModelCache(config.Model.Path, ml.WithLogger(logger), ml.WithMetrics(metrics))
	scoring, err := ml.NewScoringService(cache, config.Model.EstimateCache, logger, metrics)
	if err != nil {
		logger.Fatal("failed to build scoring service", zap.Error(err))
	}

	// The service still starts without a model; /predict_cost answers 503 until one loads.
	if _, err := cache.Get(); err != nil {
		logger.Warn("model not available at startup, run cmd/train_model to create it",
			zap.String("path", config.Model.Path),
			zap.Error(err),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if config.Model.WatchArtifact && !cache.Ready() {
		watcher, err := ml.NewArtifactWatcher(cache, logger)
		if err != nil {
			logger.Warn("artifact watcher disabled", zap.Error(err))
		} else {
			go watcher.Run(ctx)
		}
	}

	// 3. Start HTTP server
	api := qhttp.NewAPI(scoring, anomaly.NewMessages(config.Locale), logger, metrics)
	handler := qhttp.NewHandler(config.Http, api, registry, logger, metrics)
	server := qhttp.NewServer(config.Http, handler, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	cancel()

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}
