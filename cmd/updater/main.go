/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyalty-analytics-go/internal/common"
	"loyalty-analytics-go/internal/config"
	"loyalty-analytics-go/internal/listener"
	"loyalty-analytics-go/internal/updater"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	seedFirst := flag.Bool("seed", false, "Recompute all aggregates from the source tables before consuming events")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting aggregate updater")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *seedFirst {
		if _, err := common.SeedAggregates(ctx, services, cfg.Aggregates); err != nil {
			zap.L().Fatal("Failed to seed aggregates", zap.Error(err))
		}
	}

	upd := updater.New(services.Aggregates, services.Entities, updater.Options{
		Catalog:     services.Catalog,
		Location:    services.Location,
		TierLookup:  cfg.Updater.TierLookup,
		DefaultTier: cfg.Updater.DefaultTier,
		RetryWindow: cfg.Updater.RetryWindow,
		Weekly:      true,
	})

	source, err := listener.NewRocketMQSource(cfg.Updater)
	if err != nil {
		zap.L().Fatal("Failed to create message source", zap.Error(err))
	}

	consumer := listener.NewConsumer(listener.ConsumerConfig{
		Source:             source,
		Processor:          upd,
		ReceiveConcurrency: cfg.Updater.ReceiveConcurrency,
		DedupeWindow:       cfg.Updater.DedupeWindow,
		CleanupInterval:    cfg.Updater.CleanupInterval,
	})
	if err := consumer.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start consumer", zap.Error(err))
	}

	metricsServer := startMetricsServer(cfg.Updater.MetricsAddr)

	zap.L().Info("Updater running",
		zap.String("topic", cfg.Updater.Topic),
		zap.String("consumer_group", cfg.Updater.ConsumerGroup))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping updater...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}

	go consumer.Stop()

	select {
	case <-consumer.Done():
		zap.L().Info("Updater stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}

func startMetricsServer(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		zap.L().Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
