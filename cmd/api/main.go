package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyalty-analytics-go/internal/api"
	"loyalty-analytics-go/internal/common"
	"loyalty-analytics-go/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	// Warehouse endpoints answer 503 when no DSN is configured.
	var wh api.WarehouseQueries
	if cfg.Warehouse.Dsn != "" {
		ws, err := common.InitializeWarehouse(ctx, cfg, services.Catalog)
		if err != nil {
			zap.L().Fatal("Failed to connect to warehouse", zap.Error(err))
		}
		defer ws.Close()
		wh = ws
	} else {
		zap.L().Info("No warehouse configured, warehouse endpoints disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.NewAnalyticsService(services.Entities, services.Reader, wh))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              cfg.Api.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("Read API listening", zap.String("addr", cfg.Api.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Read API server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping read API...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
		return
	}
	zap.L().Info("Read API stopped gracefully")
}
