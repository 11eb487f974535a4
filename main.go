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
	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"crimelens/api"
	"crimelens/config"
	"crimelens/dataset"
	"crimelens/pipeline"
	"crimelens/sources"
)

func main() {
	logger := logrus.New()

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found (ok)")
	}

	cfg, err := config.Load(os.Getenv("CRIMELENS_CONFIG"))
	if err != nil {
		logger.WithError(err).Fatal("could not load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	client := resty.New().
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetTimeout(cfg.FetchTimeout)

	bulk := sources.NewBulkClient(client, cfg.BulkBaseURL)
	live := sources.NewLiveClient(client, cfg.LiveAPIURL, cfg.LiveResourceID, cfg.LiveLimit)
	loader := pipeline.NewLoader(bulk, live, cfg.BulkFiles, logger)
	cache := pipeline.NewCache(loader, cfg.RefreshTTL, logger)
	server := api.NewServer(cache, logger, cfg.ExportMaxRows)

	cache.OnRebuild = func(table *dataset.Table, report *pipeline.Report) {
		server.BroadcastRefresh(api.RefreshUpdate{
			Added:   report.LiveAdded,
			Total:   table.Len(),
			BuiltAt: report.BuiltAt,
		})
		if cfg.SnapshotPath != "" {
			if err := dataset.WriteSnapshot(cfg.SnapshotPath, table); err != nil {
				logger.WithError(err).Error("could not write sqlite snapshot")
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	logger.Info("Boston crime gateway starting...")

	// Build immediately on startup; a total source failure is not fatal for
	// the process, the API serves 503 until a later rebuild succeeds.
	if _, _, err := cache.Get(ctx); err != nil {
		if errors.Is(err, pipeline.ErrNoData) {
			logger.Error("startup build failed, serving without data until a rebuild succeeds")
		} else {
			logger.WithError(err).Error("startup build failed")
		}
	}

	r := gin.Default()
	server.SetupRoutes(r)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("http server failed")
		}
	}()

	ticker := time.NewTicker(cfg.RefreshTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down gateway")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("http shutdown")
			}
			return
		case <-ticker.C:
			if _, _, err := cache.Get(ctx); err != nil {
				logger.WithError(err).Warn("scheduled rebuild failed")
			}
		}
	}
}
