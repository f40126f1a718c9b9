package main

import (
	"context"
	"image/color"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"go-rembg-clean/internal/batch"
	"go-rembg-clean/internal/cleaner"
	"go-rembg-clean/internal/config"
	"go-rembg-clean/internal/gimp"
	"go-rembg-clean/internal/logger"
	"go-rembg-clean/internal/segment"
	"go-rembg-clean/internal/storage"
	"go-rembg-clean/internal/transport"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	segmenter := segment.NewClient(cfg.RembgURL)

	if cfg.Serve {
		runServer(cfg, segmenter)
		return
	}
	runBatch(cfg, segmenter)
}

func cleanOptions(cfg *config.Config) cleaner.Options {
	return cleaner.DefaultOptions().
		WithStrength(cfg.Strength).
		WithErode(cfg.Erode).
		WithAlphaBand(cfg.AlphaLow, cfg.AlphaHigh).
		WithBackground(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
}

func runBatch(cfg *config.Config, segmenter segment.Segmenter) {
	var converter *gimp.Converter
	exe, err := gimp.ResolveExecutable(cfg.GimpPath, cfg.GimpEnvPath)
	switch {
	case err != nil && cfg.GimpPath != "":
		// An explicit override that does not resolve is a configuration
		// failure, not a per-file condition.
		log.Fatalf("Failed to resolve GIMP executable: %v", err)
	case err != nil:
		logger.Info("GIMP not found: .xcf files will be skipped")
	case gimp.IsStoreInstall(exe):
		logger.WithField("executable", exe).Warn("Store GIMP detected (not headless-safe): .xcf files will be skipped")
	default:
		logger.WithField("executable", exe).Info("Headless GIMP OK")
		converter = gimp.NewConverter(exe)
	}

	var store storage.Store
	if cfg.AzureAccount != "" {
		azure, err := storage.NewAzureStore(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer)
		if err != nil {
			log.Fatalf("Failed to create Azure store: %v", err)
		}
		store = azure
	} else {
		store = storage.NewLocalStore(cfg.OutputDir)
	}

	runner := batch.NewRunner(batch.Params{
		InputDir:     cfg.InputDir,
		Model:        cfg.Model,
		SkipExisting: cfg.SkipExisting,
		MaxSize:      cfg.MaxSize,
		Workers:      cfg.Workers,
		Clean:        cleanOptions(cfg),
	}, segmenter, converter, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting rembg. The first run may block for a while (model download/compilation)")

	run := func() {
		report, err := runner.Run(ctx)
		if err != nil {
			log.Fatalf("Batch failed: %v", err)
		}
		for _, item := range report.Failed() {
			logger.WithError(item.Err).WithField("file", item.InputPath).Error("File failed")
		}
	}

	if cfg.Schedule == "" {
		run()
		return
	}

	run()
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Schedule, run); err != nil {
		log.Fatalf("Invalid schedule %q: %v", cfg.Schedule, err)
	}
	logger.WithField("schedule", cfg.Schedule).Info("Scheduler started")

	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
}

func runServer(cfg *config.Config, segmenter segment.Segmenter) {
	handler := transport.NewHandler(segmenter, storage.NewHTTPFetcher(), transport.Options{
		DefaultModel: cfg.Model,
		Clean:        cleanOptions(cfg),
		MaxBodySize:  cfg.MaxBodySize,
		MaxImageSize: cfg.MaxSize,
	})

	server := &http.Server{
		Addr:        cfg.ServerAddress(),
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No write timeout: a cold rembg model makes the first response
		// arbitrarily slow.
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"address": cfg.ServerAddress(),
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
