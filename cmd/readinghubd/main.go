package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"readinghub/internal/config"
	"readinghub/internal/daemon"
	"readinghub/internal/logging"
	"readinghub/internal/notes"
	"readinghub/internal/notifications"
	"readinghub/internal/ocr"
	"readinghub/internal/services/cloudocr"
	"readinghub/internal/usage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := notes.Open(cfg)
	if err != nil {
		logger.Error("open notes store", logging.Error(err))
		return
	}

	runner := ocr.NewRunner(cfg, store, newExtractor(cfg), usage.NewRecorder(store, logger), notifications.NewService(cfg), logger)

	d, err := daemon.New(cfg, store, runner, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("readinghubd shutting down")
}

func newExtractor(cfg *config.Config) *cloudocr.Client {
	return cloudocr.NewClient(cfg.OCR.BaseURL,
		cloudocr.WithAuthToken(cfg.OCR.AuthToken),
		cloudocr.WithTimeout(cfg.OCRRequestTimeout()),
		cloudocr.WithMaxImageBytes(cfg.OCR.MaxImageBytes),
	)
}
