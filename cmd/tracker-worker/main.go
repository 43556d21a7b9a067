package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tracker/internal/blob"
	"tracker/internal/config"
	"tracker/internal/events"
	"tracker/internal/log"
	"tracker/internal/storage"
	"tracker/internal/worker"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting tracker-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	// Archival reads pending rows from SQLite; the memory backend has
	// nothing durable to archive.
	if cfg.DataBackend != "sqlite" {
		logger.Error("Worker requires the sqlite data backend", "data_backend", cfg.DataBackend)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	objects, err := newObjectStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize archive object store", log.FieldError, err.Error())
		os.Exit(1)
	}

	archiveWorker := worker.NewArchiveWorker(repo, objects, cfg.ArchiveBatchSize, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Message consumption is optional; the periodic sweep picks up
	// anything a missing broker would have delivered.
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer client.Close()

		go func() {
			handler := func(msg *events.ArchiveMessage) error {
				return archiveWorker.HandleArchiveMessage(ctx, msg)
			}
			if err := client.ConsumeArchive(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err.Error())
				cancel()
			}
		}()
	} else {
		logger.Info("AMQP disabled, relying on periodic sweep only")
	}

	go func() {
		if err := archiveWorker.Run(ctx, cfg.ArchiveInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Archive worker stopped", log.FieldError, err.Error())
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Shutting down worker...")
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}

// newObjectStore selects where archive snapshots land, mirroring the
// receipt blob backend selection.
func newObjectStore(cfg *config.Config, logger *log.Logger) (worker.ObjectWriter, error) {
	if cfg.BlobBackend == "gcs" {
		return blob.NewGCSFromEnv(context.Background(), logger)
	}
	return blob.NewFS(cfg.ReceiptDir, cfg.BaseURL)
}
