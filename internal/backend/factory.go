package backend

import (
	"context"
	"fmt"

	"tracker/internal/blob"
	"tracker/internal/events"
	"tracker/internal/ledger/memory"
	"tracker/internal/log"
	"tracker/internal/receipts"
	"tracker/internal/storage"
)

// Demo login seeded into the in-memory store so the dev backend is
// usable without provisioning.
const (
	demoUserID   = "u-demo"
	demoEmail    = "demo@tracker.local"
	demoPassword = "demo-password"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, cleanup, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	receiptStore, err := f.createReceiptStore(ctx, config)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, err
	}

	// AMQP is optional; without it the worker's sweep still archives.
	var publisher *events.Client
	if config.AMQPURL != "" {
		publisher, err = events.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("failed to initialize AMQP client, continuing without events", log.FieldError, err)
			publisher = nil
		} else {
			f.logger.Info("initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result := &Result{
		Store:    store,
		Receipts: receiptStore,
		Cleanup: func() error {
			if publisher != nil {
				publisher.Close()
			}
			if cleanup != nil {
				return cleanup()
			}
			return nil
		},
	}
	if publisher != nil {
		result.Publisher = publisher
	}
	return result, nil
}

func (f *DefaultFactory) createStore(config Config) (DocumentStore, CleanupFunc, error) {
	switch config.Type {
	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, repo.Close, nil

	case MemoryStore:
		store := memory.New()
		if err := store.SeedUser(demoUserID, demoEmail, "Demo", demoPassword); err != nil {
			return nil, nil, fmt.Errorf("seed demo user: %w", err)
		}
		f.logger.Info("initialized memory backend", "demo_email", demoEmail)
		return store, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createReceiptStore(ctx context.Context, config Config) (receipts.Store, error) {
	switch config.BlobType {
	case GCSBlob:
		store, err := blob.NewGCSFromEnv(ctx, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS receipt store: %w", err)
		}
		f.logger.Info("initialized GCS receipt store", log.FieldBucket, config.GCSBucket)
		return store, nil

	case FSBlob:
		store, err := blob.NewFS(config.ReceiptDir, config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize fs receipt store: %w", err)
		}
		f.logger.Info("initialized fs receipt store", "dir", config.ReceiptDir)
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", config.BlobType)
	}
}
