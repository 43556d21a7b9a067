// Package worker archives stored transactions into the object store.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tracker/internal/core"
	"tracker/internal/events"
	"tracker/internal/log"
	"tracker/internal/storage"
)

// ObjectWriter is the slice of the blob store the worker needs.
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// snapshot is the archived JSON form of one transaction.
type snapshot struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Title       string         `json:"title"`
	AmountCents int64          `json:"amountCents"`
	Type        string         `json:"type"`
	Category    string         `json:"category"`
	Date        core.DateValue `json:"date"`
	Note        string         `json:"note,omitempty"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	ArchivedAt  time.Time      `json:"archivedAt"`
}

// ArchiveWorker writes JSON snapshots of stored transactions into the
// object store and tracks archive status in SQLite.
type ArchiveWorker struct {
	storage   *storage.SQLiteRepository
	objects   ObjectWriter
	batchSize int
	logger    *log.Logger
}

func NewArchiveWorker(storage *storage.SQLiteRepository, objects ObjectWriter, batchSize int, logger *log.Logger) *ArchiveWorker {
	return &ArchiveWorker{
		storage:   storage,
		objects:   objects,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleArchiveMessage processes a single archive event from AMQP.
func (w *ArchiveWorker) HandleArchiveMessage(ctx context.Context, msg *events.ArchiveMessage) error {
	w.logger.InfoContext(ctx, "processing archive event",
		log.FieldTransactionID, msg.ID,
		"version", msg.Version)
	return w.archive(ctx, msg.ID)
}

// ProcessPending archives records whose events were lost. Backup
// mechanism behind the AMQP path.
func (w *ArchiveWorker) ProcessPending(ctx context.Context) error {
	return w.sweep(ctx, w.batchSize)
}

// StartupCheck runs a larger sweep once at worker startup to recover
// from downtime.
func (w *ArchiveWorker) StartupCheck(ctx context.Context) error {
	return w.sweep(ctx, w.batchSize*5)
}

// Run performs the startup check and then sweeps on a fixed interval
// until the context is cancelled.
func (w *ArchiveWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.StartupCheck(ctx); err != nil {
		w.logger.ErrorContext(ctx, "startup archive check failed", log.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				w.logger.ErrorContext(ctx, "periodic archive sweep failed", log.FieldError, err)
			}
		}
	}
}

func (w *ArchiveWorker) sweep(ctx context.Context, limit int) error {
	pending, err := w.storage.PendingArchive(ctx, limit)
	if err != nil {
		return fmt.Errorf("list pending archive: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "archiving pending transactions", "count", len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, rec := range pending {
		rec := rec
		g.Go(func() error {
			if err := w.archive(gctx, rec.ID); err != nil {
				// Keep sweeping; the record stays pending for the next pass.
				w.logger.ErrorContext(gctx, "failed to archive transaction",
					log.FieldTransactionID, rec.ID,
					log.FieldError, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *ArchiveWorker) archive(ctx context.Context, id string) error {
	tx, err := w.storage.Get(ctx, id)
	if err != nil {
		if markErr := w.storage.MarkArchiveError(ctx, id); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to record archive error",
				log.FieldTransactionID, id, log.FieldError, markErr)
		}
		return fmt.Errorf("load transaction: %w", err)
	}

	body, err := json.Marshal(snapshot{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Title:       tx.Title,
		AmountCents: tx.Amount.Cents,
		Type:        string(tx.Type),
		Category:    tx.Category,
		Date:        tx.Date,
		Note:        tx.Note,
		ImageURL:    tx.ImageURL,
		CreatedAt:   tx.CreatedAt,
		ArchivedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("archive/%s/%s.json", tx.UserID, tx.ID)
	if err := w.objects.Put(ctx, key, body, "application/json"); err != nil {
		if markErr := w.storage.MarkArchiveError(ctx, id); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to record archive error",
				log.FieldTransactionID, id, log.FieldError, markErr)
		}
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err := w.storage.MarkArchived(ctx, id); err != nil {
		// The snapshot landed; the next sweep will retry the bookkeeping.
		w.logger.ErrorContext(ctx, "failed to mark archived",
			log.FieldTransactionID, id, log.FieldError, err)
		return nil
	}

	w.logger.InfoContext(ctx, "transaction archived",
		log.FieldTransactionID, id,
		log.FieldUserID, tx.UserID,
		log.FieldReceiptKey, key)
	return nil
}
