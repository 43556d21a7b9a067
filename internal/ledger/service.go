package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tracker/internal/core"
	"tracker/internal/log"
)

var (
	// ErrInvalidDraft wraps the specific core validation failure.
	ErrInvalidDraft = errors.New("invalid draft")

	// ErrStore wraps any document store failure. Store errors always
	// propagate to the caller; there is no fallback data.
	ErrStore = errors.New("store failure")

	// ErrSubmissionInFlight rejects a second submission attempt while the
	// same user's previous one is still running.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)

// Overview is the aggregate view served to the dashboard.
type Overview struct {
	DisplayName string
	Summary     core.BalanceSummary
	Recent      core.RecentView
}

// Service orchestrates the submission pipeline and the overview read path.
type Service struct {
	writer    TransactionWriter
	lister    TransactionLister
	profiles  ProfileReader
	uploader  ReceiptUploader
	publisher ArchivePublisher
	logger    *log.Logger
	now       func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewService(writer TransactionWriter, lister TransactionLister, profiles ProfileReader, uploader ReceiptUploader, publisher ArchivePublisher, logger *log.Logger) *Service {
	return &Service{
		writer:    writer,
		lister:    lister,
		profiles:  profiles,
		uploader:  uploader,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
		now:       time.Now,
		inFlight:  make(map[string]struct{}),
	}
}

// Submit runs the full pipeline for one draft: validate, upload the
// receipt when one is attached, append the record, then publish the
// archive event. The steps are strictly ordered: an invalid draft causes
// no I/O at all, and a failed upload means nothing is persisted. Each
// step gets a single attempt.
func (s *Service) Submit(ctx context.Context, userID string, draft core.Draft) (core.Transaction, error) {
	if !s.begin(userID) {
		return core.Transaction{}, ErrSubmissionInFlight
	}
	defer s.end(userID)

	if err := draft.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}

	amount, err := core.ParseAmount(draft.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrInvalidDraft, core.ErrInvalidAmount)
	}

	tx := core.Transaction{
		UserID:   userID,
		Title:    strings.TrimSpace(draft.Title),
		Amount:   amount,
		Type:     draft.Type.OrDefault(),
		Category: draft.Category,
		Date:     draft.Date,
		Note:     draft.Note,
	}

	if draft.HasReceipt() {
		url, err := s.uploader.Upload(ctx, userID, draft.ReceiptName, draft.Receipt)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("upload receipt: %w", err)
		}
		tx.ImageURL = url
	}

	id, err := s.writer.Append(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: append: %w", ErrStore, err)
	}
	tx.ID = id

	// Publish async archive event. The record is durable locally, so a
	// publish failure never fails the submission.
	if s.publisher != nil {
		if err := s.publisher.PublishTransactionArchive(ctx, id, 1); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish archive event",
				log.FieldTransactionID, id, log.FieldError, err)
		}
	}

	s.logger.InfoContext(ctx, "transaction created",
		log.FieldTransactionID, id,
		log.FieldUserID, userID,
		log.FieldAmountCents, tx.Amount.Cents,
		log.FieldType, string(tx.Type))

	return tx, nil
}

// Overview fetches the profile and the full transaction list concurrently,
// then derives the balance summary and grouped recent view.
func (s *Service) Overview(ctx context.Context, userID string) (Overview, error) {
	var (
		profile Profile
		records []core.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.profiles.Profile(gctx, userID)
		if err != nil {
			return fmt.Errorf("%w: profile: %w", ErrStore, err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		list, err := s.lister.ListForUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("%w: list: %w", ErrStore, err)
		}
		records = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	summary, recent := core.Summarize(records, s.now())
	return Overview{
		DisplayName: profile.DisplayName,
		Summary:     summary,
		Recent:      recent,
	}, nil
}

func (s *Service) begin(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[userID]; busy {
		return false
	}
	s.inFlight[userID] = struct{}{}
	return true
}

func (s *Service) end(userID string) {
	s.mu.Lock()
	delete(s.inFlight, userID)
	s.mu.Unlock()
}
