package ledger

import (
	"context"

	"tracker/internal/core"
)

// Profile is the display-facing slice of a user account.
type Profile struct {
	UserID      string
	Email       string
	DisplayName string
}

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		Append(ctx context.Context, tx core.Transaction) (id string, err error)
	}

	// TransactionLister returns every record belonging to one user.
	// No ordering is guaranteed; callers sort.
	TransactionLister interface {
		ListForUser(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	ProfileReader interface {
		Profile(ctx context.Context, userID string) (Profile, error)
	}

	// ReceiptUploader stores a receipt image and returns its durable
	// public URL.
	ReceiptUploader interface {
		Upload(ctx context.Context, ownerID, filename string, data []byte) (url string, err error)
	}

	// ArchivePublisher emits a lightweight archive event after a record
	// is durably stored.
	ArchivePublisher interface {
		PublishTransactionArchive(ctx context.Context, id string, version int64) error
	}
)
