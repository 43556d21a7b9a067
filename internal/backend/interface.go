package backend

import (
	"context"

	"tracker/internal/auth"
	"tracker/internal/ledger"
	"tracker/internal/receipts"
)

// DocumentStore is the unified store interface a backend must provide.
type DocumentStore interface {
	ledger.TransactionWriter
	ledger.TransactionLister
	ledger.ProfileReader
	auth.UserSource
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the wired collaborators and an optional cleanup function.
type Result struct {
	Store     DocumentStore
	Receipts  receipts.Store
	Publisher ledger.ArchivePublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Document store
	Type         StoreType
	SQLiteDBPath string

	// Receipt store
	BlobType   BlobType
	ReceiptDir string
	BaseURL    string
	GCSBucket  string

	// Events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// StoreType selects the document store implementation.
type StoreType string

const (
	SQLiteStore StoreType = "sqlite"
	MemoryStore StoreType = "memory"
)

func (st StoreType) String() string { return string(st) }

func (st StoreType) IsValid() bool {
	switch st {
	case SQLiteStore, MemoryStore:
		return true
	default:
		return false
	}
}

// BlobType selects the receipt store implementation.
type BlobType string

const (
	FSBlob  BlobType = "fs"
	GCSBlob BlobType = "gcs"
)

func (bt BlobType) String() string { return string(bt) }

func (bt BlobType) IsValid() bool {
	switch bt {
	case FSBlob, GCSBlob:
		return true
	default:
		return false
	}
}
