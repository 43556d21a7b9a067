// Package receipts stores transaction receipt images in an object store.
package receipts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"tracker/internal/log"
)

// MaxReceiptBytes caps receipt payloads at 5 MiB. The cap is enforced
// before any store call so an oversized file never leaves the process.
const MaxReceiptBytes = 5 << 20

var (
	ErrReceiptTooLarge  = errors.New("receipt exceeds 5 MiB limit")
	ErrUnsupportedImage = errors.New("receipt must be a PNG or JPEG image")

	// ErrUploadFailed wraps any store failure. An upload failure is fatal
	// to the submission that requested it; nothing is persisted.
	ErrUploadFailed = errors.New("receipt upload failed")
)

// Store is the outbound port to the object store backing receipts.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// Uploader validates receipt payloads and writes them into the single
// configured bucket under collision-resistant keys.
type Uploader struct {
	store  Store
	logger *log.Logger
	now    func() time.Time
}

func NewUploader(store Store, logger *log.Logger) *Uploader {
	return &Uploader{
		store:  store,
		logger: logger.WithComponent(log.ComponentReceipts),
		now:    time.Now,
	}
}

// Upload checks size and content type, derives the storage key, writes
// the payload and returns its durable public URL. A single attempt; any
// store error surfaces as ErrUploadFailed.
func (u *Uploader) Upload(ctx context.Context, ownerID, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrUnsupportedImage)
	}
	if len(data) > MaxReceiptBytes {
		return "", ErrReceiptTooLarge
	}

	// Sniff the real content type rather than trusting the extension.
	contentType := http.DetectContentType(data)
	if contentType != "image/png" && contentType != "image/jpeg" {
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedImage, contentType)
	}

	key := u.key(filename, contentType)
	if err := u.store.Put(ctx, key, data, contentType); err != nil {
		u.logger.ErrorContext(ctx, "receipt store write failed",
			log.FieldReceiptKey, key,
			log.FieldUserID, ownerID,
			log.FieldError, err)
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	u.logger.InfoContext(ctx, "receipt stored",
		log.FieldReceiptKey, key,
		log.FieldUserID, ownerID,
		log.FieldReceiptBytes, len(data))
	return u.store.PublicURL(key), nil
}

// key derives a storage key from the upload instant, a random component
// and the original extension. Neither the title nor the file content
// participates, so equal uploads never collide.
func (u *Uploader) key(filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg":
	default:
		if contentType == "image/png" {
			ext = ".png"
		} else {
			ext = ".jpg"
		}
	}
	return fmt.Sprintf("%d-%s%s", u.now().UnixMilli(), uuid.NewString(), ext)
}
