// Package blob provides the object store backends for receipts and
// archive snapshots.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gstorage "google.golang.org/api/storage/v1"

	"tracker/internal/log"
	"tracker/internal/receipts"
)

// GCSStore writes objects into a single Google Cloud Storage bucket.
type GCSStore struct {
	svc    *gstorage.Service
	bucket string
	logger *log.Logger
}

var _ receipts.Store = (*GCSStore)(nil)

// NewGCSFromEnv creates a GCS store using environment variables.
// Required: GCS_BUCKET.
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewGCSFromEnv(ctx context.Context, logger *log.Logger) (*GCSStore, error) {
	bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if bucket == "" {
		return nil, errors.New("missing GCS_BUCKET")
	}
	svc, err := newStorageService(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage service: %w", err)
	}
	return NewGCS(svc, bucket, logger), nil
}

func NewGCS(svc *gstorage.Service, bucket string, logger *log.Logger) *GCSStore {
	return &GCSStore{
		svc:    svc,
		bucket: bucket,
		logger: logger.WithComponent(log.ComponentBlob),
	}
}

// newStorageService initializes a Storage Service using Service Account
// credentials from the environment.
func newStorageService(ctx context.Context) (*gstorage.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gstorage.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gstorage.DevstorageReadWriteScope))
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}
	return service, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if s.svc == nil {
		return errors.New("storage service not initialized")
	}
	obj := &gstorage.Object{Name: key, ContentType: contentType}
	_, err := s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("insert object %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "object written",
		log.FieldBucket, s.bucket,
		log.FieldReceiptKey, key,
		log.FieldReceiptBytes, len(data))
	return nil
}

// PublicURL returns the durable storage.googleapis.com URL for an object.
// The bucket grants public read; the URL needs no signing.
func (s *GCSStore) PublicURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}
