package gcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

// ArchiveStore keeps raw uploaded documents (bank statements) for later audit.
type ArchiveStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Close() error
}

type bucketStore struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

// NewArchiveStore returns nil when bucket is empty; callers treat a nil store
// as "archiving disabled". STORAGE_EMULATOR_HOST is honoured by the SDK.
func NewArchiveStore(ctx context.Context, log *logger.Logger, bucket string) (ArchiveStore, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		if log != nil {
			log.Warn("STATEMENT_GCS_BUCKET not set; statement archiving disabled")
		}
		return nil, nil
	}
	var opts []option.ClientOption
	if strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")) != "" {
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	serviceLog := log.With("service", "ArchiveStore")
	serviceLog.Info("Statement archive initialized", "bucket", bucket)
	return &bucketStore{log: serviceLog, client: client, bucket: bucket}, nil
}

func (s *bucketStore) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType == "" {
		contentType = contentTypeForKey(key)
	}
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", key, err)
	}
	return nil
}

func (s *bucketStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return r, nil
}

func (s *bucketStore) Close() error {
	return s.client.Close()
}

func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(key), ".csv"):
		return "text/csv"
	case strings.HasSuffix(strings.ToLower(key), ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// StatementKey is the archive object key for an imported statement.
func StatementKey(tenantID, statementID, filename string) string {
	name := strings.TrimSpace(filename)
	name = strings.ReplaceAll(name, "/", "_")
	if name == "" {
		name = "statement.csv"
	}
	return fmt.Sprintf("statements/%s/%s/%s", tenantID, statementID, name)
}
