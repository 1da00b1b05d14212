// Package storage archives reminder sweep reports.
//
// Implementations:
// - LocalStorage: local filesystem, for development
// - R2Storage: Cloudflare R2 (S3-compatible), for production
//
// Archiving is optional. Callers that have no storage configured pass a nil
// Storage and skip archiving.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Storage is the object store used for report archives.
type Storage interface {
	// Put stores data at key. Returns ErrKeyExists if the key is taken and
	// opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get returns the object at key. The caller must close the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	ContentType string // MIME type; defaults to application/octet-stream
	Overwrite   bool   // replace an existing object at the same key
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string // empty for local storage
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored.
	// Example: "./storage" or "/var/lib/courseflow/archive"
	BasePath string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// Region is required by the AWS SDK. R2 accepts "auto".
	Region string

	// Endpoint overrides the account endpoint. Used for S3-compatible
	// servers such as MinIO. Requests are path-style when set.
	Endpoint string
}

// Provider names accepted by STORAGE_PROVIDER.
const (
	ProviderNone  = "none"
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

const contentTypeJSON = "application/json"

// ReportKey returns the archive key for a sweep run.
// Format: reports/reminder-sweep/{runID}.json
func ReportKey(runID string) string {
	return fmt.Sprintf("reports/reminder-sweep/%s.json", runID)
}

// PutJSON encodes v as indented JSON and stores it at key, replacing any
// existing object.
func PutJSON(ctx context.Context, s Storage, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &StorageError{Op: "PutJSON", Key: key, Err: err}
	}
	return s.Put(ctx, key, bytes.NewReader(data), PutOptions{
		ContentType: contentTypeJSON,
		Overwrite:   true,
	})
}
