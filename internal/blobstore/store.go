// Package blobstore defines the unified interface for object storage backends.
//
// All providers (MinIO, the in-memory test store, …) implement the Store
// interface. Callers depend only on this package — never on a specific
// provider package.
//
// Usage:
//
//	cfg := blobstore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	objects, err := store.ListObjects(ctx, "files", blobstore.ListOptions{Prefix: "alice/"})
package blobstore

import (
	"context"
	"io"
	"net/url"
	"time"
)

// Store is the single interface all object storage providers must implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// EnsureBucket creates bucket if it does not already exist.
	EnsureBucket(ctx context.Context, bucket string) error

	// PutObject stores size bytes read from r at key inside bucket,
	// overwriting any existing object. Content type and user metadata
	// are taken from opts.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) error

	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// StatObject returns metadata for the object at key inside bucket
	// without downloading its content. User metadata keys are lowercased.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// RemoveObject deletes the object at key inside bucket.
	// Removing a key that does not exist returns a NotFound error.
	RemoveObject(ctx context.Context, bucket, key string) error

	// ListObjects returns the objects in bucket that match opts.
	// When opts.WithMetadata is set, each entry carries its user metadata.
	ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error)

	// SetObjectMetadata replaces the full user metadata map of the object
	// at key inside bucket. The payload and the native content type are
	// left unchanged.
	SetObjectMetadata(ctx context.Context, bucket, key string, metadata map[string]string) error

	// PresignGetURL returns a time-limited URL that allows anyone to download
	// the object at key inside bucket without credentials. Any query values
	// are carried on the signed URL.
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration, query url.Values) (string, error)
}

// PutOptions carries the attributes attached to an object at write time.
type PutOptions struct {
	// ContentType is the object's native MIME type, stored by the backend
	// alongside the payload.
	ContentType string

	// Metadata is the user metadata map attached to the object.
	// Keys must be lowercase.
	Metadata map[string]string
}
