// Package minio provides a MinIO implementation of blobstore.Store.
//
// Usage:
//
//	cfg := blobstore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
package minio

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/koustreak/FileDock/internal/blobstore"
	"github.com/koustreak/FileDock/internal/errs"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Driver is a MinIO implementation of blobstore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
}

// New connects to MinIO using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *blobstore.Config) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{client: client}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// --- blobstore.Store implementation ---

// Ping verifies the MinIO server is reachable by listing buckets.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.ListBuckets(ctx)
	if err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op for MinIO — the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// EnsureBucket creates bucket if it does not already exist.
func (d *Driver) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := d.client.BucketExists(ctx, bucket)
	if err != nil {
		return mapError(err, "failed to check bucket")
	}
	if exists {
		return nil
	}
	if err := d.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
		return mapError(err, "failed to create bucket")
	}
	return nil
}

// PutObject stores the payload at key inside bucket, overwriting any
// existing object.
func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts blobstore.PutOptions) error {
	_, err := d.client.PutObject(ctx, bucket, key, r, size, miniogo.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return mapError(err, "failed to put object")
	}
	return nil
}

// GetObject opens a streaming handle to the object at key inside bucket.
// The caller MUST call Object.Close() after reading.
func (d *Driver) GetObject(ctx context.Context, bucket, key string) (blobstore.Object, error) {
	obj, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, mapError(err, "failed to stat object after get")
	}

	return &object{
		ReadCloser: obj,
		info: &blobstore.ObjectInfo{
			Key:          key,
			Size:         stat.Size,
			ContentType:  stat.ContentType,
			ETag:         stat.ETag,
			LastModified: stat.LastModified,
			Metadata:     normalizeMetadata(stat.UserMetadata),
		},
	}, nil
}

// StatObject returns metadata for the object at key inside bucket
// without downloading its content.
func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*blobstore.ObjectInfo, error) {
	stat, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}

	return &blobstore.ObjectInfo{
		Key:          stat.Key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
		Metadata:     normalizeMetadata(stat.UserMetadata),
	}, nil
}

// RemoveObject deletes the object at key inside bucket. S3 deletes are
// silent on missing keys, so existence is checked first to honor the
// Store contract.
func (d *Driver) RemoveObject(ctx context.Context, bucket, key string) error {
	if _, err := d.StatObject(ctx, bucket, key); err != nil {
		return err
	}
	if err := d.client.RemoveObject(ctx, bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return mapError(err, "failed to remove object")
	}
	return nil
}

// ListObjects returns objects in bucket that match opts.
func (d *Driver) ListObjects(ctx context.Context, bucket string, opts blobstore.ListOptions) ([]blobstore.ObjectInfo, error) {
	listOpts := miniogo.ListObjectsOptions{
		Prefix:       opts.Prefix,
		Recursive:    opts.Recursive,
		WithMetadata: opts.WithMetadata,
	}

	var results []blobstore.ObjectInfo
	count := 0

	for obj := range d.client.ListObjects(ctx, bucket, listOpts) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list objects")
		}

		results = append(results, blobstore.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
			Metadata:     normalizeMetadata(obj.UserMetadata),
			IsDir:        obj.Key[len(obj.Key)-1] == '/',
		})

		count++
		if opts.Limit > 0 && count >= opts.Limit {
			break
		}
	}

	return results, nil
}

// SetObjectMetadata replaces the object's user metadata via a server-side
// copy onto itself, leaving the payload and native content type untouched.
func (d *Driver) SetObjectMetadata(ctx context.Context, bucket, key string, metadata map[string]string) error {
	// Under the REPLACE metadata directive S3 resets any header the copy
	// omits, so the current content type must be read and carried over or
	// the backend default takes its place.
	info, err := d.StatObject(ctx, bucket, key)
	if err != nil {
		return err
	}

	src := miniogo.CopySrcOptions{Bucket: bucket, Object: key}
	dst := metadataCopyDest(bucket, key, info.ContentType, metadata)
	if _, err := d.client.CopyObject(ctx, dst, src); err != nil {
		return mapError(err, "failed to set object metadata")
	}
	return nil
}

// metadataCopyDest builds the destination options for a metadata-only
// rewrite: user metadata replaced, native content type preserved.
func metadataCopyDest(bucket, key, contentType string, metadata map[string]string) miniogo.CopyDestOptions {
	return miniogo.CopyDestOptions{
		Bucket:          bucket,
		Object:          key,
		ContentType:     contentType,
		UserMetadata:    metadata,
		ReplaceMetadata: true,
	}
}

// PresignGetURL returns a time-limited public download URL for the object.
// Extra query values are signed into the URL.
func (d *Driver) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration, query url.Values) (string, error) {
	u, err := d.client.PresignedGetObject(ctx, bucket, key, ttl, query)
	if err != nil {
		return "", mapError(err, "failed to generate presigned URL")
	}
	return u.String(), nil
}

// --- internal types ---

// object wraps a MinIO GetObject response and exposes blobstore.Object.
type object struct {
	io.ReadCloser
	info *blobstore.ObjectInfo
}

func (o *object) Info() *blobstore.ObjectInfo {
	return o.info
}

// normalizeMetadata lowercases user metadata keys and strips the wire-level
// x-amz-meta- prefix that list responses carry, so callers see the same keys
// regardless of which SDK call produced them.
func normalizeMetadata(raw map[string]string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	md := make(map[string]string, len(raw))
	for k, v := range raw {
		k = strings.ToLower(k)
		k = strings.TrimPrefix(k, "x-amz-meta-")
		md[k] = v
	}
	return md
}
