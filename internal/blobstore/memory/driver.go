// Package memory provides an in-process implementation of blobstore.Store.
//
// It backs unit tests and local development where no MinIO server is
// available. Semantics follow the MinIO driver: overwriting puts, silent
// metadata replacement, prefix listing, and presigned URLs that carry their
// own expiry.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koustreak/FileDock/internal/blobstore"
	"github.com/koustreak/FileDock/internal/errs"
)

// Driver is a map-backed blobstore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*memObject

	// now is swappable so tests can freeze the clock.
	now func() time.Time

	signSeq atomic.Uint64
}

type memObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	etag        string
	modified    time.Time
}

// New returns an empty in-memory store.
func New() *Driver {
	return &Driver{
		buckets: make(map[string]map[string]*memObject),
		now:     time.Now,
	}
}

// SetClock overrides the driver's clock. Intended for tests.
func (d *Driver) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// --- blobstore.Store implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	return nil
}

func (d *Driver) Close() error {
	return nil
}

func (d *Driver) EnsureBucket(ctx context.Context, bucket string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buckets[bucket]; !ok {
		d.buckets[bucket] = make(map[string]*memObject)
	}
	return nil
}

func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts blobstore.PutOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errs.Wrap(errs.ErrKindStoreFailed, "failed to read payload", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return errs.New(errs.ErrKindInvalidInput, "payload size mismatch")
	}

	sum := md5.Sum(data)

	d.mu.Lock()
	defer d.mu.Unlock()

	objects, ok := d.buckets[bucket]
	if !ok {
		return errs.New(errs.ErrKindNotFound, "bucket does not exist")
	}

	objects[key] = &memObject{
		data:        data,
		contentType: opts.ContentType,
		metadata:    cloneMetadata(opts.Metadata),
		etag:        hex.EncodeToString(sum[:]),
		modified:    d.now(),
	}
	return nil
}

func (d *Driver) GetObject(ctx context.Context, bucket, key string) (blobstore.Object, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	obj, err := d.lookup(bucket, key)
	if err != nil {
		return nil, err
	}

	return &object{
		Reader: bytes.NewReader(obj.data),
		info:   d.infoOf(key, obj, true),
	}, nil
}

func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*blobstore.ObjectInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	obj, err := d.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	return d.infoOf(key, obj, true), nil
}

func (d *Driver) RemoveObject(ctx context.Context, bucket, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.lookup(bucket, key); err != nil {
		return err
	}
	delete(d.buckets[bucket], key)
	return nil
}

func (d *Driver) ListObjects(ctx context.Context, bucket string, opts blobstore.ListOptions) ([]blobstore.ObjectInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	objects, ok := d.buckets[bucket]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "bucket does not exist")
	}

	keys := make([]string, 0, len(objects))
	for k := range objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var results []blobstore.ObjectInfo
	seenDirs := make(map[string]bool)

	for _, k := range keys {
		if !opts.Recursive {
			// Collapse anything below the next path separator into a
			// virtual directory entry, the way S3 listings do.
			rest := k[len(opts.Prefix):]
			if i := strings.Index(rest, "/"); i >= 0 {
				dir := opts.Prefix + rest[:i+1]
				if !seenDirs[dir] {
					seenDirs[dir] = true
					results = append(results, blobstore.ObjectInfo{Key: dir, IsDir: true})
				}
				continue
			}
		}

		results = append(results, *d.infoOf(k, objects[k], opts.WithMetadata))
		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
	}

	return results, nil
}

func (d *Driver) SetObjectMetadata(ctx context.Context, bucket, key string, metadata map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, err := d.lookup(bucket, key)
	if err != nil {
		return err
	}
	obj.metadata = cloneMetadata(metadata)
	return nil
}

// PresignGetURL emulates a presigned URL: the expiry rides on the URL and a
// per-call sequence number makes every signature unique, matching the
// fresh-token-per-call behavior of real backends.
func (d *Driver) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration, query url.Values) (string, error) {
	d.mu.RLock()
	_, err := d.lookup(bucket, key)
	now := d.now()
	d.mu.RUnlock()
	if err != nil {
		return "", err
	}

	q := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	expiry := now.Add(ttl).UTC()
	q.Set("X-Mem-Expires", strconv.FormatInt(expiry.Unix(), 10))
	q.Set("X-Mem-Signature", fmt.Sprintf("%x-%d", now.UnixNano(), d.signSeq.Add(1)))

	u := url.URL{
		Scheme:   "https",
		Host:     "memory.blobstore.invalid",
		Path:     "/" + bucket + "/" + key,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// --- internal types ---

type object struct {
	*bytes.Reader
	info *blobstore.ObjectInfo
}

func (o *object) Close() error {
	return nil
}

func (o *object) Info() *blobstore.ObjectInfo {
	return o.info
}

// lookup must be called with d.mu held.
func (d *Driver) lookup(bucket, key string) (*memObject, error) {
	objects, ok := d.buckets[bucket]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "bucket does not exist")
	}
	obj, ok := objects[key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "object does not exist")
	}
	return obj, nil
}

func (d *Driver) infoOf(key string, obj *memObject, withMetadata bool) *blobstore.ObjectInfo {
	info := &blobstore.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		ETag:         obj.etag,
		LastModified: obj.modified,
	}
	if withMetadata {
		info.Metadata = cloneMetadata(obj.metadata)
	}
	return info
}

func cloneMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
