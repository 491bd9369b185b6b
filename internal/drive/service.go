package drive

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/koustreak/FileDock/internal/blobstore"
	"github.com/koustreak/FileDock/internal/errs"
	"github.com/koustreak/FileDock/internal/logger"
)

// DefaultShareHours is the signed-URL validity used when the caller does
// not choose one.
const DefaultShareHours = 1

// mimeQueryParam is the advisory query parameter carried on signed URLs so
// clients can pick a renderer without a HEAD request. Not security-relevant.
const mimeQueryParam = "_mime_type"

// FileSummary describes one stored file in an owner's namespace, as
// returned by List and Search.
type FileSummary struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	UploadDate string `json:"upload_date"`
	MIMEType   string `json:"mime_type"`
	Starred    bool   `json:"starred"`
}

// ShareLink is a time-limited read grant on a single file.
type ShareLink struct {
	SASURL   string `json:"sas_url"`
	MIMEType string `json:"mime_type"`
}

// Service implements the file facade over an object store. Each operation
// is a short-lived sequence of store round trips with no state held between
// calls; concurrent callers racing on the same key resolve last-writer-wins.
type Service struct {
	store  blobstore.Store
	bucket string
	log    *logger.Logger

	// now is swappable so tests can freeze timestamps.
	now func() time.Time
}

// NewService returns a Service storing all objects in bucket.
func NewService(store blobstore.Store, bucket string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.New(nil)
	}
	return &Service{
		store:  store,
		bucket: bucket,
		log:    log,
		now:    time.Now,
	}
}

// Upload stores the payload under the owner's namespace, resolving the MIME
// type from the filename and writing the initial metadata record in the same
// put. Re-uploading a name overwrites both payload and metadata.
func (s *Service) Upload(ctx context.Context, owner, name string, r io.Reader, size int64) error {
	if err := validateRef(owner, name); err != nil {
		return err
	}

	mimeType := ResolveMIME(name)
	md := newMetadata(s.now(), mimeType)

	err := s.store.PutObject(ctx, s.bucket, ObjectKey(owner, name), r, size, blobstore.PutOptions{
		ContentType: mimeType,
		Metadata:    md.toMap(),
	})
	if err != nil {
		return err
	}

	s.log.With().Str("owner", owner).Str("file", name).Str("mime", mimeType).Logger().
		Info("file uploaded")
	return nil
}

// Delete removes the object and, with it, its metadata record.
// Returns NotFound if no such object exists.
func (s *Service) Delete(ctx context.Context, owner, name string) error {
	if err := validateRef(owner, name); err != nil {
		return err
	}

	if err := s.store.RemoveObject(ctx, s.bucket, ObjectKey(owner, name)); err != nil {
		return err
	}

	s.log.With().Str("owner", owner).Str("file", name).Logger().Info("file deleted")
	return nil
}

// List returns every file in the owner's namespace with its descriptive
// metadata, fetched in the same enumeration pass. The presented MIME type
// prefers the cached metadata value and falls back to extension inference
// for objects that predate the metadata record.
func (s *Service) List(ctx context.Context, owner string) ([]FileSummary, error) {
	return s.enumerate(ctx, owner, true)
}

// Search filters the owner's catalog by case-insensitive name substring,
// MIME substring, and upload-date substring; the three filters are ANDed and
// empty filters match everything. MIME types here come from pure extension
// inference, not the metadata cache — see TestSearchUsesExtensionInference.
func (s *Service) Search(ctx context.Context, owner, query, typeFilter, dateFilter string) ([]FileSummary, error) {
	files, err := s.enumerate(ctx, owner, false)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)

	filtered := make([]FileSummary, 0, len(files))
	for _, f := range files {
		if query != "" && !strings.Contains(strings.ToLower(f.Name), query) {
			continue
		}
		if typeFilter != "" && !strings.Contains(f.MIMEType, typeFilter) {
			continue
		}
		if dateFilter != "" && !strings.Contains(f.UploadDate, dateFilter) {
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered, nil
}

// Share issues a read-only signed URL for the file, valid for the given
// number of hours. The URL carries the resolved MIME type as an advisory
// query parameter. Each call produces a fresh signature.
func (s *Service) Share(ctx context.Context, owner, name string, hours int) (*ShareLink, error) {
	if err := validateRef(owner, name); err != nil {
		return nil, err
	}
	if hours <= 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "duration must be a positive number of hours")
	}

	key := ObjectKey(owner, name)

	info, err := s.store.StatObject(ctx, s.bucket, key)
	if err != nil {
		return nil, err
	}

	mimeType := info.ContentType
	if mimeType == "" {
		mimeType = ResolveMIME(name)
	}

	query := url.Values{}
	query.Set(mimeQueryParam, mimeType)

	signed, err := s.store.PresignGetURL(ctx, s.bucket, key, time.Duration(hours)*time.Hour, query)
	if err != nil {
		return nil, err
	}

	return &ShareLink{SASURL: signed, MIMEType: mimeType}, nil
}

// SetStarred toggles the starred flag, preserving the rest of the metadata
// record via read-merge-write. Returns NotFound if the object is absent.
func (s *Service) SetStarred(ctx context.Context, owner, name string, starred bool) error {
	if err := validateRef(owner, name); err != nil {
		return err
	}

	key := ObjectKey(owner, name)

	// Existence probe doubles as the metadata read. A missing record on an
	// existing object decodes to an empty one, which the merge recreates.
	info, err := s.store.StatObject(ctx, s.bucket, key)
	if err != nil {
		return err
	}

	md := metadataFromMap(info.Metadata)
	md.Starred = starred

	if err := s.store.SetObjectMetadata(ctx, s.bucket, key, md.toMap()); err != nil {
		return err
	}

	s.log.With().Str("owner", owner).Str("file", name).Logger().Debug("starred flag updated")
	return nil
}

// StorageUsage sums the byte sizes of every object under the owner's
// namespace, derived previews included, and reports megabytes.
func (s *Service) StorageUsage(ctx context.Context, owner string) (float64, error) {
	if owner == "" {
		return 0, errs.New(errs.ErrKindInvalidInput, "owner must not be empty")
	}

	objects, err := s.store.ListObjects(ctx, s.bucket, blobstore.ListOptions{
		Prefix:    ownerPrefix(owner),
		Recursive: true,
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for _, obj := range objects {
		if obj.IsDir {
			continue
		}
		total += obj.Size
	}
	return float64(total) / (1024 * 1024), nil
}

// enumerate builds the catalog view. Metadata rides along in the listing
// itself, so each file costs no extra round trip. useMetadataMIME selects
// between the cached type (List) and pure extension inference (Search).
func (s *Service) enumerate(ctx context.Context, owner string, useMetadataMIME bool) ([]FileSummary, error) {
	if owner == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "owner must not be empty")
	}

	objects, err := s.store.ListObjects(ctx, s.bucket, blobstore.ListOptions{
		Prefix:       ownerPrefix(owner),
		Recursive:    true,
		WithMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	files := make([]FileSummary, 0, len(objects))
	for _, obj := range objects {
		if obj.IsDir {
			continue
		}
		_, name, ok := SplitKey(obj.Key)
		if !ok {
			continue
		}

		md := metadataFromMap(obj.Metadata)

		mimeType := ResolveMIME(name)
		if useMetadataMIME && md.MIMEType != "" {
			mimeType = md.MIMEType
		}

		files = append(files, FileSummary{
			Name:       name,
			Size:       obj.Size,
			UploadDate: md.UploadDate,
			MIMEType:   mimeType,
			Starred:    md.Starred,
		})
	}
	return files, nil
}

func validateRef(owner, name string) error {
	if owner == "" {
		return errs.New(errs.ErrKindInvalidInput, "owner must not be empty")
	}
	if name == "" {
		return errs.New(errs.ErrKindInvalidInput, "filename must not be empty")
	}
	return nil
}
