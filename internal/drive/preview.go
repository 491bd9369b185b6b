package drive

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/koustreak/FileDock/internal/blobstore"
	"github.com/koustreak/FileDock/internal/errs"
)

// Preview thumbnail bounds. Both dimensions fit inside this box; aspect
// ratio is preserved and small images are not upscaled.
const (
	thumbnailMaxWidth  = 100
	thumbnailMaxHeight = 100
)

// thumbnailTTL is the validity of the signed URL returned for a preview.
const thumbnailTTL = time.Hour

// Preview derives a bounded-size PNG thumbnail for an image file, persists
// it at the derived thumbnail key, and returns a 1-hour signed URL to it.
//
// ok is false — with a nil error — when the filename does not resolve to an
// image type; not every file is previewable and that is not a failure. An
// image that cannot be decoded is a failure, reported as a DecodeFailed
// error so callers can tell "not an image" from "broken image".
func (s *Service) Preview(ctx context.Context, owner, name string) (thumbURL string, ok bool, err error) {
	if err := validateRef(owner, name); err != nil {
		return "", false, err
	}

	// Extension inference only — the cached metadata type is deliberately
	// not consulted here, matching the catalog's search path.
	if !strings.HasPrefix(ResolveMIME(name), "image/") {
		return "", false, nil
	}

	obj, err := s.store.GetObject(ctx, s.bucket, ObjectKey(owner, name))
	if err != nil {
		return "", false, err
	}
	defer obj.Close()

	payload, err := io.ReadAll(obj)
	if err != nil {
		return "", false, errs.Wrap(errs.ErrKindStoreFailed, "failed to read object payload", err)
	}

	img, err := imaging.Decode(bytes.NewReader(payload))
	if err != nil {
		return "", false, errs.Wrap(errs.ErrKindDecodeFailed, "failed to decode image", err)
	}

	thumb := imaging.Fit(img, thumbnailMaxWidth, thumbnailMaxHeight, imaging.Lanczos)

	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, thumb, imaging.PNG); err != nil {
		return "", false, errs.Wrap(errs.ErrKindDecodeFailed, "failed to encode thumbnail", err)
	}

	thumbKey := ThumbnailKey(owner, name)

	err = s.store.PutObject(ctx, s.bucket, thumbKey, &encoded, int64(encoded.Len()), blobstore.PutOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return "", false, err
	}

	signed, err := s.store.PresignGetURL(ctx, s.bucket, thumbKey, thumbnailTTL, nil)
	if err != nil {
		return "", false, err
	}

	s.log.With().Str("owner", owner).Str("file", name).Logger().Debug("thumbnail derived")
	return signed, true, nil
}
