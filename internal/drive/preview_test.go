package drive

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/FileDock/internal/blobstore"
	"github.com/koustreak/FileDock/internal/errs"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPreviewNonImageIsNotAnError(t *testing.T) {
	svc, _, _ := newTestService(t)
	upload(t, svc, "alice", "report.pdf", "pdf")

	thumbURL, ok, err := svc.Preview(context.Background(), "alice", "report.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, thumbURL)
}

func TestPreviewDerivesThumbnail(t *testing.T) {
	svc, store, clock := newTestService(t)

	payload := pngBytes(t, 40, 40)
	require.NoError(t, svc.Upload(context.Background(), "alice", "photo.png",
		bytes.NewReader(payload), int64(len(payload))))

	thumbURL, ok, err := svc.Preview(context.Background(), "alice", "photo.png")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, thumbURL)

	// The derived object exists at the thumbnail key and is a decodable PNG.
	obj, err := store.GetObject(context.Background(), testBucket, "alice/thumbnails/photo.png.png")
	require.NoError(t, err)
	defer obj.Close()
	assert.Equal(t, "image/png", obj.Info().ContentType)

	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 100)
	assert.LessOrEqual(t, img.Bounds().Dy(), 100)

	// The returned URL is signed for one hour against the thumbnail key.
	u, err := url.Parse(thumbURL)
	require.NoError(t, err)
	assert.Equal(t, "/files/alice/thumbnails/photo.png.png", u.Path)
	expires, err := strconv.ParseInt(u.Query().Get("X-Mem-Expires"), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, clock.now().Add(time.Hour).Unix(), expires)
}

func TestPreviewBoundsLargeImages(t *testing.T) {
	svc, store, _ := newTestService(t)

	payload := pngBytes(t, 300, 200)
	require.NoError(t, svc.Upload(context.Background(), "alice", "wide.png",
		bytes.NewReader(payload), int64(len(payload))))

	_, ok, err := svc.Preview(context.Background(), "alice", "wide.png")
	require.NoError(t, err)
	require.True(t, ok)

	obj, err := store.GetObject(context.Background(), testBucket, "alice/thumbnails/wide.png.png")
	require.NoError(t, err)
	defer obj.Close()

	img, err := png.Decode(obj)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx(), "wide images scale to the width bound")
	assert.LessOrEqual(t, img.Bounds().Dy(), 100)
	assert.Greater(t, img.Bounds().Dy(), 0)
}

func TestPreviewOverwritesPriorThumbnail(t *testing.T) {
	svc, store, _ := newTestService(t)

	payload := pngBytes(t, 40, 40)
	require.NoError(t, svc.Upload(context.Background(), "alice", "photo.png",
		bytes.NewReader(payload), int64(len(payload))))

	_, ok, err := svc.Preview(context.Background(), "alice", "photo.png")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = svc.Preview(context.Background(), "alice", "photo.png")
	require.NoError(t, err)
	require.True(t, ok)

	objects, err := store.ListObjects(context.Background(), testBucket, blobstore.ListOptions{
		Prefix:    "alice/thumbnails/",
		Recursive: true,
	})
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}

func TestPreviewDecodeFailure(t *testing.T) {
	svc, _, _ := newTestService(t)

	// Claims to be a PNG by extension but carries garbage.
	upload(t, svc, "alice", "broken.png", "this is not a png")

	_, ok, err := svc.Preview(context.Background(), "alice", "broken.png")
	assert.False(t, ok)
	assert.True(t, errs.IsDecodeFailed(err), "decode failure must be distinguishable from non-image")
}

func TestPreviewMissingObject(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, _, err := svc.Preview(context.Background(), "alice", "ghost.png")
	assert.True(t, errs.IsNotFound(err))
}

func TestStorageUsageIncludesThumbnails(t *testing.T) {
	svc, _, _ := newTestService(t)

	payload := pngBytes(t, 40, 40)
	require.NoError(t, svc.Upload(context.Background(), "alice", "photo.png",
		bytes.NewReader(payload), int64(len(payload))))

	before, err := svc.StorageUsage(context.Background(), "alice")
	require.NoError(t, err)

	_, ok, err := svc.Preview(context.Background(), "alice", "photo.png")
	require.NoError(t, err)
	require.True(t, ok)

	after, err := svc.StorageUsage(context.Background(), "alice")
	require.NoError(t, err)
	assert.Greater(t, after, before, "derived previews count toward usage")
}

// The catalog view names thumbnails by their full logical name under the
// owner segment, thumbnails/ sub-prefix included.
func TestListIncludesThumbnailObjects(t *testing.T) {
	svc, _, _ := newTestService(t)

	payload := pngBytes(t, 40, 40)
	require.NoError(t, svc.Upload(context.Background(), "alice", "photo.png",
		bytes.NewReader(payload), int64(len(payload))))

	_, ok, err := svc.Preview(context.Background(), "alice", "photo.png")
	require.NoError(t, err)
	require.True(t, ok)

	files, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, files, 2)

	thumb := findFile(files, "thumbnails/photo.png.png")
	require.NotNil(t, thumb)
	assert.Equal(t, "image/png", thumb.MIMEType)
	assert.True(t, strings.HasPrefix(thumb.Name, "thumbnails/"))
}
