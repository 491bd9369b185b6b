package drive

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/FileDock/internal/blobstore"
	"github.com/koustreak/FileDock/internal/blobstore/memory"
	"github.com/koustreak/FileDock/internal/errs"
)

const testBucket = "files"

// testClock is a frozen, manually advanced clock shared by the service and
// the memory store.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *memory.Driver, *testClock) {
	t.Helper()

	clock := &testClock{t: time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)}

	store := memory.New()
	store.SetClock(clock.now)
	require.NoError(t, store.EnsureBucket(context.Background(), testBucket))

	svc := NewService(store, testBucket, nil)
	svc.now = clock.now

	return svc, store, clock
}

func upload(t *testing.T, svc *Service, owner, name, body string) {
	t.Helper()
	require.NoError(t, svc.Upload(context.Background(), owner, name, strings.NewReader(body), int64(len(body))))
}

func findFile(files []FileSummary, name string) *FileSummary {
	for i := range files {
		if files[i].Name == name {
			return &files[i]
		}
	}
	return nil
}

func TestUploadAndList(t *testing.T) {
	svc, _, _ := newTestService(t)
	upload(t, svc, "alice", "report.pdf", "pdf bytes")

	files, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	assert.Equal(t, "report.pdf", f.Name)
	assert.Equal(t, int64(len("pdf bytes")), f.Size)
	assert.Equal(t, "2024-01-05T10:30:00Z", f.UploadDate)
	assert.Equal(t, "application/pdf", f.MIMEType)
	assert.False(t, f.Starred)
}

func TestUploadIdempotence(t *testing.T) {
	svc, _, clock := newTestService(t)

	upload(t, svc, "alice", "report.pdf", "v1")
	clock.advance(2 * time.Hour)
	upload(t, svc, "alice", "report.pdf", "version two")

	files, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, files, 1, "re-upload must leave exactly one object")

	assert.Equal(t, int64(len("version two")), files[0].Size)
	assert.Equal(t, "2024-01-05T12:30:00Z", files[0].UploadDate, "upload_date must reflect the most recent upload")
}

func TestUploadValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Upload(context.Background(), "", "a.txt", strings.NewReader("x"), 1)
	assert.True(t, errs.IsInvalidInput(err))

	err = svc.Upload(context.Background(), "alice", "", strings.NewReader("x"), 1)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestListIsolatesOwners(t *testing.T) {
	svc, _, _ := newTestService(t)
	upload(t, svc, "alice", "a.txt", "a")
	upload(t, svc, "bob", "b.txt", "b")

	files, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Name)
}

func TestListFallsBackToExtensionForLegacyObjects(t *testing.T) {
	svc, store, _ := newTestService(t)

	// An object written before descriptive metadata existed.
	err := store.PutObject(context.Background(), testBucket, "alice/old.pdf",
		strings.NewReader("legacy"), 6, blobstore.PutOptions{})
	require.NoError(t, err)

	files, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "application/pdf", files[0].MIMEType)
	assert.Empty(t, files[0].UploadDate)
}

func TestStarTogglePreservesMetadata(t *testing.T) {
	svc, _, _ := newTestService(t)
	upload(t, svc, "alice", "report.pdf", "pdf")

	require.NoError(t, svc.SetStarred(context.Background(), "alice", "report.pdf", true))

	files, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].Starred)
	assert.Equal(t, "2024-01-05T10:30:00Z", files[0].UploadDate)
	assert.Equal(t, "application/pdf", files[0].MIMEType)

	require.NoError(t, svc.SetStarred(context.Background(), "alice", "report.pdf", false))

	files, err = svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.False(t, files[0].Starred)
	assert.Equal(t, "2024-01-05T10:30:00Z", files[0].UploadDate, "upload_date must survive the toggle")
	assert.Equal(t, "application/pdf", files[0].MIMEType, "mime_type must survive the toggle")
}

func TestStarMissingObject(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.SetStarred(context.Background(), "alice", "ghost.txt", true)
	assert.True(t, errs.IsNotFound(err))
}

func TestStarRecreatesAbsentMetadata(t *testing.T) {
	svc, store, _ := newTestService(t)

	// Legacy object without any metadata record.
	err := store.PutObject(context.Background(), testBucket, "alice/old.txt",
		strings.NewReader("x"), 1, blobstore.PutOptions{})
	require.NoError(t, err)

	require.NoError(t, svc.SetStarred(context.Background(), "alice", "old.txt", true))

	info, err := store.StatObject(context.Background(), testBucket, "alice/old.txt")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"starred": "true"}, info.Metadata)
}

func TestDeleteRemovesObjectAndMetadata(t *testing.T) {
	svc, _, _ := newTestService(t)
	upload(t, svc, "alice", "doomed.txt", "x")

	require.NoError(t, svc.Delete(context.Background(), "alice", "doomed.txt"))

	files, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, findFile(files, "doomed.txt"))

	err = svc.SetStarred(context.Background(), "alice", "doomed.txt", true)
	assert.True(t, errs.IsNotFound(err), "star after delete must report NotFound")
}

func TestDeleteMissingObject(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Delete(context.Background(), "alice", "ghost.txt")
	assert.True(t, errs.IsNotFound(err))
}

func TestShare(t *testing.T) {
	svc, _, clock := newTestService(t)
	upload(t, svc, "alice", "report.pdf", "pdf")

	link, err := svc.Share(context.Background(), "alice", "report.pdf", 1)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", link.MIMEType)

	u, err := url.Parse(link.SASURL)
	require.NoError(t, err)
	assert.Equal(t, "/files/alice/report.pdf", u.Path)
	assert.Equal(t, "application/pdf", u.Query().Get("_mime_type"))

	// The computed expiry carried in the token must be issuance + duration.
	expires, err := strconv.ParseInt(u.Query().Get("X-Mem-Expires"), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, clock.now().Add(time.Hour).Unix(), expires)
	assert.Less(t, clock.now().Add(59*time.Minute).Unix(), expires, "valid at now+59min")
	assert.Greater(t, clock.now().Add(61*time.Minute).Unix(), expires, "expired at now+61min")
}

// A metadata-only mutation must never degrade the MIME type a later Share
// reports: the native content type survives the star toggle's
// read-merge-write and stays the preferred source.
func TestShareMIMETypeSurvivesStarToggle(t *testing.T) {
	svc, store, _ := newTestService(t)
	upload(t, svc, "alice", "report.pdf", "pdf")

	require.NoError(t, svc.SetStarred(context.Background(), "alice", "report.pdf", true))

	info, err := store.StatObject(context.Background(), testBucket, "alice/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", info.ContentType, "native content type must survive the metadata rewrite")

	link, err := svc.Share(context.Background(), "alice", "report.pdf", 1)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", link.MIMEType)
}

// Objects that predate the facade may carry no native content type; Share
// falls back to extension inference the way List does.
func TestShareFallsBackToExtensionForLegacyObjects(t *testing.T) {
	svc, store, _ := newTestService(t)

	err := store.PutObject(context.Background(), testBucket, "alice/old.pdf",
		strings.NewReader("legacy"), 6, blobstore.PutOptions{})
	require.NoError(t, err)

	link, err := svc.Share(context.Background(), "alice", "old.pdf", 1)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", link.MIMEType)

	u, err := url.Parse(link.SASURL)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", u.Query().Get("_mime_type"))
}

func TestShareCustomDuration(t *testing.T) {
	svc, _, clock := newTestService(t)
	upload(t, svc, "alice", "report.pdf", "pdf")

	link, err := svc.Share(context.Background(), "alice", "report.pdf", 24)
	require.NoError(t, err)

	u, err := url.Parse(link.SASURL)
	require.NoError(t, err)
	expires, err := strconv.ParseInt(u.Query().Get("X-Mem-Expires"), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, clock.now().Add(24*time.Hour).Unix(), expires)
}

func TestShareFreshSignaturePerCall(t *testing.T) {
	svc, _, _ := newTestService(t)
	upload(t, svc, "alice", "report.pdf", "pdf")

	first, err := svc.Share(context.Background(), "alice", "report.pdf", 1)
	require.NoError(t, err)
	second, err := svc.Share(context.Background(), "alice", "report.pdf", 1)
	require.NoError(t, err)

	assert.NotEqual(t, first.SASURL, second.SASURL)
}

func TestShareInvalidDuration(t *testing.T) {
	svc, _, _ := newTestService(t)
	upload(t, svc, "alice", "report.pdf", "pdf")

	_, err := svc.Share(context.Background(), "alice", "report.pdf", 0)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = svc.Share(context.Background(), "alice", "report.pdf", -3)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestShareMissingObject(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Share(context.Background(), "alice", "ghost.pdf", 1)
	assert.True(t, errs.IsNotFound(err))
}

func TestSearchConjunction(t *testing.T) {
	svc, _, clock := newTestService(t)

	upload(t, svc, "alice", "a.pdf", "pdf")
	clock.advance(27 * 24 * time.Hour) // into February
	upload(t, svc, "alice", "b.png", "png")

	ctx := context.Background()

	byName, err := svc.Search(ctx, "alice", "a", "", "")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "a.pdf", byName[0].Name)

	byType, err := svc.Search(ctx, "alice", "", "image", "")
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "b.png", byType[0].Name)

	byDate, err := svc.Search(ctx, "alice", "", "", "2099")
	require.NoError(t, err)
	assert.Empty(t, byDate)

	all, err := svc.Search(ctx, "alice", "", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2, "empty filters match everything")

	anded, err := svc.Search(ctx, "alice", "b", "application", "")
	require.NoError(t, err)
	assert.Empty(t, anded, "filters are conjunctive")
}

func TestSearchNameMatchIsCaseInsensitive(t *testing.T) {
	svc, _, _ := newTestService(t)
	upload(t, svc, "alice", "Quarterly-Report.PDF", "pdf")

	files, err := svc.Search(context.Background(), "alice", "quarterly", "", "")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

// Pins the intentional divergence between List and Search: List presents the
// cached metadata MIME type while Search recomputes it from the extension.
func TestSearchUsesExtensionInference(t *testing.T) {
	svc, store, _ := newTestService(t)
	upload(t, svc, "alice", "misnamed.bin", "x")

	// Poison the cached type so the two paths disagree.
	err := store.SetObjectMetadata(context.Background(), testBucket, "alice/misnamed.bin",
		map[string]string{"mime_type": "application/pdf", "starred": "false"})
	require.NoError(t, err)

	listed, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "application/pdf", listed[0].MIMEType, "list prefers the cached type")

	matches, err := svc.Search(context.Background(), "alice", "", "pdf", "")
	require.NoError(t, err)
	assert.Empty(t, matches, "search infers from the extension and must not see the cached type")

	matches, err = svc.Search(context.Background(), "alice", "", "octet-stream", "")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestStorageUsage(t *testing.T) {
	svc, _, _ := newTestService(t)

	upload(t, svc, "alice", "one.bin", strings.Repeat("a", 1048576))
	upload(t, svc, "alice", "two.bin", strings.Repeat("b", 2097152))
	upload(t, svc, "alice", "half.bin", strings.Repeat("c", 524288))
	upload(t, svc, "bob", "other.bin", strings.Repeat("d", 1048576))

	usage, err := svc.StorageUsage(context.Background(), "alice")
	require.NoError(t, err)
	assert.InDelta(t, 3.5, usage, 1e-9)
}

func TestStorageUsageEmptyNamespace(t *testing.T) {
	svc, _, _ := newTestService(t)
	usage, err := svc.StorageUsage(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, usage)
}
