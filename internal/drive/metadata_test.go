package drive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewMetadata(t *testing.T) {
	at := time.Date(2024, 1, 5, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	md := newMetadata(at, "application/pdf")

	// Timestamps are normalized to UTC.
	assert.Equal(t, "2024-01-05T09:30:00Z", md.UploadDate)
	assert.Equal(t, "application/pdf", md.MIMEType)
	assert.False(t, md.Starred)
}

func TestMetadataRoundTrip(t *testing.T) {
	md := Metadata{
		UploadDate: "2024-01-05T09:30:00Z",
		Starred:    true,
		MIMEType:   "image/png",
	}

	decoded := metadataFromMap(md.toMap())
	assert.Equal(t, md, decoded)
}

func TestMetadataFromMapAbsentKeys(t *testing.T) {
	md := metadataFromMap(nil)
	assert.Equal(t, Metadata{}, md)

	md = metadataFromMap(map[string]string{"starred": "true"})
	assert.True(t, md.Starred)
	assert.Empty(t, md.UploadDate)
	assert.Empty(t, md.MIMEType)
}

func TestToMapOmitsUnsetFields(t *testing.T) {
	// A record recreated by a star toggle on a metadata-less object must not
	// plant empty upload_date or mime_type values.
	m := Metadata{Starred: true}.toMap()
	assert.Equal(t, map[string]string{"starred": "true"}, m)

	m = Metadata{}.toMap()
	assert.Equal(t, map[string]string{"starred": "false"}, m)
}

func TestStarredWireEncoding(t *testing.T) {
	assert.Equal(t, "true", Metadata{Starred: true}.toMap()[metaStarred])
	assert.Equal(t, "false", Metadata{Starred: false}.toMap()[metaStarred])
	assert.False(t, metadataFromMap(map[string]string{"starred": "FALSE"}).Starred)
}
