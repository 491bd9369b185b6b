package drive

import "time"

// User-metadata keys on the wire. Lowercase, matching what the store
// drivers hand back.
const (
	metaUploadDate = "upload_date"
	metaStarred    = "starred"
	metaMIMEType   = "mime_type"
)

// Metadata is the descriptive record attached to every stored object.
// It lives in the store's user metadata and is mutable independently of
// the payload, but never outlives the object it describes.
type Metadata struct {
	// UploadDate is an ISO-8601 UTC timestamp, set exactly once at upload.
	UploadDate string

	// Starred is the user-toggled flag ("true"/"false" on the wire).
	Starred bool

	// MIMEType is the type resolved at upload time. Once set it is
	// authoritative for presentation; readers fall back to extension
	// inference only when it is absent.
	MIMEType string
}

// newMetadata builds the initial record written at upload time.
func newMetadata(now time.Time, mimeType string) Metadata {
	return Metadata{
		UploadDate: now.UTC().Format(time.RFC3339),
		Starred:    false,
		MIMEType:   mimeType,
	}
}

// metadataFromMap decodes a store user-metadata map. Absent keys leave
// zero values, so legacy objects without metadata decode to an empty record.
func metadataFromMap(md map[string]string) Metadata {
	return Metadata{
		UploadDate: md[metaUploadDate],
		Starred:    md[metaStarred] == "true",
		MIMEType:   md[metaMIMEType],
	}
}

// toMap encodes the record for the store. Empty fields are omitted so a
// merge never plants empty strings over fields that were never set.
func (m Metadata) toMap() map[string]string {
	out := make(map[string]string, 3)
	if m.UploadDate != "" {
		out[metaUploadDate] = m.UploadDate
	}
	if m.MIMEType != "" {
		out[metaMIMEType] = m.MIMEType
	}
	if m.Starred {
		out[metaStarred] = "true"
	} else {
		out[metaStarred] = "false"
	}
	return out
}
