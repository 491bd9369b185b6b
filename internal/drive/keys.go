// Package drive implements the per-tenant file facade: object naming,
// descriptive metadata, signed read access, thumbnail derivation, and the
// catalog/search view over a blobstore.Store.
package drive

import "strings"

// thumbnailPrefix is the sub-namespace derived previews live under,
// inside the owner's segment.
const thumbnailPrefix = "thumbnails/"

// ObjectKey maps an (owner, logical name) pair to a storage key.
// Both parts are treated as opaque tokens; any sanitization belongs to the
// request-handling layer above.
func ObjectKey(owner, name string) string {
	return owner + "/" + name
}

// ThumbnailKey returns the storage key of the derived preview for the given
// logical name. Previews are always PNG regardless of the source format.
func ThumbnailKey(owner, name string) string {
	return owner + "/" + thumbnailPrefix + name + ".png"
}

// ownerPrefix is the listing prefix covering every key in an owner's namespace.
func ownerPrefix(owner string) string {
	return owner + "/"
}

// SplitKey recovers (owner, logical name) from a storage key by splitting on
// the first path separator. ok is false when the key carries no separator or
// an empty logical name.
func SplitKey(key string) (owner, name string, ok bool) {
	i := strings.Index(key, "/")
	if i < 0 || i+1 >= len(key) {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}
