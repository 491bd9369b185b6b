package drive

import (
	"mime"
	"path"
	"strings"
)

// fallbackMIMETypes covers common office/document/image extensions that the
// platform MIME table may not know about.
var fallbackMIMETypes = map[string]string{
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// ResolveMIME infers a MIME type from the filename's extension. The standard
// table is consulted first, then the fallback table above. It never fails:
// unknown extensions resolve to application/octet-stream. Same filename in,
// same type out — no I/O involved.
func ResolveMIME(filename string) string {
	ext := strings.ToLower(path.Ext(filename))

	if mt := mime.TypeByExtension(ext); mt != "" {
		// Drop parameters like "; charset=utf-8" — callers substring-match
		// on the bare type.
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = strings.TrimSpace(mt[:i])
		}
		return mt
	}

	if mt, ok := fallbackMIMETypes[ext]; ok {
		return mt
	}

	return "application/octet-stream"
}
