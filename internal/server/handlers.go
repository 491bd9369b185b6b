package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/koustreak/FileDock/internal/drive"
	"github.com/koustreak/FileDock/internal/errs"
	"github.com/koustreak/FileDock/internal/logger"
)

// maxUploadMemory bounds how much of a multipart upload is buffered in
// memory before spilling to disk.
const maxUploadMemory = 32 << 20

type handlers struct {
	svc *drive.Service
	log *logger.Logger
}

// fileRef is the JSON body shared by delete, generate-sas, thumbnail, star.
type fileRef struct {
	Email    string `json:"email"`
	Filename string `json:"filename"`
	Duration *int   `json:"duration,omitempty"`
	Starred  *bool  `json:"starred,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, errs.Wrap(errs.ErrKindInvalidInput, "invalid multipart form", err))
		return
	}

	email := r.FormValue("email")

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, errs.Wrap(errs.ErrKindInvalidInput, "missing file field", err))
		return
	}
	defer file.Close()

	if err := h.svc.Upload(r.Context(), email, header.Filename, file, header.Size); err != nil {
		h.logFailure(r, "upload failed", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("File %s uploaded successfully", header.Filename),
	})
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	ref, err := decodeRef(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), ref.Email, ref.Filename); err != nil {
		h.logFailure(r, "delete failed", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("File %s deleted successfully", ref.Filename),
	})
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.List(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.logFailure(r, "list failed", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (h *handlers) generateSAS(w http.ResponseWriter, r *http.Request) {
	ref, err := decodeRef(r)
	if err != nil {
		respondError(w, err)
		return
	}

	hours := drive.DefaultShareHours
	if ref.Duration != nil {
		hours = *ref.Duration
	}

	link, err := h.svc.Share(r.Context(), ref.Email, ref.Filename, hours)
	if err != nil {
		h.logFailure(r, "share failed", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, link)
}

func (h *handlers) thumbnail(w http.ResponseWriter, r *http.Request) {
	ref, err := decodeRef(r)
	if err != nil {
		respondError(w, err)
		return
	}

	thumbURL, ok, err := h.svc.Preview(r.Context(), ref.Email, ref.Filename)
	if err != nil {
		h.logFailure(r, "thumbnail failed", err)
		respondError(w, err)
		return
	}
	if !ok {
		// Not an error — not every file is previewable.
		respondJSON(w, http.StatusOK, map[string]string{"message": "No thumbnail available"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"thumbnail_url": thumbURL})
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	files, err := h.svc.Search(r.Context(), q.Get("email"), q.Get("query"), q.Get("type"), q.Get("date"))
	if err != nil {
		h.logFailure(r, "search failed", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (h *handlers) star(w http.ResponseWriter, r *http.Request) {
	ref, err := decodeRef(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if ref.Starred == nil {
		respondError(w, errs.New(errs.ErrKindInvalidInput, "missing starred field"))
		return
	}

	if err := h.svc.SetStarred(r.Context(), ref.Email, ref.Filename, *ref.Starred); err != nil {
		h.logFailure(r, "star failed", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("File %s starred status updated", ref.Filename),
	})
}

func (h *handlers) storageUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.svc.StorageUsage(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.logFailure(r, "storage usage failed", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]float64{"usage_mb": usage})
}

func decodeRef(r *http.Request) (*fileRef, error) {
	var ref fileRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid JSON body", err)
	}
	return &ref, nil
}

func (h *handlers) logFailure(r *http.Request, msg string, err error) {
	h.log.ErrorWith(msg, err, map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
	})
}
