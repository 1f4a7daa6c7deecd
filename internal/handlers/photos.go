package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/robeeeeeet/bottle-keep/internal/auth"
	"github.com/robeeeeeet/bottle-keep/internal/storage"
)

// Photos larger than this are rejected before touching the object store.
const maxPhotoBytes = 10 << 20

type PhotoHandler struct{ Storage *storage.Client }

func NewPhotoHandler(s *storage.Client) *PhotoHandler { return &PhotoHandler{Storage: s} }

// Upload: POST /v1/photos, multipart field "photo". Returns the public URL.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read photo")
		return
	}
	if len(data) > maxPhotoBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "photo too large")
		return
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	switch ext {
	case "jpg", "jpeg", "png", "webp":
	default:
		ext = "jpg"
	}
	key := storage.PhotoKey(uid, ext)

	url, err := h.Storage.Upload(r.Context(), key, data, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
