package handlers

import (
	"net/http"

	"github.com/robeeeeeet/bottle-keep/internal/auth"
	"github.com/robeeeeeet/bottle-keep/internal/store"
)

type ProfileHandler struct{ Store *store.Store }

func NewProfileHandler(s *store.Store) *ProfileHandler { return &ProfileHandler{Store: s} }

// Me: GET /v1/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	p, err := h.Store.GetProfile(r.Context(), uid)
	if err != nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
