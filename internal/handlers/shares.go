package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robeeeeeet/bottle-keep/internal/auth"
	"github.com/robeeeeeet/bottle-keep/internal/share"
	"github.com/robeeeeeet/bottle-keep/internal/validate"
)

type ShareHandler struct{ Shares *share.Service }

func NewShareHandler(s *share.Service) *ShareHandler { return &ShareHandler{Shares: s} }

// Routes is mounted under /shares.
func (h *ShareHandler) Routes(r chi.Router) {
	r.Get("/", h.overview)
	r.Post("/invite", h.getOrCreateInvite)
	r.Post("/invite/regenerate", h.regenerateInvite)
	r.Post("/join", h.join)
	r.Delete("/{id}", h.deleteInvite)
}

// FriendRoutes is mounted under /friends.
func (h *ShareHandler) FriendRoutes(r chi.Router) {
	r.Delete("/{id}", h.removeFriend)
}

func (h *ShareHandler) overview(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	out, err := h.Shares.SharesAndFriends(r.Context(), uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ShareHandler) getOrCreateInvite(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	code, err := h.Shares.GetOrCreateInvite(r.Context(), uid)
	if err != nil {
		writeShareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (h *ShareHandler) regenerateInvite(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	code, err := h.Shares.RegenerateInvite(r.Context(), uid)
	if err != nil {
		writeShareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (h *ShareHandler) join(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	type bodyT struct {
		Code             string `json:"code" validate:"required,len=8"`
		DeleteCollection bool   `json:"delete_collection"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := validate.Map(b); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	err := h.Shares.JoinByCode(r.Context(), b.Code, uid, share.JoinOptions{DeleteCollection: b.DeleteCollection})
	if err != nil {
		writeShareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *ShareHandler) deleteInvite(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if err := h.Shares.DeleteInvite(r.Context(), chi.URLParam(r, "id"), uid); err != nil {
		writeShareError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShareHandler) removeFriend(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	if err := h.Shares.RemoveFriend(r.Context(), chi.URLParam(r, "id"), uid); err != nil {
		writeShareError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeShareError maps domain errors to inline 4xx feedback; anything else
// is a 500.
func writeShareError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, share.ErrCodeNotFound), errors.Is(err, share.ErrShareNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, share.ErrSelfInvite),
		errors.Is(err, share.ErrCodeAlreadyUsed),
		errors.Is(err, share.ErrCodeProcessed),
		errors.Is(err, share.ErrAlreadyFriends):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, share.ErrCodeGeneration), errors.Is(err, share.ErrPurgeCollection):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
