package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robeeeeeet/bottle-keep/internal/ai"
	"github.com/robeeeeeet/bottle-keep/internal/auth"
	"github.com/robeeeeeet/bottle-keep/internal/collection"
	"github.com/robeeeeeet/bottle-keep/internal/validate"
)

type EntryHandler struct{ Collection *collection.Service }

func NewEntryHandler(c *collection.Service) *EntryHandler { return &EntryHandler{Collection: c} }

// Routes is mounted under /entries.
func (h *EntryHandler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// GetAlcohol: GET /v1/alcohols/{id}. The add-my-review entry point fetches
// the catalog row for a friend's bottle without re-identification.
func (h *EntryHandler) GetAlcohol(w http.ResponseWriter, r *http.Request) {
	info, err := h.Collection.GetAlcoholInfo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alcohol not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type reviewBody struct {
	PhotoURL     *string `json:"photo_url"`
	DrinkingDate *string `json:"drinking_date" validate:"omitempty,datetime=2006-01-02"`
	Rating       int     `json:"rating" validate:"required,gte=1,lte=5"`
	Memo         *string `json:"memo" validate:"omitempty"`
}

func (b reviewBody) date() *time.Time {
	if b.DrinkingDate == nil || *b.DrinkingDate == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", *b.DrinkingDate)
	if err != nil {
		return nil
	}
	return &t
}

func (h *EntryHandler) create(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	type bodyT struct {
		reviewBody
		Alcohol           *ai.AlcoholInfo `json:"alcohol"`
		ExistingAlcoholID string          `json:"existing_alcohol_id"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := validate.Map(b.reviewBody); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	if b.Alcohol == nil && b.ExistingAlcoholID == "" {
		writeError(w, http.StatusBadRequest, "alcohol or existing_alcohol_id is required")
		return
	}

	entry, err := h.Collection.SaveReview(r.Context(), uid, collection.SaveInput{
		Info:              b.Alcohol,
		ExistingAlcoholID: b.ExistingAlcoholID,
		PhotoURL:          b.PhotoURL,
		DrinkingDate:      b.date(),
		Rating:            b.Rating,
		Memo:              b.Memo,
	})
	if err != nil {
		if errors.Is(err, collection.ErrInvalidRating) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *EntryHandler) get(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	entry, err := h.Collection.GetEntry(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, collection.ErrEntryNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) update(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	type bodyT struct {
		reviewBody
		OldPhotoURL *string `json:"old_photo_url"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := validate.Map(b.reviewBody); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	err := h.Collection.UpdateEntry(r.Context(), uid, chi.URLParam(r, "id"), collection.UpdateInput{
		PhotoURL:     b.PhotoURL,
		OldPhotoURL:  b.OldPhotoURL,
		DrinkingDate: b.date(),
		Rating:       b.Rating,
		Memo:         b.Memo,
	})
	if err != nil {
		switch {
		case errors.Is(err, collection.ErrEntryNotFound):
			writeError(w, http.StatusNotFound, "entry not found")
		case errors.Is(err, collection.ErrInvalidRating):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EntryHandler) delete(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	err := h.Collection.DeleteEntry(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, collection.ErrEntryNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
