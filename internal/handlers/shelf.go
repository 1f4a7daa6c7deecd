package handlers

import (
	"net/http"
	"strconv"

	"github.com/robeeeeeet/bottle-keep/internal/auth"
	"github.com/robeeeeeet/bottle-keep/internal/shelf"
	"github.com/robeeeeeet/bottle-keep/internal/validate"
)

type ShelfHandler struct{ Shelf *shelf.Service }

func NewShelfHandler(s *shelf.Service) *ShelfHandler { return &ShelfHandler{Shelf: s} }

// List: GET /v1/shelf?sort=created_at|rating|drinking_date&order=asc|desc&type=&min_rating=
func (h *ShelfHandler) List(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())

	type qT struct {
		Sort      string `validate:"omitempty,oneof=created_at rating drinking_date"`
		Order     string `validate:"omitempty,oneof=asc desc"`
		Type      string `validate:"omitempty,max=50"`
		MinRating int    `validate:"omitempty,gte=1,lte=5"`
	}
	q := qT{
		Sort:  r.URL.Query().Get("sort"),
		Order: r.URL.Query().Get("order"),
		Type:  r.URL.Query().Get("type"),
	}
	if v := r.URL.Query().Get("min_rating"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.MinRating = n
		}
	}
	if errs := validate.Map(q); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	if q.Sort == "" {
		q.Sort = "created_at"
	}

	view, err := h.Shelf.List(r.Context(), uid, shelf.Query{
		SortField: q.Sort,
		SortDesc:  q.Order != "asc", // newest/highest first by default
		Type:      q.Type,
		MinRating: q.MinRating,
	})
	if err != nil {
		// A failed fetch renders as an empty shelf with the error flagged.
		writeJSON(w, http.StatusOK, map[string]any{
			"groups":      []any{},
			"mixed":       false,
			"entry_count": 0,
			"error":       "failed to load shelf",
		})
		return
	}
	writeJSON(w, http.StatusOK, view)
}
