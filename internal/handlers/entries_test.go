package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/robeeeeeet/bottle-keep/internal/auth"
	"github.com/robeeeeeet/bottle-keep/internal/collection"
	"github.com/robeeeeeet/bottle-keep/internal/logger"
	"github.com/robeeeeeet/bottle-keep/internal/models"
)

type entryStoreStub struct {
	entry   *models.CollectionEntry
	friends [][2]string
}

func (s *entryStoreStub) CreateAlcohol(context.Context, *models.Alcohol) error { return nil }

func (s *entryStoreStub) GetAlcohol(context.Context, string) (*models.Alcohol, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *entryStoreStub) CreateEntry(context.Context, *models.CollectionEntry) error { return nil }

func (s *entryStoreStub) GetEntry(_ context.Context, id string) (*models.CollectionEntry, error) {
	if s.entry == nil || s.entry.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s.entry
	return &cp, nil
}

func (s *entryStoreStub) UpdateEntry(context.Context, *models.CollectionEntry, string) (bool, error) {
	return false, nil
}

func (s *entryStoreStub) DeleteEntry(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *entryStoreStub) AcceptedBetween(_ context.Context, a, b string) (bool, error) {
	for _, pair := range s.friends {
		if (pair[0] == a && pair[1] == b) || (pair[0] == b && pair[1] == a) {
			return true, nil
		}
	}
	return false, nil
}

func doGetEntry(st *entryStoreStub, caller, id string) *httptest.ResponseRecorder {
	h := NewEntryHandler(collection.NewService(st, nil, logger.Nop()))
	r := chi.NewRouter()
	r.Route("/entries", h.Routes)

	req := httptest.NewRequest(http.MethodGet, "/entries/"+id, nil)
	req = req.WithContext(auth.WithUserID(req.Context(), caller))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetEntryVisibility(t *testing.T) {
	memo := "private tasting note"
	st := &entryStoreStub{
		entry:   &models.CollectionEntry{ID: "e1", UserID: "owner", Rating: 4, Memo: &memo},
		friends: [][2]string{{"owner", "friend"}},
	}

	t.Run("owner reads own entry", func(t *testing.T) {
		rec := doGetEntry(st, "owner", "e1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), memo)
	})

	t.Run("accepted friend reads the entry", func(t *testing.T) {
		rec := doGetEntry(st, "friend", "e1")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("stranger gets not found, never the row", func(t *testing.T) {
		rec := doGetEntry(st, "stranger", "e1")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotContains(t, rec.Body.String(), memo)
		assert.NotContains(t, rec.Body.String(), "owner")
	})

	t.Run("missing entry", func(t *testing.T) {
		rec := doGetEntry(st, "owner", "nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
