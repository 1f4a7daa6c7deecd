package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robeeeeeet/bottle-keep/internal/auth"
	"github.com/robeeeeeet/bottle-keep/internal/models"
	"github.com/robeeeeeet/bottle-keep/internal/shelf"
	"github.com/robeeeeeet/bottle-keep/internal/store"
)

type shelfStoreStub struct {
	entries []models.CollectionEntry
	err     error
	query   store.EntryQuery
}

func (s *shelfStoreStub) FriendIDs(context.Context, string) ([]string, error) { return nil, nil }

func (s *shelfStoreStub) VisibleEntries(_ context.Context, _ []string, q store.EntryQuery) ([]models.CollectionEntry, error) {
	s.query = q
	return s.entries, s.err
}

func doShelf(st *shelfStoreStub, target string) *httptest.ResponseRecorder {
	h := NewShelfHandler(shelf.NewService(st))
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithUserID(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	h.List(rec, req)
	return rec
}

func TestShelfDefaultsToNewestFirst(t *testing.T) {
	st := &shelfStoreStub{}
	rec := doShelf(st, "/v1/shelf")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "created_at", st.query.SortField)
	assert.True(t, st.query.SortDesc)
}

func TestShelfQueryParams(t *testing.T) {
	st := &shelfStoreStub{}
	rec := doShelf(st, "/v1/shelf?sort=rating&order=asc&type=日本酒&min_rating=4")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.EntryQuery{
		SortField: "rating",
		SortDesc:  false,
		Type:      "日本酒",
		MinRating: 4,
	}, st.query)
}

func TestShelfRejectsBadParams(t *testing.T) {
	for _, target := range []string{
		"/v1/shelf?sort=name",
		"/v1/shelf?order=sideways",
		"/v1/shelf?min_rating=7",
	} {
		rec := doShelf(&shelfStoreStub{}, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestShelfFetchFailureRendersEmptyWithFlag(t *testing.T) {
	st := &shelfStoreStub{err: errors.New("db down")}
	rec := doShelf(st, "/v1/shelf")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"groups":[],"mixed":false,"entry_count":0,"error":"failed to load shelf"}`, rec.Body.String())
}
