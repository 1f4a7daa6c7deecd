package store

import (
	"context"
	"fmt"

	"github.com/robeeeeeet/bottle-keep/internal/models"
)

// EntryQuery carries the shelf listing parameters pushed down to SQL.
type EntryQuery struct {
	SortField string // created_at | rating | drinking_date
	SortDesc  bool
	Type      string // exact match on alcohols.type, empty = no filter
	MinRating int    // 0 = no filter
}

var sortColumns = map[string]string{
	"created_at":    "collection_entries.created_at",
	"rating":        "collection_entries.rating",
	"drinking_date": "collection_entries.drinking_date",
}

// VisibleEntries fetches every entry owned by one of ownerIDs, filtered and
// sorted per q. The caller passes its own id plus its accepted peers; the
// "own rows + accepted-peer rows" rule lives in the shelf service, not here.
func (s *Store) VisibleEntries(ctx context.Context, ownerIDs []string, q EntryQuery) ([]models.CollectionEntry, error) {
	col, ok := sortColumns[q.SortField]
	if !ok {
		col = sortColumns["created_at"]
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}

	db := s.DB.WithContext(ctx).
		Preload("Alcohol").Preload("User").
		Joins("JOIN alcohols ON alcohols.id = collection_entries.alcohol_id").
		Where("collection_entries.user_id IN ?", ownerIDs)
	if q.Type != "" {
		db = db.Where("alcohols.type = ?", q.Type)
	}
	if q.MinRating > 0 {
		db = db.Where("collection_entries.rating >= ?", q.MinRating)
	}

	var out []models.CollectionEntry
	err := db.Order(fmt.Sprintf("%s %s NULLS LAST", col, dir)).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateAlcohol(ctx context.Context, a *models.Alcohol) error {
	return s.DB.WithContext(ctx).Create(a).Error
}

func (s *Store) GetAlcohol(ctx context.Context, id string) (*models.Alcohol, error) {
	var a models.Alcohol
	if err := s.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateEntry(ctx context.Context, e *models.CollectionEntry) error {
	return s.DB.WithContext(ctx).Create(e).Error
}

func (s *Store) GetEntry(ctx context.Context, id string) (*models.CollectionEntry, error) {
	var e models.CollectionEntry
	if err := s.DB.WithContext(ctx).Preload("Alcohol").First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEntry mutates an entry's review fields, guarded by ownership on top
// of whatever the database policy enforces.
func (s *Store) UpdateEntry(ctx context.Context, e *models.CollectionEntry, owner string) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.CollectionEntry{}).
		Where("id = ? AND user_id = ?", e.ID, owner).
		Updates(map[string]any{
			"photo_url":     e.PhotoURL,
			"drinking_date": e.DrinkingDate,
			"rating":        e.Rating,
			"memo":          e.Memo,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) DeleteEntry(ctx context.Context, id, owner string) (bool, error) {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, owner).
		Delete(&models.CollectionEntry{})
	return res.RowsAffected > 0, res.Error
}

// AlcoholIDsForUser lists the distinct alcohol ids the user's entries
// reference. Input to the orphan-pruning pass.
func (s *Store) AlcoholIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.CollectionEntry{}).
		Distinct("alcohol_id").
		Where("user_id = ?", userID).
		Pluck("alcohol_id", &ids).Error
	return ids, err
}

func (s *Store) DeleteEntriesForUser(ctx context.Context, userID string) error {
	return s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CollectionEntry{}).Error
}

// AlcoholIDsUsedByOthers filters ids down to those still referenced by some
// other user's entries.
func (s *Store) AlcoholIDsUsedByOthers(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var used []string
	err := s.DB.WithContext(ctx).Model(&models.CollectionEntry{}).
		Distinct("alcohol_id").
		Where("user_id <> ? AND alcohol_id IN ?", userID, ids).
		Pluck("alcohol_id", &used).Error
	return used, err
}

func (s *Store) DeleteAlcohols(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.Alcohol{}).Error
}
