package collection

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/robeeeeeet/bottle-keep/internal/ai"
	"github.com/robeeeeeet/bottle-keep/internal/logger"
	"github.com/robeeeeeet/bottle-keep/internal/models"
)

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrEntryNotFound = errors.New("entry not found")
	ErrNotFound      = errors.New("not found")
)

type Store interface {
	CreateAlcohol(ctx context.Context, a *models.Alcohol) error
	GetAlcohol(ctx context.Context, id string) (*models.Alcohol, error)
	CreateEntry(ctx context.Context, e *models.CollectionEntry) error
	GetEntry(ctx context.Context, id string) (*models.CollectionEntry, error)
	UpdateEntry(ctx context.Context, e *models.CollectionEntry, owner string) (bool, error)
	DeleteEntry(ctx context.Context, id, owner string) (bool, error)
	AcceptedBetween(ctx context.Context, userA, userB string) (bool, error)
}

// PhotoRemover deletes an uploaded photo given its public URL. Failures are
// treated as debris, never as a reason to fail the user's action.
type PhotoRemover interface {
	RemoveByURL(ctx context.Context, photoURL string) error
}

// SaveInput is everything needed to persist one review. Exactly one of Info
// and ExistingAlcoholID drives the catalog side: Info creates a new Alcohol
// row, ExistingAlcoholID reuses a friend's already-catalogued bottle.
type SaveInput struct {
	Info              *ai.AlcoholInfo
	ExistingAlcoholID string
	PhotoURL          *string
	DrinkingDate      *time.Time
	Rating            int
	Memo              *string
}

// UpdateInput mutates an existing entry's review fields.
type UpdateInput struct {
	PhotoURL     *string
	OldPhotoURL  *string
	DrinkingDate *time.Time
	Rating       int
	Memo         *string
}

type Service struct {
	store  Store
	photos PhotoRemover
	log    logger.Logger
}

func NewService(st Store, photos PhotoRemover, log logger.Logger) *Service {
	return &Service{store: st, photos: photos, log: log}
}

// SaveReview persists one CollectionEntry, creating the Alcohol row first
// when the bottle is new to the catalog. The rating gate runs before any
// write so an invalid save touches nothing.
func (s *Service) SaveReview(ctx context.Context, userID string, in SaveInput) (*models.CollectionEntry, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}

	alcoholID := in.ExistingAlcoholID
	if alcoholID == "" {
		if in.Info == nil {
			return nil, errors.New("either alcohol info or an existing alcohol id is required")
		}
		a, err := s.createAlcohol(ctx, in.Info)
		if err != nil {
			return nil, err
		}
		alcoholID = a.ID
	}

	entry := &models.CollectionEntry{
		UserID:       userID,
		AlcoholID:    alcoholID,
		PhotoURL:     in.PhotoURL,
		DrinkingDate: in.DrinkingDate,
		Rating:       in.Rating,
		Memo:         in.Memo,
	}
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) createAlcohol(ctx context.Context, info *ai.AlcoholInfo) (*models.Alcohol, error) {
	raw, _ := json.Marshal(info)
	a := &models.Alcohol{
		Name:              info.Name,
		Type:              info.Type,
		Subtype:           info.Subtype,
		Brand:             info.Brand,
		Producer:          info.Producer,
		OriginCountry:     info.OriginCountry,
		OriginRegion:      info.OriginRegion,
		AlcoholPercentage: info.AlcoholPercentage,
		PriceRange:        info.PriceRange,
		Characteristics:   info.Characteristics,
		RawAIResponse:     raw,
	}
	if err := s.store.CreateAlcohol(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAlcoholInfo fetches a catalog row as the identification shape. Used by
// the "add my review to a friend's bottle" entry point.
func (s *Service) GetAlcoholInfo(ctx context.Context, alcoholID string) (*ai.AlcoholInfo, error) {
	a, err := s.store.GetAlcohol(ctx, alcoholID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ai.AlcoholInfo{
		Name:              a.Name,
		Type:              a.Type,
		Subtype:           a.Subtype,
		Brand:             a.Brand,
		Producer:          a.Producer,
		OriginCountry:     a.OriginCountry,
		OriginRegion:      a.OriginRegion,
		AlcoholPercentage: a.AlcoholPercentage,
		PriceRange:        a.PriceRange,
		Characteristics:   a.Characteristics,
	}, nil
}

// GetEntry returns one entry, applying the same visibility rule as the shelf:
// the caller sees their own rows and accepted friends' rows, nothing else.
// Rows outside that set read as not found.
func (s *Service) GetEntry(ctx context.Context, userID, id string) (*models.CollectionEntry, error) {
	e, err := s.store.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	if e.UserID != userID {
		friends, err := s.store.AcceptedBetween(ctx, e.UserID, userID)
		if err != nil {
			return nil, err
		}
		if !friends {
			return nil, ErrEntryNotFound
		}
	}
	return e, nil
}

// UpdateEntry saves new review fields, then removes the replaced photo from
// storage. The row update commits first; a failed photo delete only leaves an
// orphan file and is logged.
func (s *Service) UpdateEntry(ctx context.Context, userID, entryID string, in UpdateInput) error {
	if in.Rating < 1 || in.Rating > 5 {
		return ErrInvalidRating
	}
	ok, err := s.store.UpdateEntry(ctx, &models.CollectionEntry{
		ID:           entryID,
		PhotoURL:     in.PhotoURL,
		DrinkingDate: in.DrinkingDate,
		Rating:       in.Rating,
		Memo:         in.Memo,
	}, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEntryNotFound
	}

	if in.OldPhotoURL != nil && (in.PhotoURL == nil || *in.OldPhotoURL != *in.PhotoURL) {
		s.removePhoto(ctx, *in.OldPhotoURL)
	}
	return nil
}

// DeleteEntry removes the caller's entry and then its photo, best effort.
func (s *Service) DeleteEntry(ctx context.Context, userID, entryID string) error {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		return err
	}

	ok, err := s.store.DeleteEntry(ctx, entryID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEntryNotFound
	}

	if entry.PhotoURL != nil {
		s.removePhoto(ctx, *entry.PhotoURL)
	}
	return nil
}

func (s *Service) removePhoto(ctx context.Context, photoURL string) {
	if s.photos == nil {
		return
	}
	if err := s.photos.RemoveByURL(ctx, photoURL); err != nil {
		// Orphan file may remain; a periodic cleanup can reap it.
		s.log.Warn("photo delete failed", logger.String("photo_url", photoURL), logger.Error(err))
	}
}
