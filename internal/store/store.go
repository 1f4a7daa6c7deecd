package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/robeeeeeet/bottle-keep/internal/models"
)

// Store wraps all database access. Visibility of other users' rows is decided
// by the calling services, not here; every query that spans users takes the
// caller's id explicitly.
type Store struct{ DB *gorm.DB }

func New(db *gorm.DB) *Store { return &Store{DB: db} }

// Migrate creates or updates the schema. The partial unique index guarding
// "one open invite per owner" cannot be expressed with struct tags, so it is
// created with raw DDL after AutoMigrate.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.DB.WithContext(ctx)
	if err := db.AutoMigrate(
		&models.Profile{},
		&models.Alcohol{},
		&models.CollectionEntry{},
		&models.ShelfShare{},
	); err != nil {
		return err
	}
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_shelf_shares_open_invite
		 ON shelf_shares (owner_id)
		 WHERE status = 'pending' AND shared_with_id IS NULL`,
	).Error
}

func (s *Store) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
