package store

import (
	"context"
	"time"

	"github.com/robeeeeeet/bottle-keep/internal/models"
)

// OpenInvite returns the owner's current unclaimed invite, or
// gorm.ErrRecordNotFound.
func (s *Store) OpenInvite(ctx context.Context, ownerID string) (*models.ShelfShare, error) {
	var sh models.ShelfShare
	err := s.DB.WithContext(ctx).
		Where("owner_id = ? AND status = ? AND shared_with_id IS NULL AND invite_code IS NOT NULL",
			ownerID, models.ShareStatusPending).
		Order("created_at DESC").
		First(&sh).Error
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// CreateShare inserts a new share row. A duplicate invite code surfaces as
// gorm.ErrDuplicatedKey (TranslateError is enabled on the connection).
func (s *Store) CreateShare(ctx context.Context, sh *models.ShelfShare) error {
	return s.DB.WithContext(ctx).Create(sh).Error
}

// DeleteOpenInvites removes every unclaimed invite the owner has. Used when
// regenerating a code to revoke anything previously handed out.
func (s *Store) DeleteOpenInvites(ctx context.Context, ownerID string) error {
	return s.DB.WithContext(ctx).
		Where("owner_id = ? AND status = ? AND shared_with_id IS NULL",
			ownerID, models.ShareStatusPending).
		Delete(&models.ShelfShare{}).Error
}

func (s *Store) ShareByCode(ctx context.Context, code string) (*models.ShelfShare, error) {
	var sh models.ShelfShare
	if err := s.DB.WithContext(ctx).First(&sh, "invite_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &sh, nil
}

// AcceptedBetween reports whether an accepted share already links the two
// users, in either direction.
func (s *Store) AcceptedBetween(ctx context.Context, userA, userB string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.ShelfShare{}).
		Where("status = ?", models.ShareStatusAccepted).
		Where("(owner_id = ? AND shared_with_id = ?) OR (owner_id = ? AND shared_with_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	return count > 0, err
}

// AcceptShare performs the pending -> accepted transition. The WHERE guard
// makes the update atomic: when two users race on the same code, exactly one
// update matches and the loser sees accepted=false.
func (s *Store) AcceptShare(ctx context.Context, shareID, userID string, at time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.ShelfShare{}).
		Where("id = ? AND status = ? AND shared_with_id IS NULL", shareID, models.ShareStatusPending).
		Updates(map[string]any{
			"shared_with_id": userID,
			"status":         models.ShareStatusAccepted,
			"accepted_at":    at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AcceptedSharesFor lists accepted shares the user participates in, newest
// friendship first, with both profiles loaded.
func (s *Store) AcceptedSharesFor(ctx context.Context, userID string) ([]models.ShelfShare, error) {
	var out []models.ShelfShare
	err := s.DB.WithContext(ctx).
		Preload("Owner").Preload("SharedWith").
		Where("status = ? AND (owner_id = ? OR shared_with_id = ?)",
			models.ShareStatusAccepted, userID, userID).
		Order("accepted_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAcceptedShare dissolves a friendship. Either party may delete the row.
func (s *Store) DeleteAcceptedShare(ctx context.Context, shareID, userID string) (bool, error) {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND status = ? AND (owner_id = ? OR shared_with_id = ?)",
			shareID, models.ShareStatusAccepted, userID, userID).
		Delete(&models.ShelfShare{})
	return res.RowsAffected > 0, res.Error
}

// DeleteShareByOwner removes any share row the caller owns, whatever its
// status.
func (s *Store) DeleteShareByOwner(ctx context.Context, shareID, ownerID string) (bool, error) {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND owner_id = ?", shareID, ownerID).
		Delete(&models.ShelfShare{})
	return res.RowsAffected > 0, res.Error
}

// FriendIDs returns the ids of everyone linked to the user by an accepted
// share, whichever side of the row they sit on.
func (s *Store) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	shares, err := s.AcceptedSharesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(shares))
	for _, sh := range shares {
		if sh.OwnerID == userID {
			if sh.SharedWithID != nil {
				ids = append(ids, *sh.SharedWithID)
			}
		} else {
			ids = append(ids, sh.OwnerID)
		}
	}
	return ids, nil
}
