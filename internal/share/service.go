package share

import (
	"context"
	"errors"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/robeeeeeet/bottle-keep/internal/logger"
	"github.com/robeeeeeet/bottle-keep/internal/models"
)

// Domain errors. Returned as values so handlers can map them to inline
// feedback instead of a generic failure page.
var (
	ErrCodeNotFound    = errors.New("invite code not found")
	ErrSelfInvite      = errors.New("cannot accept your own invite code")
	ErrCodeAlreadyUsed = errors.New("invite code has already been used")
	ErrCodeProcessed   = errors.New("invite code has already been processed")
	ErrAlreadyFriends  = errors.New("already friends with this user")
	ErrCodeGeneration  = errors.New("could not generate a unique invite code")
	ErrShareNotFound   = errors.New("share not found")
	ErrPurgeCollection = errors.New("failed to delete collection")
)

// Invite codes avoid glyphs that read ambiguously on a phone screen
// (0/O, 1/I/l).
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	codeLength   = 8

	// Collisions against the unique index are retried with a fresh code.
	maxCodeAttempts = 5
)

// Store is the persistence surface the engine needs. *store.Store satisfies
// it; tests use an in-memory fake.
type Store interface {
	OpenInvite(ctx context.Context, ownerID string) (*models.ShelfShare, error)
	CreateShare(ctx context.Context, sh *models.ShelfShare) error
	DeleteOpenInvites(ctx context.Context, ownerID string) error
	ShareByCode(ctx context.Context, code string) (*models.ShelfShare, error)
	AcceptedBetween(ctx context.Context, userA, userB string) (bool, error)
	AcceptShare(ctx context.Context, shareID, userID string, at time.Time) (bool, error)
	AcceptedSharesFor(ctx context.Context, userID string) ([]models.ShelfShare, error)
	DeleteAcceptedShare(ctx context.Context, shareID, userID string) (bool, error)
	DeleteShareByOwner(ctx context.Context, shareID, ownerID string) (bool, error)

	AlcoholIDsForUser(ctx context.Context, userID string) ([]string, error)
	DeleteEntriesForUser(ctx context.Context, userID string) error
	AlcoholIDsUsedByOthers(ctx context.Context, userID string, ids []string) ([]string, error)
	DeleteAlcohols(ctx context.Context, ids []string) error
}

// Friend is one accepted share seen from the caller's side.
type Friend struct {
	ID          string  `json:"id"`
	ShareID     string  `json:"share_id"`
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
	Since       string  `json:"since"`
}

// Overview bundles the caller's open invite (if any) with their friend list.
type Overview struct {
	CurrentInvite *models.ShelfShare `json:"current_invite"`
	Friends       []Friend           `json:"friends"`
}

type Service struct {
	store Store
	log   logger.Logger

	now     func() time.Time
	newCode func() (string, error)
}

func NewService(st Store, log logger.Logger) *Service {
	return &Service{
		store:   st,
		log:     log,
		now:     time.Now,
		newCode: func() (string, error) { return gonanoid.Generate(codeAlphabet, codeLength) },
	}
}

// GetOrCreateInvite returns the owner's current open invite code, creating
// one if none exists. The returned code is claimable exactly once.
func (s *Service) GetOrCreateInvite(ctx context.Context, ownerID string) (string, error) {
	existing, err := s.store.OpenInvite(ctx, ownerID)
	switch {
	case err == nil && existing.InviteCode != nil:
		return *existing.InviteCode, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return "", err
	}
	return s.createInvite(ctx, ownerID)
}

// RegenerateInvite revokes any outstanding invite and issues a fresh code.
// Anyone holding the old code can no longer join.
func (s *Service) RegenerateInvite(ctx context.Context, ownerID string) (string, error) {
	if err := s.store.DeleteOpenInvites(ctx, ownerID); err != nil {
		return "", err
	}
	return s.createInvite(ctx, ownerID)
}

// createInvite inserts a pending share with a random code, retrying on
// unique-constraint collisions. Two concurrent callers picking the same code
// are resolved by the store rejecting the second insert.
func (s *Service) createInvite(ctx context.Context, ownerID string) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		sh := &models.ShelfShare{
			OwnerID:    ownerID,
			InviteCode: &code,
			Status:     models.ShareStatusPending,
		}
		err = s.store.CreateShare(ctx, sh)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return "", err
	}
	return "", ErrCodeGeneration
}

// JoinOptions tweaks JoinByCode behavior.
type JoinOptions struct {
	// DeleteCollection purges the joining user's entries first, so the
	// merged shelf starts from the owner's catalogue only.
	DeleteCollection bool
}

// JoinByCode claims an invite and forms the friendship. Validation follows a
// fixed order so the caller always gets the most specific error: unknown code,
// self-invite, already claimed, already processed, already friends.
func (s *Service) JoinByCode(ctx context.Context, code, userID string, opts JoinOptions) error {
	invite, err := s.store.ShareByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		return err
	}
	if invite.OwnerID == userID {
		return ErrSelfInvite
	}
	if invite.SharedWithID != nil {
		return ErrCodeAlreadyUsed
	}
	if invite.Status != models.ShareStatusPending {
		return ErrCodeProcessed
	}

	friends, err := s.store.AcceptedBetween(ctx, invite.OwnerID, userID)
	if err != nil {
		return err
	}
	if friends {
		return ErrAlreadyFriends
	}

	if opts.DeleteCollection {
		if err := s.purgeCollection(ctx, userID); err != nil {
			return err
		}
	}

	accepted, err := s.store.AcceptShare(ctx, invite.ID, userID, s.now())
	if err != nil {
		return err
	}
	if !accepted {
		// Lost the race against another acceptor of the same code.
		return ErrCodeAlreadyUsed
	}
	return nil
}

// purgeCollection deletes the user's entries and then prunes any alcohols
// nobody else references. Entry deletion failures are fatal; orphan pruning
// only leaves harmless catalog rows behind, so its failures are logged and
// swallowed.
func (s *Service) purgeCollection(ctx context.Context, userID string) error {
	mine, err := s.store.AlcoholIDsForUser(ctx, userID)
	if err != nil {
		return errors.Join(ErrPurgeCollection, err)
	}
	if err := s.store.DeleteEntriesForUser(ctx, userID); err != nil {
		return errors.Join(ErrPurgeCollection, err)
	}
	if len(mine) == 0 {
		return nil
	}

	used, err := s.store.AlcoholIDsUsedByOthers(ctx, userID, mine)
	if err != nil {
		s.log.Warn("orphan alcohol lookup failed", logger.String("user_id", userID), logger.Error(err))
		return nil
	}
	inUse := make(map[string]struct{}, len(used))
	for _, id := range used {
		inUse[id] = struct{}{}
	}
	var orphans []string
	for _, id := range mine {
		if _, ok := inUse[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) == 0 {
		return nil
	}
	if err := s.store.DeleteAlcohols(ctx, orphans); err != nil {
		s.log.Warn("orphan alcohol cleanup failed",
			logger.String("user_id", userID),
			logger.Int("orphans", len(orphans)),
			logger.Error(err))
	}
	return nil
}

// SharesAndFriends returns the caller's open invite and their friend list,
// each accepted share mapped to the other party's profile.
func (s *Service) SharesAndFriends(ctx context.Context, userID string) (*Overview, error) {
	out := &Overview{Friends: []Friend{}}

	invite, err := s.store.OpenInvite(ctx, userID)
	switch {
	case err == nil:
		out.CurrentInvite = invite
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	shares, err := s.store.AcceptedSharesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, sh := range shares {
		var other *models.Profile
		var otherID string
		if sh.OwnerID == userID {
			other = sh.SharedWith
			if sh.SharedWithID != nil {
				otherID = *sh.SharedWithID
			}
		} else {
			other = sh.Owner
			otherID = sh.OwnerID
		}
		f := Friend{ID: otherID, ShareID: sh.ID}
		if other != nil {
			f.ID = other.ID
			f.DisplayName = other.DisplayName
			f.AvatarURL = other.AvatarURL
		}
		since := sh.CreatedAt
		if sh.AcceptedAt != nil {
			since = *sh.AcceptedAt
		}
		f.Since = since.UTC().Format(time.RFC3339)
		out.Friends = append(out.Friends, f)
	}
	return out, nil
}

// RemoveFriend dissolves an accepted share. Either party may do so
// unilaterally.
func (s *Service) RemoveFriend(ctx context.Context, shareID, userID string) error {
	ok, err := s.store.DeleteAcceptedShare(ctx, shareID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrShareNotFound
	}
	return nil
}

// DeleteInvite removes one of the caller's own share rows, any status.
func (s *Service) DeleteInvite(ctx context.Context, shareID, ownerID string) error {
	ok, err := s.store.DeleteShareByOwner(ctx, shareID, ownerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrShareNotFound
	}
	return nil
}
