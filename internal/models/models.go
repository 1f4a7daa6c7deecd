package models

import (
	"time"

	"gorm.io/datatypes"
)

// ShareStatus tracks the lifecycle of a ShelfShare row.
// pending -> accepted is the only permitted transition; removal is deletion.
type ShareStatus string

const (
	ShareStatusPending  ShareStatus = "pending"
	ShareStatusAccepted ShareStatus = "accepted"
	ShareStatusRejected ShareStatus = "rejected"
)

// Profile mirrors the identity provider's user record 1:1. Rows are created
// by the provider's user hook; this service only reads them.
type Profile struct {
	ID          string  `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// Alcohol is a canonical catalog row, created the first time any user logs a
// bottle. It is shared by every CollectionEntry referencing it and deleted
// only once orphaned.
type Alcohol struct {
	ID        string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Name              string         `gorm:"not null" json:"name"`
	Type              string         `gorm:"not null;index" json:"type"`
	Subtype           *string        `json:"subtype"`
	Brand             *string        `json:"brand"`
	Producer          *string        `json:"producer"`
	OriginCountry     *string        `json:"origin_country"`
	OriginRegion      *string        `json:"origin_region"`
	AlcoholPercentage *float64       `json:"alcohol_percentage"`
	PriceRange        *string        `json:"price_range"`
	Characteristics   []string       `gorm:"type:jsonb;serializer:json" json:"characteristics"`
	RawAIResponse     datatypes.JSON `gorm:"type:jsonb" json:"-"`
}

// CollectionEntry is one user's personal record of a bottle. Owned
// exclusively by UserID.
type CollectionEntry struct {
	ID        string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID       string     `gorm:"type:uuid;not null;index" json:"user_id"`
	AlcoholID    string     `gorm:"type:uuid;not null;index" json:"alcohol_id"`
	PhotoURL     *string    `json:"photo_url"`
	DrinkingDate *time.Time `gorm:"type:date" json:"drinking_date"`
	Rating       int        `gorm:"not null" json:"rating"`
	Memo         *string    `json:"memo"`

	Alcohol *Alcohol `gorm:"foreignKey:AlcoholID" json:"alcohol,omitempty"`
	User    *Profile `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// ShelfShare is both an invite token and, once accepted, a friendship.
// Invariants:
//   - at most one open invite (pending, shared_with_id null) per owner
//   - invite_code unique while present
//   - owner_id never equals shared_with_id
type ShelfShare struct {
	ID        string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OwnerID      string      `gorm:"type:uuid;not null;index" json:"owner_id"`
	SharedWithID *string     `gorm:"type:uuid;index" json:"shared_with_id"`
	InviteCode   *string     `gorm:"uniqueIndex" json:"invite_code"`
	Status       ShareStatus `gorm:"type:text;not null;default:pending" json:"status"`
	AcceptedAt   *time.Time  `json:"accepted_at"`

	Owner      *Profile `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	SharedWith *Profile `gorm:"foreignKey:SharedWithID" json:"shared_with,omitempty"`
}

// Open reports whether the share is an unclaimed invite.
func (s *ShelfShare) Open() bool {
	return s.Status == ShareStatusPending && s.SharedWithID == nil
}
