package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// Album groups the raw and edited photos of an order or a freelance job.
type Album struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        *uuid.UUID        `gorm:"column:order_id;type:uuid;uniqueIndex"`
	PhotographerID uuid.UUID         `gorm:"column:photographer_id;type:uuid;not null;index"`
	CustomerID     *uuid.UUID        `gorm:"column:customer_id;type:uuid;index"`
	ClientName     *string           `gorm:"column:client_name"`
	ClientContact  *string           `gorm:"column:client_contact"`
	Type           enums.AlbumType   `gorm:"column:type;type:album_type;not null"`
	Title          string            `gorm:"column:title;not null"`
	Description    *string           `gorm:"column:description"`
	MaxSelection   int               `gorm:"column:max_selection;not null"`
	Status         enums.AlbumStatus `gorm:"column:status;type:album_status;not null"`
	ShareToken     *string           `gorm:"column:share_token;uniqueIndex"`
	FinalizedAt    *time.Time        `gorm:"column:finalized_at"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Photos []AlbumPhoto `gorm:"foreignKey:AlbumID;constraint:OnDelete:CASCADE"`
}

// AlbumPhoto is either a raw upload (selectable) or an edited deliverable.
type AlbumPhoto struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AlbumID      uuid.UUID       `gorm:"column:album_id;type:uuid;not null;index"`
	Kind         enums.PhotoKind `gorm:"column:kind;type:photo_kind;not null"`
	URL          string          `gorm:"column:url;not null"`
	Filename     string          `gorm:"column:filename;not null"`
	IsSelected   bool            `gorm:"column:is_selected;not null;default:false"`
	CustomerNote *string         `gorm:"column:customer_note"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
