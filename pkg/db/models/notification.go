package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// Notification is one in-app message for a single user. EventID links it to
// the domain event that produced it; (user_id, event_id) is unique.
type Notification struct {
	ID      uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_notifications_user_created,priority:1"`
	EventID *uuid.UUID `gorm:"type:uuid"`

	Type    enums.NotificationType `gorm:"type:notification_type;not null"`
	Title   string                 `gorm:"type:text;not null"`
	Message string                 `gorm:"type:text;not null"`
	Link    *string                `gorm:"type:text"`

	ReadAt    *time.Time `gorm:"type:timestamptz"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index:idx_notifications_user_created,priority:2,sort:desc"`
}

func (Notification) TableName() string { return "notifications" }

// Unread reports whether the user has not opened the notification yet.
func (n Notification) Unread() bool { return n.ReadAt == nil }
