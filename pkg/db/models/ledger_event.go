package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// LedgerEvent is one append-only money movement. Amount is in the smallest
// currency unit and never negative; the Type carries the direction.
type LedgerEvent struct {
	ID      uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID             `gorm:"type:uuid;not null;index"`
	Type    enums.LedgerEventType `gorm:"type:ledger_event_type;not null"`
	Amount  int64                 `gorm:"not null;check:amount >= 0"`

	// ComplaintID is set for rows written by a complaint resolution.
	ComplaintID *uuid.UUID `gorm:"type:uuid"`
	ActorUserID *uuid.UUID `gorm:"type:uuid"`

	Metadata  json.RawMessage `gorm:"type:jsonb"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (LedgerEvent) TableName() string { return "ledger_events" }
