package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// OutboxDLQ keeps a copy of an outbox event the publisher stopped retrying.
// EventID is the outbox row id and is unique.
type OutboxDLQ struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID                 `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	Topic         *string                   `gorm:"column:topic"`
	Payload       json.RawMessage           `gorm:"column:payload_json;type:jsonb;not null"`

	ErrorReason  enums.OutboxDLQErrorReason `gorm:"column:error_reason;type:text;not null"`
	ErrorMessage *string                    `gorm:"column:error_message"`
	AttemptCount int                        `gorm:"column:attempt_count;not null;default:0"`
	FailedAt     time.Time                  `gorm:"column:failed_at;autoCreateTime"`
	CreatedAt    time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

func (OutboxDLQ) TableName() string { return "outbox_dlq" }
