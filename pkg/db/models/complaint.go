package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// Complaint is a customer dispute raised against a delivered (or overdue) order.
type Complaint struct {
	ID             uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	CustomerID     uuid.UUID             `gorm:"column:customer_id;type:uuid;not null;index"`
	PhotographerID *uuid.UUID            `gorm:"column:photographer_id;type:uuid"`
	Reason         string                `gorm:"column:reason;not null"`
	EvidenceURLs   pq.StringArray        `gorm:"column:evidence_urls;type:text[]"`
	Status         enums.ComplaintStatus `gorm:"column:status;type:complaint_status;not null"`
	AdminResponse  *string               `gorm:"column:admin_response"`

	RefundPercent       decimal.NullDecimal `gorm:"column:refund_percent;type:numeric(5,2)"`
	PhotographerPercent decimal.NullDecimal `gorm:"column:photographer_percent;type:numeric(5,2)"`
	PlatformPercent     decimal.NullDecimal `gorm:"column:platform_percent;type:numeric(5,2)"`
	DisputedAmount      int64               `gorm:"column:disputed_amount;not null;default:0"`
	RefundAmount        int64               `gorm:"column:refund_amount;not null;default:0"`
	PhotographerAmount  int64               `gorm:"column:photographer_amount;not null;default:0"`
	PlatformAmount      int64               `gorm:"column:platform_amount;not null;default:0"`
	RefundProofURL      *string             `gorm:"column:refund_proof_url"`
	PayoutProofURL      *string             `gorm:"column:payout_proof_url"`

	ResolvedBy *uuid.UUID `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt *time.Time `gorm:"column:resolved_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
