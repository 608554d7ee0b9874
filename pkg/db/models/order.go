package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/types"
)

// Order is a booking of a service package by a customer.
type Order struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderCode        string     `gorm:"column:order_code;not null;uniqueIndex"`
	CustomerID       uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;index"`
	PhotographerID   *uuid.UUID `gorm:"column:photographer_id;type:uuid;index"`
	ServicePackageID uuid.UUID  `gorm:"column:service_package_id;type:uuid;not null"`

	ServiceAmount         int64               `gorm:"column:service_amount;not null"`
	TravelFeeAmount       int64               `gorm:"column:travel_fee_amount;not null;default:0"`
	DiscountAmount        int64               `gorm:"column:discount_amount;not null;default:0"`
	TotalAmount           int64               `gorm:"column:total_amount;not null"`
	FinalAmount           int64               `gorm:"column:final_amount;not null"`
	DepositRequired       int64               `gorm:"column:deposit_required;not null"`
	PlatformFeePercentage decimal.NullDecimal `gorm:"column:platform_fee_percentage;type:numeric(5,2)"`
	PlatformFeeAmount     int64               `gorm:"column:platform_fee_amount;not null;default:0"`
	PhotographerEarning   *int64              `gorm:"column:photographer_earning"`

	BookingDate  time.Time      `gorm:"column:booking_date;type:date;not null"`
	StartTime    string         `gorm:"column:start_time;not null"`
	BookingStart time.Time      `gorm:"column:booking_start;not null"`
	BookingEnd   time.Time      `gorm:"column:booking_end;not null"`
	Location     types.Location `gorm:"column:location;type:jsonb;serializer:json"`
	CustomerNote *string        `gorm:"column:customer_note"`

	Status enums.OrderStatus `gorm:"column:status;type:order_status;not null"`

	TransferCode      string              `gorm:"column:transfer_code;not null;uniqueIndex"`
	DepositStatus     enums.PaymentStatus `gorm:"column:deposit_status;type:payment_status;not null"`
	DepositAmount     int64               `gorm:"column:deposit_amount;not null"`
	DepositProofURL   *string             `gorm:"column:deposit_proof_url"`
	DepositPaidAt     *time.Time          `gorm:"column:deposit_paid_at"`
	RemainingStatus   enums.PaymentStatus `gorm:"column:remaining_status;type:payment_status;not null"`
	RemainingAmount   int64               `gorm:"column:remaining_amount;not null"`
	RemainingProofURL *string             `gorm:"column:remaining_proof_url"`
	RemainingPaidAt   *time.Time          `gorm:"column:remaining_paid_at"`

	DeliveryDeadline *time.Time           `gorm:"column:delivery_deadline"`
	DeliveredAt      *time.Time           `gorm:"column:delivered_at"`
	DeliveryStatus   enums.DeliveryStatus `gorm:"column:delivery_status;type:delivery_status;not null;default:'pending'"`

	CompletedAt   *time.Time `gorm:"column:completed_at"`
	CancelledAt   *time.Time `gorm:"column:cancelled_at"`
	ReviewRating  *int       `gorm:"column:review_rating"`
	ReviewComment *string    `gorm:"column:review_comment"`

	SettlementStatus enums.SettlementStatus `gorm:"column:settlement_status;type:settlement_status;not null;default:'unpaid'"`
	SettledAt        *time.Time             `gorm:"column:settled_at"`
	SettledBy        *uuid.UUID             `gorm:"column:settled_by;type:uuid"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderStatusHistory is one append-only audit row per committed transition.
type OrderStatusHistory struct {
	ID         uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus *enums.OrderStatus `gorm:"column:from_status;type:order_status"`
	Status     enums.OrderStatus  `gorm:"column:status;type:order_status;not null"`
	Note       *string            `gorm:"column:note"`
	ChangedBy  *uuid.UUID         `gorm:"column:changed_by;type:uuid"`
	ActorRole  enums.Role         `gorm:"column:actor_role;type:user_role;not null"`
	ChangedAt  time.Time          `gorm:"column:changed_at;not null"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
