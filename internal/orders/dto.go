package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/types"
)

// CreateOrderInput is the customer checkout request.
type CreateOrderInput struct {
	CustomerID       uuid.UUID
	ServicePackageID uuid.UUID
	BookingDate      time.Time
	StartTime        string
	Location         types.Location
	DiscountAmount   int64
	CustomerNote     *string
	// EstimatedDurationDays overrides the default shoot length when positive.
	EstimatedDurationDays int
}

// TransitionInput is the generic status change request.
type TransitionInput struct {
	OrderID         uuid.UUID
	RequestedStatus enums.OrderStatus
	Note            string
	ProofURL        string
	ReviewRating    *int
	ReviewComment   *string
}

// PaymentView groups the transfer details of an order.
type PaymentView struct {
	TransferCode      string              `json:"transfer_code"`
	DepositStatus     enums.PaymentStatus `json:"deposit_status"`
	DepositAmount     int64               `json:"deposit_amount"`
	DepositProofURL   *string             `json:"deposit_proof_url,omitempty"`
	DepositPaidAt     *time.Time          `json:"deposit_paid_at,omitempty"`
	RemainingStatus   enums.PaymentStatus `json:"remaining_status"`
	RemainingAmount   int64               `json:"remaining_amount"`
	RemainingProofURL *string             `json:"remaining_proof_url,omitempty"`
	RemainingPaidAt   *time.Time          `json:"remaining_paid_at,omitempty"`
}

// DeliveryView groups the delivery tracking fields of an order.
type DeliveryView struct {
	Deadline    *time.Time           `json:"deadline,omitempty"`
	DeliveredAt *time.Time           `json:"delivered_at,omitempty"`
	Status      enums.DeliveryStatus `json:"status"`
}

// OrderView is the API projection of an order with derived fee fields.
type OrderView struct {
	ID                    uuid.UUID              `json:"id"`
	OrderCode             string                 `json:"order_code"`
	CustomerID            uuid.UUID              `json:"customer_id"`
	PhotographerID        *uuid.UUID             `json:"photographer_id,omitempty"`
	ServicePackageID      uuid.UUID              `json:"service_package_id"`
	ServiceAmount         int64                  `json:"service_amount"`
	TravelFeeAmount       int64                  `json:"travel_fee_amount"`
	DiscountAmount        int64                  `json:"discount_amount"`
	TotalAmount           int64                  `json:"total_amount"`
	FinalAmount           int64                  `json:"final_amount"`
	DepositRequired       int64                  `json:"deposit_required"`
	AmountPaid            int64                  `json:"amount_paid"`
	PlatformFeePercentage decimal.NullDecimal    `json:"platform_fee_percentage"`
	PlatformFeeAmount     int64                  `json:"platform_fee_amount"`
	PhotographerEarning   int64                  `json:"photographer_earning"`
	BookingDate           string                 `json:"booking_date"`
	StartTime             string                 `json:"start_time"`
	BookingStart          time.Time              `json:"booking_start"`
	BookingEnd            time.Time              `json:"booking_end"`
	Location              types.Location         `json:"location"`
	CustomerNote          *string                `json:"customer_note,omitempty"`
	Status                enums.OrderStatus      `json:"status"`
	Payment               PaymentView            `json:"payment"`
	Delivery              DeliveryView           `json:"delivery"`
	CompletedAt           *time.Time             `json:"completed_at,omitempty"`
	CancelledAt           *time.Time             `json:"cancelled_at,omitempty"`
	ReviewRating          *int                   `json:"review_rating,omitempty"`
	ReviewComment         *string                `json:"review_comment,omitempty"`
	SettlementStatus      enums.SettlementStatus `json:"settlement_status"`
	SettledAt             *time.Time             `json:"settled_at,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

// HistoryEntry is one row of an order's audit trail.
type HistoryEntry struct {
	FromStatus *enums.OrderStatus `json:"from_status,omitempty"`
	Status     enums.OrderStatus  `json:"status"`
	Note       *string            `json:"note,omitempty"`
	ChangedBy  *uuid.UUID         `json:"changed_by,omitempty"`
	ActorRole  enums.Role         `json:"actor_role"`
	ChangedAt  time.Time          `json:"changed_at"`
}

// ToView projects an order. Completed orders report the persisted fee, others
// the fee their current payments would yield.
func ToView(order *models.Order) OrderView {
	breakdown := FeeForOrder(order)
	fee, earning := breakdown.PlatformFeeAmount, breakdown.PhotographerEarning
	if order.Status == enums.OrderStatusCompleted {
		fee, earning = order.PlatformFeeAmount, EarningOf(order)
	}
	return OrderView{
		ID:                    order.ID,
		OrderCode:             order.OrderCode,
		CustomerID:            order.CustomerID,
		PhotographerID:        order.PhotographerID,
		ServicePackageID:      order.ServicePackageID,
		ServiceAmount:         order.ServiceAmount,
		TravelFeeAmount:       order.TravelFeeAmount,
		DiscountAmount:        order.DiscountAmount,
		TotalAmount:           order.TotalAmount,
		FinalAmount:           order.FinalAmount,
		DepositRequired:       order.DepositRequired,
		AmountPaid:            breakdown.AmountPaid,
		PlatformFeePercentage: order.PlatformFeePercentage,
		PlatformFeeAmount:     fee,
		PhotographerEarning:   earning,
		BookingDate:           order.BookingDate.Format(dateLayout),
		StartTime:             order.StartTime,
		BookingStart:          order.BookingStart,
		BookingEnd:            order.BookingEnd,
		Location:              order.Location,
		CustomerNote:          order.CustomerNote,
		Status:                order.Status,
		Payment: PaymentView{
			TransferCode:      order.TransferCode,
			DepositStatus:     order.DepositStatus,
			DepositAmount:     order.DepositAmount,
			DepositProofURL:   order.DepositProofURL,
			DepositPaidAt:     order.DepositPaidAt,
			RemainingStatus:   order.RemainingStatus,
			RemainingAmount:   order.RemainingAmount,
			RemainingProofURL: order.RemainingProofURL,
			RemainingPaidAt:   order.RemainingPaidAt,
		},
		Delivery: DeliveryView{
			Deadline:    order.DeliveryDeadline,
			DeliveredAt: order.DeliveredAt,
			Status:      order.DeliveryStatus,
		},
		CompletedAt:      order.CompletedAt,
		CancelledAt:      order.CancelledAt,
		ReviewRating:     order.ReviewRating,
		ReviewComment:    order.ReviewComment,
		SettlementStatus: order.SettlementStatus,
		SettledAt:        order.SettledAt,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

func toHistory(rows []models.OrderStatusHistory) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistoryEntry{
			FromStatus: row.FromStatus,
			Status:     row.Status,
			Note:       row.Note,
			ChangedBy:  row.ChangedBy,
			ActorRole:  row.ActorRole,
			ChangedAt:  row.ChangedAt,
		})
	}
	return out
}
