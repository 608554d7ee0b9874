package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/internal/orders"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// View is a completed order seen from the payout desk.
type View struct {
	OrderID             uuid.UUID              `json:"order_id"`
	OrderCode           string                 `json:"order_code"`
	TransferCode        string                 `json:"transfer_code"`
	CustomerID          uuid.UUID              `json:"customer_id"`
	PhotographerID      *uuid.UUID             `json:"photographer_id,omitempty"`
	FinalAmount         int64                  `json:"final_amount"`
	PlatformFeeAmount   int64                  `json:"platform_fee_amount"`
	PhotographerEarning int64                  `json:"photographer_earning"`
	CompletedAt         *time.Time             `json:"completed_at,omitempty"`
	SettlementStatus    enums.SettlementStatus `json:"settlement_status"`
	SettledAt           *time.Time             `json:"settled_at,omitempty"`
	SettledBy           *uuid.UUID             `json:"settled_by,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
}

// Summary compares outstanding payouts with paid ones.
type Summary struct {
	PendingCount  int64 `json:"pending_count"`
	PendingAmount int64 `json:"pending_amount"`
	PaidCount     int64 `json:"paid_count"`
	PaidAmount    int64 `json:"paid_amount"`
}

func toView(order *models.Order) View {
	return View{
		OrderID:             order.ID,
		OrderCode:           order.OrderCode,
		TransferCode:        order.TransferCode,
		CustomerID:          order.CustomerID,
		PhotographerID:      order.PhotographerID,
		FinalAmount:         order.FinalAmount,
		PlatformFeeAmount:   order.PlatformFeeAmount,
		PhotographerEarning: orders.EarningOf(order),
		CompletedAt:         order.CompletedAt,
		SettlementStatus:    order.SettlementStatus,
		SettledAt:           order.SettledAt,
		SettledBy:           order.SettledBy,
		CreatedAt:           order.CreatedAt,
	}
}

func summarize(rows []StatusTotal) Summary {
	var out Summary
	for _, row := range rows {
		if row.SettlementStatus == enums.SettlementStatusPaid {
			out.PaidCount += row.Count
			out.PaidAmount += row.Amount
			continue
		}
		out.PendingCount += row.Count
		out.PendingAmount += row.Amount
	}
	return out
}
