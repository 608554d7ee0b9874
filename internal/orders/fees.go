package orders

import (
	"github.com/shopspring/decimal"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// PaymentInfo is the slice of an order the fee calculator reads.
type PaymentInfo struct {
	DepositStatus   enums.PaymentStatus
	DepositAmount   int64
	RemainingStatus enums.PaymentStatus
	RemainingAmount int64
}

// FeeInput carries everything ComputeFee needs. Zero values are valid.
type FeeInput struct {
	Status        enums.OrderStatus
	FinalAmount   int64
	Payment       PaymentInfo
	FeePercentage decimal.NullDecimal
}

// FeeBreakdown is the derived commission split of an order.
type FeeBreakdown struct {
	AmountPaid          int64 `json:"amount_paid"`
	PlatformFeeAmount   int64 `json:"platform_fee_amount"`
	PhotographerEarning int64 `json:"photographer_earning"`
}

// AmountPaid sums the payment stages that were approved.
func AmountPaid(p PaymentInfo) int64 {
	var paid int64
	if p.DepositStatus == enums.PaymentStatusPaid {
		paid += p.DepositAmount
	}
	if p.RemainingStatus == enums.PaymentStatusPaid {
		paid += p.RemainingAmount
	}
	return paid
}

// ComputeFee derives the platform commission and the photographer's earning.
// A cancelled order carries no fee. It never fails.
func ComputeFee(in FeeInput) FeeBreakdown {
	paid := AmountPaid(in.Payment)

	var fee int64
	if in.Status != enums.OrderStatusCancelled && in.FeePercentage.Valid && in.FeePercentage.Decimal.IsPositive() {
		fee = decimal.NewFromInt(paid).
			Mul(in.FeePercentage.Decimal).
			Div(hundred).
			Round(0).
			IntPart()
	}

	earning := in.FinalAmount - fee
	if earning < 0 {
		earning = 0
	}
	return FeeBreakdown{
		AmountPaid:          paid,
		PlatformFeeAmount:   fee,
		PhotographerEarning: earning,
	}
}

// DepositFor returns round(final * percent / 100).
func DepositFor(finalAmount int64, percent int) int64 {
	if finalAmount <= 0 || percent <= 0 {
		return 0
	}
	return decimal.NewFromInt(finalAmount).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(hundred).
		Round(0).
		IntPart()
}

func paymentInfoOf(order *models.Order) PaymentInfo {
	return PaymentInfo{
		DepositStatus:   order.DepositStatus,
		DepositAmount:   order.DepositAmount,
		RemainingStatus: order.RemainingStatus,
		RemainingAmount: order.RemainingAmount,
	}
}

// FeeForOrder evaluates ComputeFee against a persisted order.
func FeeForOrder(order *models.Order) FeeBreakdown {
	if order == nil {
		return FeeBreakdown{}
	}
	return ComputeFee(FeeInput{
		Status:        order.Status,
		FinalAmount:   order.FinalAmount,
		Payment:       paymentInfoOf(order),
		FeePercentage: order.PlatformFeePercentage,
	})
}

// EarningOf returns the stored photographer earning, deriving it when absent.
func EarningOf(order *models.Order) int64 {
	if order == nil {
		return 0
	}
	if order.PhotographerEarning != nil {
		return *order.PhotographerEarning
	}
	earning := order.FinalAmount - order.PlatformFeeAmount
	if earning < 0 {
		return 0
	}
	return earning
}
