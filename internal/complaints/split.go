package complaints

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Validate checks the resolution without touching any state.
func (r ManualResolution) Validate() error {
	if r.RefundPercent.IsNegative() || r.PhotographerPercent.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentages must not be negative")
	}
	if sum := r.RefundPercent.Add(r.PhotographerPercent); sum.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund and photographer percentages exceed 100").
			WithDetails(map[string]any{"sum": sum.String()})
	}
	if strings.TrimSpace(r.RefundProofURL) == "" || strings.TrimSpace(r.PayoutProofURL) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund and payout proofs are both required")
	}
	return nil
}

// PlatformPercent is the share left after the refund and the payout.
func (r ManualResolution) PlatformPercent() decimal.Decimal {
	return hundred.Sub(r.RefundPercent).Sub(r.PhotographerPercent)
}

// SplitAmount divides disputed by the resolution percentages. Rounding
// remainders stay with the platform so the three parts always add up.
func SplitAmount(disputed int64, r ManualResolution) Split {
	if disputed <= 0 {
		return Split{}
	}
	base := decimal.NewFromInt(disputed)
	refund := base.Mul(r.RefundPercent).Div(hundred).Round(0).IntPart()
	payout := base.Mul(r.PhotographerPercent).Div(hundred).Round(0).IntPart()
	if refund+payout > disputed {
		payout = disputed - refund
	}
	return Split{
		Disputed:     disputed,
		Refund:       refund,
		Photographer: payout,
		Platform:     disputed - refund - payout,
	}
}
