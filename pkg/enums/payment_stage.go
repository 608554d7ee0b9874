package enums

import "slices"

// PaymentStage selects which instalment a payment proof or QR refers to.
type PaymentStage string

const (
	PaymentStageDeposit   PaymentStage = "deposit"
	PaymentStageRemaining PaymentStage = "remaining"
)

var validPaymentStages = []PaymentStage{
	PaymentStageDeposit,
	PaymentStageRemaining,
}

// IsValid reports whether the value is a known PaymentStage.
func (p PaymentStage) IsValid() bool { return slices.Contains(validPaymentStages, p) }

// ParsePaymentStage converts raw input into a PaymentStage.
func ParsePaymentStage(value string) (PaymentStage, error) {
	return parseEnum(validPaymentStages, value, "payment stage")
}
