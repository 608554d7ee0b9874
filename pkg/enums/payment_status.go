package enums

import "slices"

// PaymentStatus tracks one payment stage (deposit or remaining) of an order.
type PaymentStatus string

const (
	PaymentStatusUnpaid    PaymentStatus = "unpaid"
	PaymentStatusSubmitted PaymentStatus = "submitted"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusUnpaid,
	PaymentStatusSubmitted,
	PaymentStatusPaid,
	PaymentStatusRejected,
}

func (p PaymentStatus) String() string { return string(p) }

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool { return slices.Contains(validPaymentStatuses, p) }

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parseEnum(validPaymentStatuses, value, "payment status")
}
