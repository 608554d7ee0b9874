package enums

import "slices"

// SettlementStatus records whether a completed order has been paid out to its photographer.
type SettlementStatus string

const (
	SettlementStatusUnpaid SettlementStatus = "unpaid"
	SettlementStatusPaid   SettlementStatus = "paid"
)

var validSettlementStatuses = []SettlementStatus{
	SettlementStatusUnpaid,
	SettlementStatusPaid,
}

func (s SettlementStatus) String() string { return string(s) }

// IsValid reports whether the value is a known SettlementStatus.
func (s SettlementStatus) IsValid() bool { return slices.Contains(validSettlementStatuses, s) }

// ParseSettlementStatus converts raw input into a SettlementStatus.
func ParseSettlementStatus(value string) (SettlementStatus, error) {
	return parseEnum(validSettlementStatuses, value, "settlement status")
}
