package enums

import "slices"

// LedgerEventType maps to the ledger_event_type enum in Postgres.
type LedgerEventType string

const (
	LedgerEventTypePhotographerPayout LedgerEventType = "photographer_payout"
	LedgerEventTypeCustomerRefund     LedgerEventType = "customer_refund"
	LedgerEventTypePlatformRetained   LedgerEventType = "platform_retained"
	LedgerEventTypeDepositForfeited   LedgerEventType = "deposit_forfeited"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypePhotographerPayout,
	LedgerEventTypeCustomerRefund,
	LedgerEventTypePlatformRetained,
	LedgerEventTypeDepositForfeited,
}

// IsValid reports whether the value is a known LedgerEventType.
func (l LedgerEventType) IsValid() bool { return slices.Contains(validLedgerEventTypes, l) }

// ParseLedgerEventType converts raw input into a LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	return parseEnum(validLedgerEventTypes, value, "ledger event type")
}
