package enums

import "slices"

// SettlementFilter narrows settlement listings.
type SettlementFilter string

const (
	SettlementFilterUnsettled SettlementFilter = "unsettled"
	SettlementFilterSettled   SettlementFilter = "settled"
	SettlementFilterAll       SettlementFilter = "all"
)

var validSettlementFilters = []SettlementFilter{
	SettlementFilterUnsettled,
	SettlementFilterSettled,
	SettlementFilterAll,
}

// IsValid reports whether the value is a known SettlementFilter.
func (s SettlementFilter) IsValid() bool { return slices.Contains(validSettlementFilters, s) }

// ParseSettlementFilter converts raw input into a SettlementFilter.
func ParseSettlementFilter(value string) (SettlementFilter, error) {
	return parseEnum(validSettlementFilters, value, "settlement filter")
}
