package enums

import "slices"

type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusOnTime  DeliveryStatus = "on_time"
	DeliveryStatusLate    DeliveryStatus = "late"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusOnTime,
	DeliveryStatusLate,
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool { return slices.Contains(validDeliveryStatuses, d) }

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	return parseEnum(validDeliveryStatuses, value, "delivery status")
}
