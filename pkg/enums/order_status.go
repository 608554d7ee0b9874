package enums

import "slices"

// OrderStatus tracks the booking lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPendingPayment      OrderStatus = "pending_payment"
	OrderStatusPending             OrderStatus = "pending"
	OrderStatusConfirmed           OrderStatus = "confirmed"
	OrderStatusInProgress          OrderStatus = "in_progress"
	OrderStatusWaitingFinalPayment OrderStatus = "waiting_final_payment"
	OrderStatusFinalPaymentPending OrderStatus = "final_payment_pending"
	OrderStatusProcessing          OrderStatus = "processing"
	OrderStatusDelivered           OrderStatus = "delivered"
	OrderStatusCompleted           OrderStatus = "completed"
	OrderStatusCancelled           OrderStatus = "cancelled"
	OrderStatusRefundPending       OrderStatus = "refund_pending"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusInProgress,
	OrderStatusWaitingFinalPayment,
	OrderStatusFinalPaymentPending,
	OrderStatusProcessing,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRefundPending,
}

func (o OrderStatus) String() string { return string(o) }

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool { return slices.Contains(validOrderStatuses, o) }

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parseEnum(validOrderStatuses, value, "order status")
}

// IsTerminal reports whether no further transition may leave the status.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCompleted || o == OrderStatusCancelled
}
