package orders

import (
	"fmt"

	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

type edgeKey struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

// transitions lists every legal edge and the roles allowed to request it.
// refund_pending, completed and cancelled have no outgoing edges.
var transitions = map[edgeKey][]enums.Role{
	{enums.OrderStatusPendingPayment, enums.OrderStatusPending}:   {enums.RoleCustomer},
	{enums.OrderStatusPendingPayment, enums.OrderStatusCancelled}: {enums.RoleCustomer, enums.RoleAdmin, enums.RoleSystem},

	{enums.OrderStatusPending, enums.OrderStatusConfirmed}:      {enums.RoleAdmin, enums.RolePhotographer},
	{enums.OrderStatusPending, enums.OrderStatusPendingPayment}: {enums.RoleAdmin},
	{enums.OrderStatusPending, enums.OrderStatusRefundPending}:  {enums.RoleCustomer},

	{enums.OrderStatusConfirmed, enums.OrderStatusInProgress}: {enums.RolePhotographer, enums.RoleAdmin},
	{enums.OrderStatusConfirmed, enums.OrderStatusCancelled}:  {enums.RoleCustomer, enums.RoleAdmin},

	{enums.OrderStatusInProgress, enums.OrderStatusWaitingFinalPayment}: {enums.RolePhotographer, enums.RoleAdmin},
	{enums.OrderStatusInProgress, enums.OrderStatusFinalPaymentPending}: {enums.RoleCustomer},

	{enums.OrderStatusWaitingFinalPayment, enums.OrderStatusFinalPaymentPending}: {enums.RoleCustomer},

	{enums.OrderStatusFinalPaymentPending, enums.OrderStatusProcessing}:          {enums.RoleAdmin},
	{enums.OrderStatusFinalPaymentPending, enums.OrderStatusWaitingFinalPayment}: {enums.RoleAdmin},

	{enums.OrderStatusProcessing, enums.OrderStatusDelivered}:     {enums.RolePhotographer, enums.RoleSystem},
	{enums.OrderStatusProcessing, enums.OrderStatusCompleted}:     {enums.RoleAdmin, enums.RoleSystem},
	{enums.OrderStatusProcessing, enums.OrderStatusRefundPending}: {enums.RoleAdmin, enums.RoleSystem},

	{enums.OrderStatusDelivered, enums.OrderStatusCompleted}:     {enums.RoleCustomer, enums.RoleAdmin, enums.RoleSystem},
	{enums.OrderStatusDelivered, enums.OrderStatusRefundPending}: {enums.RoleAdmin, enums.RoleSystem},
}

// CanTransition reports whether the edge exists regardless of who asks.
func CanTransition(from, to enums.OrderStatus) bool {
	_, ok := transitions[edgeKey{from, to}]
	return ok
}

// CheckTransition validates an edge for a role. A missing edge is an
// INVALID_TRANSITION; an edge the role may not take is FORBIDDEN.
func CheckTransition(from, to enums.OrderStatus, role enums.Role) error {
	roles, ok := transitions[edgeKey{from, to}]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move order from %s to %s", from, to)).
			WithDetails(map[string]any{"from": from, "to": to})
	}
	for _, allowed := range roles {
		if allowed == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden,
		fmt.Sprintf("%s may not move order from %s to %s", role, from, to))
}

// NextStatuses lists the targets reachable from from by role, in table order.
func NextStatuses(from enums.OrderStatus, role enums.Role) []enums.OrderStatus {
	out := []enums.OrderStatus{}
	for _, to := range orderedStatuses {
		if CheckTransition(from, to, role) == nil {
			out = append(out, to)
		}
	}
	return out
}

var orderedStatuses = []enums.OrderStatus{
	enums.OrderStatusPendingPayment,
	enums.OrderStatusPending,
	enums.OrderStatusConfirmed,
	enums.OrderStatusInProgress,
	enums.OrderStatusWaitingFinalPayment,
	enums.OrderStatusFinalPaymentPending,
	enums.OrderStatusProcessing,
	enums.OrderStatusDelivered,
	enums.OrderStatusCompleted,
	enums.OrderStatusCancelled,
	enums.OrderStatusRefundPending,
}
