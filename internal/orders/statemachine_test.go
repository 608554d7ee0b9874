package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

func TestCheckTransitionHappyPath(t *testing.T) {
	path := []struct {
		to   enums.OrderStatus
		role enums.Role
	}{
		{enums.OrderStatusPending, enums.RoleCustomer},
		{enums.OrderStatusConfirmed, enums.RoleAdmin},
		{enums.OrderStatusInProgress, enums.RolePhotographer},
		{enums.OrderStatusWaitingFinalPayment, enums.RolePhotographer},
		{enums.OrderStatusFinalPaymentPending, enums.RoleCustomer},
		{enums.OrderStatusProcessing, enums.RoleAdmin},
		{enums.OrderStatusDelivered, enums.RolePhotographer},
		{enums.OrderStatusCompleted, enums.RoleCustomer},
	}
	from := enums.OrderStatusPendingPayment
	for _, step := range path {
		require.NoError(t, CheckTransition(from, step.to, step.role), "%s -> %s", from, step.to)
		from = step.to
	}
}

func TestCheckTransitionMissingEdge(t *testing.T) {
	err := CheckTransition(enums.OrderStatusPendingPayment, enums.OrderStatusCompleted, enums.RoleAdmin)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))
}

func TestCheckTransitionWrongRole(t *testing.T) {
	err := CheckTransition(enums.OrderStatusFinalPaymentPending, enums.OrderStatusProcessing, enums.RoleCustomer)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	err = CheckTransition(enums.OrderStatusDelivered, enums.OrderStatusRefundPending, enums.RoleCustomer)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestTerminalAndRefundPendingHaveNoOutgoingEdges(t *testing.T) {
	for _, from := range []enums.OrderStatus{
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
		enums.OrderStatusRefundPending,
	} {
		for _, to := range orderedStatuses {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestEveryEdgeUsesKnownStatusesAndRoles(t *testing.T) {
	for edge, roles := range transitions {
		assert.True(t, edge.from.IsValid())
		assert.True(t, edge.to.IsValid())
		assert.NotEqual(t, edge.from, edge.to)
		require.NotEmpty(t, roles)
		for _, r := range roles {
			assert.True(t, r.IsValid())
		}
	}
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t,
		[]enums.OrderStatus{enums.OrderStatusPendingPayment, enums.OrderStatusConfirmed},
		NextStatuses(enums.OrderStatusPending, enums.RoleAdmin))
	assert.Equal(t,
		[]enums.OrderStatus{enums.OrderStatusCompleted},
		NextStatuses(enums.OrderStatusDelivered, enums.RoleCustomer))
	assert.Empty(t, NextStatuses(enums.OrderStatusRefundPending, enums.RoleAdmin))
}
