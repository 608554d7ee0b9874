package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensbook/lensbook-backend/pkg/db/dbtest"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	return svc
}

func TestAppendAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	orderID := uuid.New()
	actor := uuid.New()

	require.NoError(t, svc.Append(ctx, nil, &models.LedgerEvent{
		OrderID:     orderID,
		ActorUserID: &actor,
		Type:        enums.LedgerEventTypePhotographerPayout,
		Amount:      1_400_000,
		Metadata:    json.RawMessage(`{"order_code":"ORD-0000ABCD"}`),
	}))

	rows, err := svc.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1_400_000), rows[0].Amount)
	assert.Equal(t, actor, *rows[0].ActorUserID)

}

func TestStatementTotalsPerType(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	orderID := uuid.New()
	complaintID := uuid.New()

	for _, row := range []models.LedgerEvent{
		{OrderID: orderID, ComplaintID: &complaintID, Type: enums.LedgerEventTypeCustomerRefund, Amount: 300_000},
		{OrderID: orderID, ComplaintID: &complaintID, Type: enums.LedgerEventTypePhotographerPayout, Amount: 600_000},
		{OrderID: orderID, ComplaintID: &complaintID, Type: enums.LedgerEventTypeCustomerRefund, Amount: 50_000},
		{OrderID: uuid.New(), Type: enums.LedgerEventTypeCustomerRefund, Amount: 9},
	} {
		require.NoError(t, svc.Append(ctx, nil, &row))
	}

	stmt, err := svc.Statement(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, stmt.Entries, 3)
	assert.Equal(t, int64(350_000), stmt.Totals[enums.LedgerEventTypeCustomerRefund])
	assert.Equal(t, int64(600_000), stmt.Totals[enums.LedgerEventTypePhotographerPayout])
	_, present := stmt.Totals[enums.LedgerEventTypeDepositForfeited]
	assert.False(t, present)

	_, err = svc.Statement(ctx, uuid.Nil)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAppendValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.Error(t, svc.Append(ctx, nil, nil))
	assert.Error(t, svc.Append(ctx, nil, &models.LedgerEvent{Type: enums.LedgerEventTypeCustomerRefund}))
	assert.Error(t, svc.Append(ctx, nil, &models.LedgerEvent{OrderID: uuid.New(), Type: "bogus"}))
	assert.Error(t, svc.Append(ctx, nil, &models.LedgerEvent{OrderID: uuid.New(), Type: enums.LedgerEventTypeCustomerRefund, Amount: -1}))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
