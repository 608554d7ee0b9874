package servicefees

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/db/dbtest"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

type stubTx struct {
	db *gorm.DB
}

func (s stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db), stubTx{db: db})
	require.NoError(t, err)
	return svc, db
}

func TestActivateKeepsSingleActiveFee(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, Input{Name: "Standard", Percentage: decimal.NewFromInt(10)})
	require.NoError(t, err)
	second, err := svc.Create(ctx, Input{Name: "Promo", Percentage: decimal.RequireFromString("7.5")})
	require.NoError(t, err)

	_, err = svc.Activate(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, second.ID)
	require.NoError(t, err)

	var active int64
	require.NoError(t, db.Model(&models.ServiceFee{}).Where("is_active = ?", true).Count(&active).Error)
	assert.Equal(t, int64(1), active)

	fee, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, fee.ID)

	pct, err := svc.ActivePercentage(ctx, nil)
	require.NoError(t, err)
	assert.True(t, pct.Valid)
	assert.True(t, pct.Decimal.Equal(decimal.RequireFromString("7.5")))
}

func TestActivePercentageWithoutActiveFee(t *testing.T) {
	svc, _ := newTestService(t)

	pct, err := svc.ActivePercentage(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, pct.Valid)

	_, err = svc.Active(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestPercentageBounds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: "Too much", Percentage: decimal.NewFromInt(101)})
	require.Error(t, err)
	_, err = svc.Create(ctx, Input{Name: "Negative", Percentage: decimal.NewFromInt(-1)})
	require.Error(t, err)
	_, err = svc.Create(ctx, Input{Name: " ", Percentage: decimal.NewFromInt(5)})
	require.Error(t, err)
}

func TestDeleteRefusesActiveFee(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	fee, err := svc.Create(ctx, Input{Name: "Standard", Percentage: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = svc.Activate(ctx, fee.ID)
	require.NoError(t, err)

	err = svc.Delete(ctx, fee.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	err = svc.Delete(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
