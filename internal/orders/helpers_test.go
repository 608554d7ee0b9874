package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/config"
	"github.com/lensbook/lensbook-backend/pkg/db/dbtest"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/outbox"
	"github.com/lensbook/lensbook-backend/pkg/types"
)

type stubTx struct {
	db *gorm.DB
}

func (s stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}

type recordingEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (r *recordingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) eventTypes() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type stubFees struct {
	pct decimal.NullDecimal
}

func (s stubFees) ActivePercentage(ctx context.Context, tx *gorm.DB) (decimal.NullDecimal, error) {
	return s.pct, nil
}

type recordingLedger struct {
	rows []*models.LedgerEvent
}

func (r *recordingLedger) Append(ctx context.Context, tx *gorm.DB, event *models.LedgerEvent) error {
	r.rows = append(r.rows, event)
	return nil
}

type stubAccounts struct {
	account *models.PaymentMethod
}

func (s stubAccounts) ActiveAccount(ctx context.Context) (*models.PaymentMethod, error) {
	if s.account == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.account, nil
}

type fixture struct {
	db           *gorm.DB
	svc          *service
	emitter      *recordingEmitter
	ledger       *recordingLedger
	customer     auth.Actor
	photographer auth.Actor
	admin        auth.Actor
	pkg          *models.ServicePackage
	now          time.Time
}

func testBooking() config.BookingConfig {
	return config.BookingConfig{
		DepositPercent:    30,
		DeliveryWindow:    7 * 24 * time.Hour,
		AutoCompleteAfter: 72 * time.Hour,
		PendingPaymentTTL: 48 * time.Hour,
		DefaultShootHours: 4,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	customer := dbtest.MustCreateUser(t, db, enums.RoleCustomer)
	photographer := dbtest.MustCreateUser(t, db, enums.RolePhotographer)
	admin := dbtest.MustCreateUser(t, db, enums.RoleAdmin)
	pkg := dbtest.MustCreatePackage(t, db, photographer.ID, 2_000_000)

	f := &fixture{
		db:           db,
		emitter:      &recordingEmitter{},
		ledger:       &recordingLedger{},
		customer:     auth.Actor{UserID: customer.ID, Role: enums.RoleCustomer},
		photographer: auth.Actor{UserID: photographer.ID, Role: enums.RolePhotographer},
		admin:        auth.Actor{UserID: admin.ID, Role: enums.RoleAdmin},
		pkg:          pkg,
		now:          time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Tx:       stubTx{db: db},
		Outbox:   f.emitter,
		Fees:     stubFees{pct: decimal.NewNullDecimal(decimal.NewFromInt(10))},
		Ledger:   f.ledger,
		Accounts: stubAccounts{account: &models.PaymentMethod{FullName: "LENSBOOK JSC", AccountNumber: "0123456789", Bank: "Vietcombank", BankBIN: "970436", IsActive: true}},
		Booking:  testBooking(),
		Flags:    config.FeatureFlagsConfig{PhotographerConfirm: true},
	})
	require.NoError(t, err)
	f.svc = svc.(*service)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) createInput() CreateOrderInput {
	return CreateOrderInput{
		ServicePackageID: f.pkg.ID,
		BookingDate:      f.now.AddDate(0, 0, 3),
		StartTime:        "09:00",
		Location:         types.Location{Address: "12 Nguyen Hue", City: "Ho Chi Minh"},
	}
}

// seedOrder inserts an order in status with sensible payment defaults.
func (f *fixture) seedOrder(t *testing.T, status enums.OrderStatus, mutate func(*models.Order)) *models.Order {
	t.Helper()
	photographerID := f.photographer.UserID
	start := f.now.Add(48 * time.Hour)
	order := &models.Order{
		ID:               uuid.New(),
		OrderCode:        "ORD-" + strings.ToUpper(uuid.NewString()[:8]),
		CustomerID:       f.customer.UserID,
		PhotographerID:   &photographerID,
		ServicePackageID: f.pkg.ID,
		ServiceAmount:    2_000_000,
		TotalAmount:      2_000_000,
		FinalAmount:      2_000_000,
		DepositRequired:  600_000,
		BookingDate:      start,
		StartTime:        "10:00",
		BookingStart:     start,
		BookingEnd:       start.Add(4 * time.Hour),
		Status:           status,
		TransferCode:     "CK" + strings.ToUpper(uuid.NewString()[:8]),
		DepositStatus:    enums.PaymentStatusUnpaid,
		DepositAmount:    600_000,
		RemainingStatus:  enums.PaymentStatusUnpaid,
		RemainingAmount:  1_400_000,
		DeliveryStatus:   enums.DeliveryStatusPending,
		SettlementStatus: enums.SettlementStatusUnpaid,
		CreatedAt:        f.now.Add(-time.Hour),
		UpdatedAt:        f.now.Add(-time.Hour),
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, f.db.Create(order).Error)
	return order
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", id).Error)
	return &order
}

func (f *fixture) historyCount(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.OrderStatusHistory{}).Where("order_id = ?", id).Count(&n).Error)
	return n
}

func paidDeposit(o *models.Order) {
	o.DepositStatus = enums.PaymentStatusPaid
}

func fullyPaid(o *models.Order) {
	o.DepositStatus = enums.PaymentStatusPaid
	o.RemainingStatus = enums.PaymentStatusPaid
}
