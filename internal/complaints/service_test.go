package complaints

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/internal/ledger"
	"github.com/lensbook/lensbook-backend/internal/orders"
	"github.com/lensbook/lensbook-backend/internal/paymentmethods"
	"github.com/lensbook/lensbook-backend/internal/servicefees"
	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/config"
	"github.com/lensbook/lensbook-backend/pkg/db/dbtest"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/outbox"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
)

type stubTx struct {
	db *gorm.DB
}

func (s stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) last() enums.OutboxEventType {
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1].EventType
}

type fixture struct {
	db           *gorm.DB
	svc          *service
	orders       orders.Service
	ledger       ledger.Service
	emitter      *recordingEmitter
	pkg          *models.ServicePackage
	customer     auth.Actor
	photographer auth.Actor
	admin        auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	customer := dbtest.MustCreateUser(t, db, enums.RoleCustomer)
	photographer := dbtest.MustCreateUser(t, db, enums.RolePhotographer)
	admin := dbtest.MustCreateUser(t, db, enums.RoleAdmin)

	emitter := &recordingEmitter{}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	require.NoError(t, err)
	feeSvc, err := servicefees.NewService(servicefees.NewRepository(db), stubTx{db: db})
	require.NoError(t, err)
	accounts, err := paymentmethods.NewService(paymentmethods.NewRepository(db))
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(db),
		Tx:       stubTx{db: db},
		Outbox:   emitter,
		Fees:     feeSvc,
		Ledger:   ledgerSvc,
		Accounts: accounts,
		Booking:  config.BookingConfig{DepositPercent: 30, DeliveryWindow: 7 * 24 * time.Hour},
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(db),
		Tx:     stubTx{db: db},
		Outbox: emitter,
		Orders: orderSvc,
		Ledger: ledgerSvc,
	})
	require.NoError(t, err)
	return &fixture{
		db:           db,
		svc:          svc.(*service),
		orders:       orderSvc,
		ledger:       ledgerSvc,
		emitter:      emitter,
		pkg:          dbtest.MustCreatePackage(t, db, photographer.ID, 2_000_000),
		customer:     auth.Actor{UserID: customer.ID, Role: enums.RoleCustomer},
		photographer: auth.Actor{UserID: photographer.ID, Role: enums.RolePhotographer},
		admin:        auth.Actor{UserID: admin.ID, Role: enums.RoleAdmin},
	}
}

func paid(o *models.Order) {
	o.DepositStatus = enums.PaymentStatusPaid
	o.RemainingStatus = enums.PaymentStatusPaid
}

func (f *fixture) deliveredOrder(t *testing.T) *models.Order {
	t.Helper()
	return dbtest.MustCreateOrder(t, f.db, f.pkg, f.customer.UserID, enums.OrderStatusDelivered, paid)
}

func (f *fixture) orderStatus(t *testing.T, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", id).Error)
	return order.Status
}

func (f *fixture) complain(t *testing.T, order *models.Order) *View {
	t.Helper()
	view, err := f.svc.Create(context.Background(), f.customer, CreateInput{
		OrderID:      order.ID,
		Reason:       "half of the photos are blurry",
		EvidenceURLs: []string{"https://cdn.lensbook.test/e1.jpg", " "},
	})
	require.NoError(t, err)
	return view
}

func codeOf(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "untyped error: %v", err)
	return typed.Code()
}

func TestCreateOnDeliveredOrder(t *testing.T) {
	f := newFixture(t)
	order := f.deliveredOrder(t)

	view := f.complain(t, order)
	assert.Equal(t, enums.ComplaintStatusPending, view.Status)
	assert.Equal(t, []string{"https://cdn.lensbook.test/e1.jpg"}, view.EvidenceURLs)
	require.NotNil(t, view.PhotographerID)
	assert.Equal(t, f.photographer.UserID, *view.PhotographerID)
	assert.Equal(t, enums.EventComplaintCreated, f.emitter.last())

	_, err := f.svc.Create(context.Background(), f.customer, CreateInput{OrderID: order.ID, Reason: "again"})
	assert.Equal(t, pkgerrors.CodeConflict, codeOf(t, err))
}

func TestCreateEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	overdueAt := time.Now().UTC().Add(-time.Hour)
	overdue := dbtest.MustCreateOrder(t, f.db, f.pkg, f.customer.UserID, enums.OrderStatusProcessing, func(o *models.Order) {
		paid(o)
		o.DeliveryDeadline = &overdueAt
	})
	_, err := f.svc.Create(ctx, f.customer, CreateInput{OrderID: overdue.ID, Reason: "late"})
	require.NoError(t, err)

	onTimeAt := time.Now().UTC().Add(48 * time.Hour)
	onTime := dbtest.MustCreateOrder(t, f.db, f.pkg, f.customer.UserID, enums.OrderStatusProcessing, func(o *models.Order) {
		o.DeliveryDeadline = &onTimeAt
	})
	_, err = f.svc.Create(ctx, f.customer, CreateInput{OrderID: onTime.ID, Reason: "impatient"})
	assert.Equal(t, pkgerrors.CodeStateConflict, codeOf(t, err))

	confirmed := dbtest.MustCreateOrder(t, f.db, f.pkg, f.customer.UserID, enums.OrderStatusConfirmed, nil)
	_, err = f.svc.Create(ctx, f.customer, CreateInput{OrderID: confirmed.ID, Reason: "early"})
	assert.Equal(t, pkgerrors.CodeStateConflict, codeOf(t, err))

	delivered := f.deliveredOrder(t)
	other := auth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	_, err = f.svc.Create(ctx, other, CreateInput{OrderID: delivered.ID, Reason: "not mine"})
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(t, err))

	_, err = f.svc.Create(ctx, f.customer, CreateInput{OrderID: uuid.New(), Reason: "ghost"})
	assert.Equal(t, pkgerrors.CodeOrderNotFound, codeOf(t, err))

	_, err = f.svc.Create(ctx, f.customer, CreateInput{OrderID: delivered.ID, Reason: "  "})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))
}

func TestProcessResolvedMovesOrderToRefundPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.deliveredOrder(t)
	complaint := f.complain(t, order)

	negotiating, err := f.svc.StartNegotiation(ctx, f.admin, complaint.ID, "calling both sides")
	require.NoError(t, err)
	assert.Equal(t, enums.ComplaintStatusNegotiating, negotiating.Status)

	_, err = f.svc.StartNegotiation(ctx, f.admin, complaint.ID, "")
	assert.Equal(t, pkgerrors.CodeInvalidTransition, codeOf(t, err))

	resolved, err := f.svc.Process(ctx, f.admin, complaint.ID, enums.ComplaintStatusResolved, "photographer agreed to refund")
	require.NoError(t, err)
	assert.Equal(t, enums.ComplaintStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, f.admin.UserID, *resolved.ResolvedBy)
	assert.Equal(t, enums.OrderStatusRefundPending, f.orderStatus(t, order.ID))
	assert.Equal(t, enums.EventComplaintResolved, f.emitter.last())

	_, err = f.svc.Process(ctx, f.admin, complaint.ID, enums.ComplaintStatusRejected, "too late")
	assert.Equal(t, pkgerrors.CodeInvalidTransition, codeOf(t, err))
}

func TestProcessRejectedCompletesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.deliveredOrder(t)
	complaint := f.complain(t, order)

	_, err := f.svc.Process(ctx, f.admin, complaint.ID, enums.ComplaintStatusRejected, "")
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))
	_, err = f.svc.Process(ctx, f.admin, complaint.ID, enums.ComplaintStatusNegotiating, "x")
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))
	_, err = f.svc.Process(ctx, f.customer, complaint.ID, enums.ComplaintStatusRejected, "x")
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(t, err))

	rejected, err := f.svc.Process(ctx, f.admin, complaint.ID, enums.ComplaintStatusRejected, "photos match the brief")
	require.NoError(t, err)
	assert.Equal(t, enums.ComplaintStatusRejected, rejected.Status)
	assert.Equal(t, enums.OrderStatusCompleted, f.orderStatus(t, order.ID))
	assert.Equal(t, enums.EventComplaintRejected, f.emitter.last())
}

func TestResolveManualSplitsPaidAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.deliveredOrder(t)
	complaint := f.complain(t, order)

	view, err := f.svc.ResolveManual(ctx, f.admin, complaint.ID, resolution("30", "60"))
	require.NoError(t, err)
	assert.Equal(t, enums.ComplaintStatusResolved, view.Status)
	assert.Equal(t, int64(2_000_000), view.DisputedAmount)
	assert.Equal(t, int64(600_000), view.RefundAmount)
	assert.Equal(t, int64(1_200_000), view.PhotographerAmount)
	assert.Equal(t, int64(200_000), view.PlatformAmount)
	require.True(t, view.PlatformPercent.Valid)
	assert.Equal(t, "10", view.PlatformPercent.Decimal.String())
	assert.Equal(t, enums.OrderStatusRefundPending, f.orderStatus(t, order.ID))

	rows, err := f.ledger.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	amounts := map[enums.LedgerEventType]int64{}
	for _, row := range rows {
		require.NotNil(t, row.ComplaintID)
		assert.JSONEq(t, `{"order_code":"`+order.OrderCode+`","disputed_amount":2000000}`, string(row.Metadata))
		amounts[row.Type] = row.Amount
	}
	assert.Equal(t, map[enums.LedgerEventType]int64{
		enums.LedgerEventTypeCustomerRefund:     600_000,
		enums.LedgerEventTypePhotographerPayout: 1_200_000,
		enums.LedgerEventTypePlatformRetained:   200_000,
	}, amounts)
}

func TestResolveManualRejectsBeforeMutating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.deliveredOrder(t)
	complaint := f.complain(t, order)
	events := len(f.emitter.events)

	_, err := f.svc.ResolveManual(ctx, f.admin, complaint.ID, resolution("70", "40"))
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))

	missingProof := resolution("50", "50")
	missingProof.PayoutProofURL = ""
	_, err = f.svc.ResolveManual(ctx, f.admin, complaint.ID, missingProof)
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))

	var stored models.Complaint
	require.NoError(t, f.db.First(&stored, "id = ?", complaint.ID).Error)
	assert.Equal(t, enums.ComplaintStatusPending, stored.Status)
	assert.False(t, stored.RefundPercent.Valid)
	assert.Equal(t, enums.OrderStatusDelivered, f.orderStatus(t, order.ID))
	assert.Len(t, f.emitter.events, events)

	rows, err := f.ledger.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.complain(t, f.deliveredOrder(t))
	f.complain(t, f.deliveredOrder(t))
	_, err := f.svc.Process(ctx, f.admin, first.ID, enums.ComplaintStatusRejected, "no defect found")
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.photographer, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Nil(t, got.Album)

	_, err = f.svc.Get(ctx, auth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}, first.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(t, err))

	_, err = f.svc.Get(ctx, f.admin, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(t, err))

	pending := enums.ComplaintStatusPending
	page, err := f.svc.List(ctx, f.admin, &pending, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	all, err := f.svc.List(ctx, f.admin, nil, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	_, err = f.svc.List(ctx, f.customer, nil, pagination.Params{})
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(t, err))

	mine, err := f.svc.ListForCustomer(ctx, f.customer, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, mine.Items, 2)
}

func TestOpenComplaintHoldsOrderUntilDecided(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.deliveredOrder(t)
	complaint := f.complain(t, order)

	_, err := f.orders.ConfirmCompletion(ctx, f.customer, order.ID, nil, nil)
	assert.Equal(t, pkgerrors.CodeStateConflict, codeOf(t, err))
	assert.ErrorIs(t, err, orders.ErrOrderDisputed)
	assert.Equal(t, enums.OrderStatusDelivered, f.orderStatus(t, order.ID))

	_, err = f.svc.Process(ctx, f.admin, complaint.ID, enums.ComplaintStatusResolved, "refund approved")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefundPending, f.orderStatus(t, order.ID))
}

func TestRejectedComplaintCompletesOrderThroughGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.deliveredOrder(t)
	complaint := f.complain(t, order)

	_, err := f.svc.Process(ctx, f.admin, complaint.ID, enums.ComplaintStatusRejected, "photos match the brief")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, f.orderStatus(t, order.ID))
}
