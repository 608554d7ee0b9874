package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/config"
	"github.com/lensbook/lensbook-backend/pkg/db"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/metrics"
	"github.com/lensbook/lensbook-backend/pkg/outbox"
	"github.com/lensbook/lensbook-backend/pkg/outbox/payloads"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
	"github.com/lensbook/lensbook-backend/pkg/types"
)

const (
	createAttempts       = 3
	defaultForfeitNote   = "cancelled after confirmation, deposit forfeited"
	deliveredByAlbumNote = "edited album delivered"
)

// ErrOrderDisputed rejects completion while a complaint awaits a decision.
var ErrOrderDisputed = pkgerrors.New(pkgerrors.CodeStateConflict, "order has an open complaint")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ActiveFeeLookup returns the percentage of the active service fee, or an
// invalid NullDecimal when none is active.
type ActiveFeeLookup interface {
	ActivePercentage(ctx context.Context, tx *gorm.DB) (decimal.NullDecimal, error)
}

// LedgerAppender records money movements in the caller's transaction.
type LedgerAppender interface {
	Append(ctx context.Context, tx *gorm.DB, event *models.LedgerEvent) error
}

// PaymentAccountLookup returns the bank account customers transfer to.
type PaymentAccountLookup interface {
	ActiveAccount(ctx context.Context) (*models.PaymentMethod, error)
}

// Service defines the order lifecycle.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*OrderView, error)
	QuoteTravelFee(ctx context.Context, packageID uuid.UUID, dest *types.Coordinates) (*TravelFeeQuote, error)

	Transition(ctx context.Context, actor auth.Actor, input TransitionInput) (*OrderView, error)
	TransitionTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, input TransitionInput) (*models.Order, error)
	SubmitDepositProof(ctx context.Context, actor auth.Actor, orderID uuid.UUID, proofURL string) (*OrderView, error)
	SubmitFinalPaymentProof(ctx context.Context, actor auth.Actor, orderID uuid.UUID, proofURL string) (*OrderView, error)
	ApprovePayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderView, error)
	RejectPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, note string) (*OrderView, error)
	Cancel(ctx context.Context, actor auth.Actor, orderID uuid.UUID, note string) (*OrderView, error)
	Start(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderView, error)
	RequestFinalPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderView, error)
	ConfirmCompletion(ctx context.Context, actor auth.Actor, orderID uuid.UUID, rating *int, comment *string) (*OrderView, error)
	HandleAlbumDelivered(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error

	Get(ctx context.Context, actor auth.Actor, ref string) (*OrderView, error)
	ListForCustomer(ctx context.Context, actor auth.Actor, status *enums.OrderStatus, params pagination.Params) (pagination.Page[OrderView], error)
	ListForPhotographer(ctx context.Context, actor auth.Actor, status *enums.OrderStatus, params pagination.Params) (pagination.Page[OrderView], error)
	ListAll(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[OrderView], error)
	History(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]HistoryEntry, error)
	PaymentQR(ctx context.Context, actor auth.Actor, orderID uuid.UUID, stage enums.PaymentStage) (*PaymentQR, error)
	Stats(ctx context.Context, actor auth.Actor) (*Stats, error)
}

// ServiceParams groups the order service dependencies. Router, Metrics and
// Logger are optional.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Fees     ActiveFeeLookup
	Ledger   LedgerAppender
	Accounts PaymentAccountLookup
	Router   DistanceProvider
	Metrics  *metrics.OrderMetrics
	Logger   *logger.Logger
	Booking  config.BookingConfig
	Flags    config.FeatureFlagsConfig
	Location *time.Location
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	fees     ActiveFeeLookup
	ledger   LedgerAppender
	accounts PaymentAccountLookup
	router   DistanceProvider
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
	booking  config.BookingConfig
	flags    config.FeatureFlagsConfig
	loc      *time.Location
	now      func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Fees == nil {
		return nil, fmt.Errorf("service fee lookup required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("payment account lookup required")
	}
	if params.Booking.DepositPercent <= 0 || params.Booking.DepositPercent > 100 {
		return nil, fmt.Errorf("deposit percent must be within 1..100")
	}
	if params.Booking.DeliveryWindow <= 0 {
		return nil, fmt.Errorf("delivery window must be positive")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		fees:     params.Fees,
		ledger:   params.Ledger,
		accounts: params.Accounts,
		router:   params.Router,
		metrics:  params.Metrics,
		logg:     params.Logger,
		booking:  params.Booking,
		flags:    params.Flags,
		loc:      loc,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*OrderView, error) {
	if actor.Role != enums.RoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can book")
	}
	input.CustomerID = actor.UserID

	pkg, err := s.repo.FindPackage(ctx, input.ServicePackageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service package")
	}
	if !pkg.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service package is not available")
	}

	start, end, err := s.bookingWindow(input)
	if err != nil {
		return nil, err
	}
	if !start.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking must start in the future")
	}

	location := input.Location.Normalize()
	if location.Address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location address is required")
	}
	quote := quoteTravelFee(ctx, s.router, pkg, location.Coordinates)

	total := pkg.Price + quote.Fee
	discount := input.DiscountAmount
	if discount < 0 || discount > total {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must be within 0 and the order total")
	}
	final := total - discount
	deposit := DepositFor(final, s.booking.DepositPercent)

	var created *models.Order
	for attempt := 1; attempt <= createAttempts; attempt++ {
		order, err := s.newOrder(input, pkg, location, start, end, quote.Fee, total, final, deposit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order codes")
		}
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			conflict, err := repo.HasSlotConflict(ctx, pkg.PhotographerID, start, end)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check time slot")
			}
			if conflict {
				return pkgerrors.New(pkgerrors.CodeConflict, "photographer is already booked for this time slot")
			}
			if err := repo.Create(ctx, order); err != nil {
				return err
			}
			if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
				OrderID:   order.ID,
				Status:    order.Status,
				ChangedBy: actor.UserIDPtr(),
				ActorRole: actor.Role,
				ChangedAt: s.now().UTC(),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				Data: payloads.OrderCreatedEvent{
					OrderID:        order.ID,
					OrderCode:      order.OrderCode,
					CustomerID:     order.CustomerID,
					PhotographerID: order.PhotographerID,
					FinalAmount:    order.FinalAmount,
					DepositAmount:  order.DepositRequired,
					TransferCode:   order.TransferCode,
					BookingStart:   order.BookingStart,
				},
			})
		})
		if err == nil {
			created = order
			break
		}
		if db.IsUniqueViolation(err, "") && attempt < createAttempts {
			continue
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, created.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"order_code":   created.OrderCode,
			"final_amount": created.FinalAmount,
			"travel_fee":   created.TravelFeeAmount,
		})
		s.logg.Info(logCtx, "order created")
	}
	view := ToView(created)
	return &view, nil
}

func (s *service) newOrder(input CreateOrderInput, pkg *models.ServicePackage, location types.Location, start, end time.Time, travelFee, total, final, deposit int64) (*models.Order, error) {
	orderCode, err := newOrderCode()
	if err != nil {
		return nil, err
	}
	transferCode, err := newTransferCode()
	if err != nil {
		return nil, err
	}
	photographerID := pkg.PhotographerID
	return &models.Order{
		ID:               uuid.New(),
		OrderCode:        orderCode,
		CustomerID:       input.CustomerID,
		PhotographerID:   &photographerID,
		ServicePackageID: pkg.ID,
		ServiceAmount:    pkg.Price,
		TravelFeeAmount:  travelFee,
		DiscountAmount:   input.DiscountAmount,
		TotalAmount:      total,
		FinalAmount:      final,
		DepositRequired:  deposit,
		BookingDate:      time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		StartTime:        input.StartTime,
		BookingStart:     start.UTC(),
		BookingEnd:       end.UTC(),
		Location:         location,
		CustomerNote:     input.CustomerNote,
		Status:           enums.OrderStatusPendingPayment,
		TransferCode:     transferCode,
		DepositStatus:    enums.PaymentStatusUnpaid,
		DepositAmount:    deposit,
		RemainingStatus:  enums.PaymentStatusUnpaid,
		RemainingAmount:  final - deposit,
		DeliveryStatus:   enums.DeliveryStatusPending,
		SettlementStatus: enums.SettlementStatusUnpaid,
	}, nil
}

// bookingWindow resolves the shoot interval in the service's local time.
func (s *service) bookingWindow(input CreateOrderInput) (time.Time, time.Time, error) {
	if input.BookingDate.IsZero() {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "booking date is required")
	}
	clock, err := time.Parse("15:04", strings.TrimSpace(input.StartTime))
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "start time must be HH:MM")
	}
	y, m, d := input.BookingDate.Date()
	start := time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, s.loc)

	duration := time.Duration(s.booking.DefaultShootHours) * time.Hour
	if input.EstimatedDurationDays > 0 {
		duration = time.Duration(input.EstimatedDurationDays) * 24 * time.Hour
	}
	if duration <= 0 {
		duration = 4 * time.Hour
	}
	return start, start.Add(duration), nil
}

func (s *service) QuoteTravelFee(ctx context.Context, packageID uuid.UUID, dest *types.Coordinates) (*TravelFeeQuote, error) {
	pkg, err := s.repo.FindPackage(ctx, packageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service package")
	}
	quote := quoteTravelFee(ctx, s.router, pkg, dest)
	return &quote, nil
}

func (s *service) Transition(ctx context.Context, actor auth.Actor, input TransitionInput) (*OrderView, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.TransitionTx(ctx, tx, actor, input)
		if err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := ToView(updated)
	return &view, nil
}

// sideEffects collects writes that follow a successful status swap.
type sideEffects struct {
	bookedDelta int
	ledger      []*models.LedgerEvent
	note        string
}

// TransitionTx performs one validated transition inside tx. Ownership is
// checked first, then the edge and role, then side effects are applied and
// the status is swapped only if it still equals the value read.
func (s *service) TransitionTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, input TransitionInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if err := authorizeParty(order, actor); err != nil {
		s.metrics.ObserveRejection("forbidden")
		return nil, err
	}

	from, to := order.Status, input.RequestedStatus
	if err := CheckTransition(from, to, actor.Role); err != nil {
		s.metrics.ObserveRejection(strings.ToLower(string(pkgerrors.As(err).Code())))
		return nil, err
	}

	now := s.now().UTC()
	updates := map[string]any{"status": to}
	effects, err := s.applySideEffects(ctx, tx, order, actor, input, now, updates)
	if err != nil {
		return nil, err
	}

	swapped, err := repo.UpdateStatusIf(ctx, order.ID, from, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !swapped {
		s.metrics.ObserveRejection("conflict")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently").
			WithDetails(map[string]any{"expected": from})
	}

	var note *string
	if effects.note != "" {
		note = &effects.note
	}
	fromStatus := from
	if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: &fromStatus,
		Status:     to,
		Note:       note,
		ChangedBy:  actor.UserIDPtr(),
		ActorRole:  actor.Role,
		ChangedAt:  now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}
	for _, row := range effects.ledger {
		if err := s.ledger.Append(ctx, tx, row); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger event")
		}
	}
	if effects.bookedDelta != 0 {
		if err := repo.AdjustBookedCount(ctx, order.ServicePackageID, effects.bookedDelta); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust booked count")
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:        order.ID,
			OrderCode:      order.OrderCode,
			CustomerID:     order.CustomerID,
			PhotographerID: order.PhotographerID,
			From:           from,
			To:             to,
			Note:           effects.note,
			ActorRole:      actor.Role,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status event")
	}

	updated, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}

	s.metrics.ObserveTransition(string(from), string(to), string(actor.Role))
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithActorRole(logCtx, string(actor.Role))
		logCtx = s.logg.WithFields(logCtx, map[string]any{"from": from, "to": to})
		s.logg.Info(logCtx, "order status changed")
	}
	return updated, nil
}

// applySideEffects validates edge-specific input and fills updates.
func (s *service) applySideEffects(ctx context.Context, tx *gorm.DB, order *models.Order, actor auth.Actor, input TransitionInput, now time.Time, updates map[string]any) (sideEffects, error) {
	effects := sideEffects{note: strings.TrimSpace(input.Note)}
	proof := strings.TrimSpace(input.ProofURL)
	from, to := order.Status, input.RequestedStatus

	switch {
	case from == enums.OrderStatusPendingPayment && to == enums.OrderStatusPending:
		if proof == "" {
			return effects, pkgerrors.New(pkgerrors.CodeValidation, "deposit proof is required")
		}
		updates["deposit_status"] = enums.PaymentStatusSubmitted
		updates["deposit_proof_url"] = proof

	case to == enums.OrderStatusCancelled && from == enums.OrderStatusPendingPayment:
		updates["cancelled_at"] = now

	case from == enums.OrderStatusPending && to == enums.OrderStatusConfirmed:
		if actor.Role == enums.RolePhotographer && !s.flags.PhotographerConfirm {
			return effects, pkgerrors.New(pkgerrors.CodeForbidden, "photographers cannot confirm deposits")
		}
		pct, err := s.fees.ActivePercentage(ctx, tx)
		if err != nil {
			return effects, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active service fee")
		}
		updates["deposit_status"] = enums.PaymentStatusPaid
		updates["deposit_amount"] = order.DepositRequired
		updates["deposit_paid_at"] = now
		if pct.Valid {
			updates["platform_fee_percentage"] = pct
		}
		effects.bookedDelta = 1

	case from == enums.OrderStatusPending && to == enums.OrderStatusPendingPayment:
		if effects.note == "" {
			return effects, pkgerrors.New(pkgerrors.CodeValidation, "a rejection note is required")
		}
		updates["deposit_status"] = enums.PaymentStatusRejected

	case from == enums.OrderStatusConfirmed && to == enums.OrderStatusCancelled:
		effects.note = forfeitNote(effects.note)
		updates["cancelled_at"] = now
		effects.bookedDelta = -1
		if order.DepositStatus == enums.PaymentStatusPaid && order.DepositAmount > 0 {
			metadata, err := ledgerMetadata(order, effects.note)
			if err != nil {
				return effects, err
			}
			effects.ledger = append(effects.ledger, &models.LedgerEvent{
				OrderID:     order.ID,
				ActorUserID: actor.UserIDPtr(),
				Type:        enums.LedgerEventTypeDepositForfeited,
				Amount:      order.DepositAmount,
				Metadata:    metadata,
			})
		}

	case to == enums.OrderStatusFinalPaymentPending:
		if proof == "" {
			return effects, pkgerrors.New(pkgerrors.CodeValidation, "final payment proof is required")
		}
		updates["remaining_status"] = enums.PaymentStatusSubmitted
		updates["remaining_proof_url"] = proof

	case from == enums.OrderStatusFinalPaymentPending && to == enums.OrderStatusProcessing:
		updates["remaining_status"] = enums.PaymentStatusPaid
		updates["remaining_paid_at"] = now
		updates["delivery_deadline"] = now.Add(s.booking.DeliveryWindow)

	case from == enums.OrderStatusFinalPaymentPending && to == enums.OrderStatusWaitingFinalPayment:
		if effects.note == "" {
			return effects, pkgerrors.New(pkgerrors.CodeValidation, "a rejection note is required")
		}
		updates["remaining_status"] = enums.PaymentStatusRejected

	case to == enums.OrderStatusDelivered:
		updates["delivered_at"] = now
		status := enums.DeliveryStatusOnTime
		if order.DeliveryDeadline != nil && now.After(order.DeliveryDeadline.UTC()) {
			status = enums.DeliveryStatusLate
		}
		updates["delivery_status"] = status

	case to == enums.OrderStatusCompleted:
		open, err := s.repo.WithTx(tx).HasOpenComplaint(ctx, order.ID)
		if err != nil {
			return effects, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open complaints")
		}
		if open {
			return effects, ErrOrderDisputed
		}
		if err := s.completionEffects(ctx, tx, order, input, now, updates); err != nil {
			return effects, err
		}
	}
	return effects, nil
}

// completionEffects persists the platform fee and earning. An order confirmed
// while no fee was active snapshots the fee active at completion.
func (s *service) completionEffects(ctx context.Context, tx *gorm.DB, order *models.Order, input TransitionInput, now time.Time, updates map[string]any) error {
	if input.ReviewRating != nil {
		if *input.ReviewRating < 1 || *input.ReviewRating > 5 {
			return pkgerrors.New(pkgerrors.CodeValidation, "review rating must be between 1 and 5")
		}
		updates["review_rating"] = *input.ReviewRating
	}
	if input.ReviewComment != nil {
		if comment := strings.TrimSpace(*input.ReviewComment); comment != "" {
			updates["review_comment"] = comment
		}
	}

	pct := order.PlatformFeePercentage
	if !pct.Valid {
		active, err := s.fees.ActivePercentage(ctx, tx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active service fee")
		}
		pct = active
		if pct.Valid {
			updates["platform_fee_percentage"] = pct
		}
	}
	breakdown := ComputeFee(FeeInput{
		Status:        enums.OrderStatusCompleted,
		FinalAmount:   order.FinalAmount,
		Payment:       paymentInfoOf(order),
		FeePercentage: pct,
	})
	updates["completed_at"] = now
	updates["platform_fee_amount"] = breakdown.PlatformFeeAmount
	updates["photographer_earning"] = breakdown.PhotographerEarning
	return nil
}

func (s *service) SubmitDepositProof(ctx context.Context, actor auth.Actor, orderID uuid.UUID, proofURL string) (*OrderView, error) {
	return s.Transition(ctx, actor, TransitionInput{
		OrderID:         orderID,
		RequestedStatus: enums.OrderStatusPending,
		ProofURL:        proofURL,
	})
}

func (s *service) SubmitFinalPaymentProof(ctx context.Context, actor auth.Actor, orderID uuid.UUID, proofURL string) (*OrderView, error) {
	return s.Transition(ctx, actor, TransitionInput{
		OrderID:         orderID,
		RequestedStatus: enums.OrderStatusFinalPaymentPending,
		ProofURL:        proofURL,
	})
}

// ApprovePayment approves whichever payment stage is awaiting review.
func (s *service) ApprovePayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	var to enums.OrderStatus
	switch order.Status {
	case enums.OrderStatusPending:
		to = enums.OrderStatusConfirmed
	case enums.OrderStatusFinalPaymentPending:
		to = enums.OrderStatusProcessing
	default:
		return nil, invalidTransition(order.Status, "no payment awaiting approval")
	}
	return s.Transition(ctx, actor, TransitionInput{OrderID: orderID, RequestedStatus: to})
}

// RejectPayment sends the submitted proof back to the customer.
func (s *service) RejectPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, note string) (*OrderView, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	var to enums.OrderStatus
	switch order.Status {
	case enums.OrderStatusPending:
		to = enums.OrderStatusPendingPayment
	case enums.OrderStatusFinalPaymentPending:
		to = enums.OrderStatusWaitingFinalPayment
	default:
		return nil, invalidTransition(order.Status, "no payment awaiting review")
	}
	return s.Transition(ctx, actor, TransitionInput{OrderID: orderID, RequestedStatus: to, Note: note})
}

// Cancel maps a cancellation request onto the edge legal for the current status.
// A pending order moves to refund_pending since its deposit was submitted.
func (s *service) Cancel(ctx context.Context, actor auth.Actor, orderID uuid.UUID, note string) (*OrderView, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	var to enums.OrderStatus
	switch order.Status {
	case enums.OrderStatusPendingPayment, enums.OrderStatusConfirmed:
		to = enums.OrderStatusCancelled
	case enums.OrderStatusPending:
		to = enums.OrderStatusRefundPending
	default:
		return nil, invalidTransition(order.Status, "order can no longer be cancelled")
	}
	return s.Transition(ctx, actor, TransitionInput{OrderID: orderID, RequestedStatus: to, Note: note})
}

func (s *service) Start(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderView, error) {
	return s.Transition(ctx, actor, TransitionInput{OrderID: orderID, RequestedStatus: enums.OrderStatusInProgress})
}

func (s *service) RequestFinalPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderView, error) {
	return s.Transition(ctx, actor, TransitionInput{OrderID: orderID, RequestedStatus: enums.OrderStatusWaitingFinalPayment})
}

func (s *service) ConfirmCompletion(ctx context.Context, actor auth.Actor, orderID uuid.UUID, rating *int, comment *string) (*OrderView, error) {
	return s.Transition(ctx, actor, TransitionInput{
		OrderID:         orderID,
		RequestedStatus: enums.OrderStatusCompleted,
		ReviewRating:    rating,
		ReviewComment:   comment,
	})
}

// HandleAlbumDelivered moves a processing order to delivered inside the album
// delivery transaction. Repeated deliveries are no-ops.
func (s *service) HandleAlbumDelivered(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	order, err := s.repo.WithTx(tx).FindByID(ctx, orderID)
	if err != nil {
		return notFoundOr(err, "load order")
	}
	switch order.Status {
	case enums.OrderStatusDelivered, enums.OrderStatusCompleted:
		return nil
	case enums.OrderStatusProcessing:
	default:
		return invalidTransition(order.Status, "order is not awaiting delivery")
	}

	actor := auth.SystemActor()
	_, err = s.TransitionTx(ctx, tx, actor, TransitionInput{
		OrderID:         orderID,
		RequestedStatus: enums.OrderStatusDelivered,
		Note:            deliveredByAlbumNote,
	})
	return err
}

// Get resolves ref as an order id or an order code.
func (s *service) Get(ctx context.Context, actor auth.Actor, ref string) (*OrderView, error) {
	var (
		order *models.Order
		err   error
	)
	if IsOrderCode(ref) {
		order, err = s.repo.FindByCode(ctx, ref)
	} else {
		id, parseErr := uuid.Parse(strings.TrimSpace(ref))
		if parseErr != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order reference")
		}
		order, err = s.repo.FindByID(ctx, id)
	}
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if err := authorizeParty(order, actor); err != nil {
		return nil, err
	}
	view := ToView(order)
	return &view, nil
}

func (s *service) ListForCustomer(ctx context.Context, actor auth.Actor, status *enums.OrderStatus, params pagination.Params) (pagination.Page[OrderView], error) {
	id := actor.UserID
	return s.list(ctx, ListFilter{CustomerID: &id, Status: status}, params)
}

func (s *service) ListForPhotographer(ctx context.Context, actor auth.Actor, status *enums.OrderStatus, params pagination.Params) (pagination.Page[OrderView], error) {
	id := actor.UserID
	return s.list(ctx, ListFilter{PhotographerID: &id, Status: status}, params)
}

func (s *service) ListAll(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[OrderView], error) {
	return s.list(ctx, filter, params)
}

func (s *service) list(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[OrderView], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[OrderView]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[OrderView]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	views := make([]OrderView, 0, len(rows))
	for i := range rows {
		views = append(views, ToView(&rows[i]))
	}
	return pagination.BuildPage(views, params.Limit, func(v OrderView) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	}), nil
}

func (s *service) History(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]HistoryEntry, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if err := authorizeParty(order, actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order history")
	}
	return toHistory(rows), nil
}

// Stats returns the weekly chart and totals. Photographers only see their own orders.
func (s *service) Stats(ctx context.Context, actor auth.Actor) (*Stats, error) {
	var photographerID *uuid.UUID
	switch actor.Role {
	case enums.RoleAdmin:
	case enums.RolePhotographer:
		id := actor.UserID
		photographerID = &id
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "stats are not available for this role")
	}
	rows, err := s.repo.ListForStats(ctx, photographerID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders for stats")
	}
	return &Stats{
		Week:    WeeklyRevenue(rows, s.now().In(s.loc)),
		Summary: Summary(rows),
	}, nil
}

// authorizeParty allows staff, the order's customer and its assigned photographer.
func authorizeParty(order *models.Order, actor auth.Actor) error {
	if actor.IsStaff() {
		return nil
	}
	switch actor.Role {
	case enums.RoleCustomer:
		if order.CustomerID == actor.UserID {
			return nil
		}
	case enums.RolePhotographer:
		if order.PhotographerID != nil && *order.PhotographerID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to the caller")
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func invalidTransition(from enums.OrderStatus, msg string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, msg).
		WithDetails(map[string]any{"from": from})
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserIDPtr(), Role: actor.Role}
}

// forfeitNote keeps the forfeiture on record whatever the caller wrote.
func forfeitNote(note string) string {
	if note == "" {
		return defaultForfeitNote
	}
	return defaultForfeitNote + ": " + note
}

func ledgerMetadata(order *models.Order, note string) (json.RawMessage, error) {
	raw, err := json.Marshal(map[string]any{
		"order_code":    order.OrderCode,
		"transfer_code": order.TransferCode,
		"note":          note,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode ledger metadata")
	}
	return raw, nil
}
