package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/internal/orders"
	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/metrics"
	"github.com/lensbook/lensbook-backend/pkg/outbox"
	"github.com/lensbook/lensbook-backend/pkg/outbox/payloads"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service tracks payouts of completed orders to photographers.
type Service interface {
	Settle(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*View, error)
	List(ctx context.Context, actor auth.Actor, filter enums.SettlementFilter, params pagination.Params) (pagination.Page[View], error)
	Summary(ctx context.Context, actor auth.Actor) (*Summary, error)
}

// ServiceParams groups the settlement dependencies. Metrics and Logger are optional.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Ledger  orders.LedgerAppender
	Metrics *metrics.OrderMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	ledger  orders.LedgerAppender
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the settlement service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		ledger:  params.Ledger,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Settle records that the photographer of a completed order has been paid.
// Settlement is one way.
func (s *service) Settle(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*View, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can settle orders")
	}

	var settled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		swapped, err := repo.MarkSettled(ctx, orderID, actor.UserIDPtr(), now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order")
		}
		if !swapped {
			return s.explainRefusal(ctx, repo, orderID)
		}

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		amount := orders.EarningOf(order)
		if err := s.ledger.Append(ctx, tx, &models.LedgerEvent{
			OrderID:     order.ID,
			ActorUserID: actor.UserIDPtr(),
			Type:        enums.LedgerEventTypePhotographerPayout,
			Amount:      amount,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append payout ledger event")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserIDPtr(), Role: actor.Role},
			Data: payloads.OrderSettledEvent{
				OrderID:        order.ID,
				OrderCode:      order.OrderCode,
				PhotographerID: order.PhotographerID,
				Amount:         amount,
				SettledAt:      now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order settled event")
		}
		settled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := toView(settled)
	s.metrics.ObserveSettlement(view.PhotographerEarning)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, settled.ID.String())
		logCtx = s.logg.WithField(logCtx, "amount", view.PhotographerEarning)
		s.logg.Info(logCtx, "order settled")
	}
	return &view, nil
}

// explainRefusal re-reads the order after a failed swap to report why.
func (s *service) explainRefusal(ctx context.Context, repo Repository, orderID uuid.UUID) error {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.SettlementStatus == enums.SettlementStatusPaid {
		return pkgerrors.New(pkgerrors.CodeAlreadySettled, "order already settled").
			WithDetails(map[string]any{"settled_at": order.SettledAt})
	}
	if order.Status == enums.OrderStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has an open complaint")
	}
	return pkgerrors.New(pkgerrors.CodeOrderNotCompleted, "only completed orders can be settled").
		WithDetails(map[string]any{"status": order.Status})
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter enums.SettlementFilter, params pagination.Params) (pagination.Page[View], error) {
	if filter == "" {
		filter = enums.SettlementFilterAll
	}
	if !filter.IsValid() {
		return pagination.Page[View]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid settlement filter")
	}
	photographerID, err := scopeOf(actor)
	if err != nil {
		return pagination.Page[View]{}, err
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[View]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, Filter{Settlement: filter, PhotographerID: photographerID}, params)
	if err != nil {
		return pagination.Page[View]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlements")
	}
	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, toView(&rows[i]))
	}
	return pagination.BuildPage(views, params.Limit, func(v View) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.OrderID}
	}), nil
}

func (s *service) Summary(ctx context.Context, actor auth.Actor) (*Summary, error) {
	photographerID, err := scopeOf(actor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Totals(ctx, photographerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize settlements")
	}
	summary := summarize(rows)
	return &summary, nil
}

// scopeOf limits photographers to their own payouts.
func scopeOf(actor auth.Actor) (*uuid.UUID, error) {
	switch actor.Role {
	case enums.RoleAdmin:
		return nil, nil
	case enums.RolePhotographer:
		id := actor.UserID
		return &id, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "settlements are not available for this role")
	}
}
