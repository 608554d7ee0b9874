package complaints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/internal/orders"
	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/outbox"
	"github.com/lensbook/lensbook-backend/pkg/outbox/payloads"
	"github.com/lensbook/lensbook-backend/pkg/pagination"
)

const maxEvidence = 10

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OrderTransitioner moves the disputed order through the order state machine
// inside the complaint transaction.
type OrderTransitioner interface {
	TransitionTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, input orders.TransitionInput) (*models.Order, error)
}

// Service handles customer disputes and their admin resolution.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*View, error)
	StartNegotiation(ctx context.Context, actor auth.Actor, id uuid.UUID, note string) (*View, error)
	Process(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.ComplaintStatus, response string) (*View, error)
	ResolveManual(ctx context.Context, actor auth.Actor, id uuid.UUID, resolution ManualResolution) (*View, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*View, error)
	List(ctx context.Context, actor auth.Actor, status *enums.ComplaintStatus, params pagination.Params) (pagination.Page[View], error)
	ListForCustomer(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[View], error)
}

// ServiceParams groups the complaint dependencies. Logger is optional.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Outbox outboxPublisher
	Orders OrderTransitioner
	Ledger orders.LedgerAppender
	Logger *logger.Logger
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	orders OrderTransitioner
	ledger orders.LedgerAppender
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the complaint service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("complaints repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		outbox: params.Outbox,
		orders: params.Orders,
		ledger: params.Ledger,
		logg:   params.Logger,
		now:    time.Now,
	}, nil
}

// Create opens a dispute on a delivered order, or on a processing order whose
// delivery deadline has passed. An order has at most one open complaint.
func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*View, error) {
	if actor.Role != enums.RoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can file complaints")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	evidence := make(pq.StringArray, 0, len(input.EvidenceURLs))
	for _, url := range input.EvidenceURLs {
		if url = strings.TrimSpace(url); url != "" {
			evidence = append(evidence, url)
		}
	}
	if len(evidence) > maxEvidence {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d evidence files", maxEvidence)
	}

	var created *models.Complaint
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CustomerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to the caller")
		}
		if !s.disputable(order) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be disputed in its current status").
				WithDetails(map[string]any{"status": order.Status})
		}
		open, err := repo.HasOpen(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open complaints")
		}
		if open {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has an open complaint")
		}

		now := s.now().UTC()
		complaint := &models.Complaint{
			ID:             uuid.New(),
			OrderID:        order.ID,
			CustomerID:     order.CustomerID,
			PhotographerID: order.PhotographerID,
			Reason:         reason,
			EvidenceURLs:   evidence,
			Status:         enums.ComplaintStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repo.Create(ctx, complaint); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create complaint")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventComplaintCreated,
			AggregateType: enums.AggregateComplaint,
			AggregateID:   complaint.ID,
			Actor:         actorRef(actor),
			Data: payloads.ComplaintCreatedEvent{
				ComplaintID:    complaint.ID,
				OrderID:        order.ID,
				CustomerID:     order.CustomerID,
				PhotographerID: order.PhotographerID,
				Reason:         reason,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit complaint created event")
		}
		created = complaint
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, created.OrderID.String())
		logCtx = s.logg.WithField(logCtx, "complaint_id", created.ID.String())
		s.logg.Info(logCtx, "complaint created")
	}
	view := toView(created)
	return &view, nil
}

func (s *service) disputable(order *models.Order) bool {
	switch order.Status {
	case enums.OrderStatusDelivered:
		return true
	case enums.OrderStatusProcessing:
		return order.DeliveryDeadline != nil && s.now().After(order.DeliveryDeadline.UTC())
	}
	return false
}

// StartNegotiation records that an admin is mediating between the parties.
func (s *service) StartNegotiation(ctx context.Context, actor auth.Actor, id uuid.UUID, note string) (*View, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can mediate complaints")
	}
	updates := map[string]any{"status": enums.ComplaintStatusNegotiating}
	if note = strings.TrimSpace(note); note != "" {
		updates["admin_response"] = note
	}

	var result *models.Complaint
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		complaint, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return complaintNotFoundOr(err)
		}
		if complaint.Status != enums.ComplaintStatusPending {
			return invalidComplaintTransition(complaint.Status, enums.ComplaintStatusNegotiating)
		}
		ok, err := repo.UpdateIf(ctx, id, []enums.ComplaintStatus{enums.ComplaintStatusPending}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update complaint")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "complaint changed concurrently")
		}
		result, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload complaint")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := toView(result)
	return &view, nil
}

// Process closes a complaint. A resolved complaint sends the order to
// refund_pending; a rejected one completes it.
func (s *service) Process(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.ComplaintStatus, response string) (*View, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can decide complaints")
	}
	if status != enums.ComplaintStatusResolved && status != enums.ComplaintStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be resolved or rejected")
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin response is required")
	}
	return s.decide(ctx, actor, id, status, response, nil)
}

// ResolveManual resolves a complaint with an explicit money split. Every
// precondition is checked before anything is written.
func (s *service) ResolveManual(ctx context.Context, actor auth.Actor, id uuid.UUID, resolution ManualResolution) (*View, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can decide complaints")
	}
	if err := resolution.Validate(); err != nil {
		return nil, err
	}
	response := strings.TrimSpace(resolution.AdminResponse)
	if response == "" {
		response = fmt.Sprintf("refund %s%%, photographer %s%%, platform %s%%",
			resolution.RefundPercent.String(),
			resolution.PhotographerPercent.String(),
			resolution.PlatformPercent().String())
	}
	return s.decide(ctx, actor, id, enums.ComplaintStatusResolved, response, &resolution)
}

func (s *service) decide(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.ComplaintStatus, response string, manual *ManualResolution) (*View, error) {
	var (
		result *models.Complaint
		split  Split
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		complaint, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return complaintNotFoundOr(err)
		}
		if complaint.Status != enums.ComplaintStatusPending && complaint.Status != enums.ComplaintStatusNegotiating {
			return invalidComplaintTransition(complaint.Status, status)
		}

		order, err := repo.FindOrderForUpdate(ctx, complaint.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeOrderNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := s.now().UTC()
		updates := map[string]any{
			"status":         status,
			"admin_response": response,
			"resolved_by":    actor.UserIDPtr(),
			"resolved_at":    now,
		}
		if manual != nil {
			split = SplitAmount(orders.FeeForOrder(order).AmountPaid, *manual)
			updates["refund_percent"] = decimal.NewNullDecimal(manual.RefundPercent)
			updates["photographer_percent"] = decimal.NewNullDecimal(manual.PhotographerPercent)
			updates["platform_percent"] = decimal.NewNullDecimal(manual.PlatformPercent())
			updates["disputed_amount"] = split.Disputed
			updates["refund_amount"] = split.Refund
			updates["photographer_amount"] = split.Photographer
			updates["platform_amount"] = split.Platform
			updates["refund_proof_url"] = strings.TrimSpace(manual.RefundProofURL)
			updates["payout_proof_url"] = strings.TrimSpace(manual.PayoutProofURL)
		}
		ok, err := repo.UpdateIf(ctx, id, openStatuses, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update complaint")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "complaint changed concurrently")
		}

		if err := s.moveOrder(ctx, tx, actor, order, status, response); err != nil {
			return err
		}
		if manual != nil {
			if err := s.recordSplit(ctx, tx, actor, complaint, order, split); err != nil {
				return err
			}
		}

		eventType := enums.EventComplaintRejected
		if status == enums.ComplaintStatusResolved {
			eventType = enums.EventComplaintResolved
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateComplaint,
			AggregateID:   complaint.ID,
			Actor:         actorRef(actor),
			Data: payloads.ComplaintDecidedEvent{
				ComplaintID:        complaint.ID,
				OrderID:            complaint.OrderID,
				CustomerID:         complaint.CustomerID,
				PhotographerID:     complaint.PhotographerID,
				Status:             status,
				AdminResponse:      response,
				RefundAmount:       split.Refund,
				PhotographerAmount: split.Photographer,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit complaint decision event")
		}

		result, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload complaint")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, result.OrderID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"complaint_id": result.ID.String(),
			"status":       status,
			"refund":       split.Refund,
		})
		s.logg.Info(logCtx, "complaint decided")
	}
	view := toView(result)
	return &view, nil
}

// moveOrder applies the order side of a decision. An order already in the
// target status is left alone.
func (s *service) moveOrder(ctx context.Context, tx *gorm.DB, actor auth.Actor, order *models.Order, status enums.ComplaintStatus, response string) error {
	target := enums.OrderStatusCompleted
	note := "complaint rejected: " + response
	if status == enums.ComplaintStatusResolved {
		target = enums.OrderStatusRefundPending
		note = "complaint resolved: " + response
	}
	if order.Status == target {
		return nil
	}
	_, err := s.orders.TransitionTx(ctx, tx, actor, orders.TransitionInput{
		OrderID:         order.ID,
		RequestedStatus: target,
		Note:            note,
	})
	return err
}

func (s *service) recordSplit(ctx context.Context, tx *gorm.DB, actor auth.Actor, complaint *models.Complaint, order *models.Order, split Split) error {
	complaintID := complaint.ID
	metadata, err := splitMetadata(order, split)
	if err != nil {
		return err
	}
	rows := []struct {
		kind   enums.LedgerEventType
		amount int64
	}{
		{enums.LedgerEventTypeCustomerRefund, split.Refund},
		{enums.LedgerEventTypePhotographerPayout, split.Photographer},
		{enums.LedgerEventTypePlatformRetained, split.Platform},
	}
	for _, row := range rows {
		if row.amount <= 0 {
			continue
		}
		if err := s.ledger.Append(ctx, tx, &models.LedgerEvent{
			OrderID:     order.ID,
			ComplaintID: &complaintID,
			ActorUserID: actor.UserIDPtr(),
			Type:        row.kind,
			Amount:      row.amount,
			Metadata:    metadata,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger event")
		}
	}
	return nil
}

func splitMetadata(order *models.Order, split Split) (json.RawMessage, error) {
	raw, err := json.Marshal(map[string]any{
		"order_code":      order.OrderCode,
		"disputed_amount": split.Disputed,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode ledger metadata")
	}
	return raw, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*View, error) {
	complaint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, complaintNotFoundOr(err)
	}
	if !canView(complaint, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "complaint does not belong to the caller")
	}
	view := toView(complaint)
	if actor.IsStaff() {
		info, err := s.repo.AlbumInfo(ctx, complaint.OrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load album info")
		}
		view.Album = info
	}
	return &view, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, status *enums.ComplaintStatus, params pagination.Params) (pagination.Page[View], error) {
	if actor.Role != enums.RoleAdmin {
		return pagination.Page[View]{}, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can list all complaints")
	}
	if status != nil && !status.IsValid() {
		return pagination.Page[View]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid complaint status")
	}
	page, err := s.list(ctx, Filter{Status: status}, params)
	if err != nil {
		return page, err
	}
	for i := range page.Items {
		info, err := s.repo.AlbumInfo(ctx, page.Items[i].OrderID)
		if err != nil {
			return pagination.Page[View]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load album info")
		}
		page.Items[i].Album = info
	}
	return page, nil
}

func (s *service) ListForCustomer(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[View], error) {
	id := actor.UserID
	return s.list(ctx, Filter{CustomerID: &id}, params)
}

func (s *service) list(ctx context.Context, filter Filter, params pagination.Params) (pagination.Page[View], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[View]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[View]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list complaints")
	}
	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, toView(&rows[i]))
	}
	return pagination.BuildPage(views, params.Limit, func(v View) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	}), nil
}

func canView(c *models.Complaint, actor auth.Actor) bool {
	switch {
	case actor.IsStaff():
		return true
	case actor.Role == enums.RoleCustomer:
		return c.CustomerID == actor.UserID
	case actor.Role == enums.RolePhotographer:
		return c.PhotographerID != nil && *c.PhotographerID == actor.UserID
	}
	return false
}

func complaintNotFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load complaint")
}

func invalidComplaintTransition(from, to enums.ComplaintStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("cannot move complaint from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserIDPtr(), Role: actor.Role}
}
