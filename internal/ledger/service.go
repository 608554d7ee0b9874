package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

var (
	errNoEvent   = errors.New("ledger event is required")
	errNoOrderID = errors.New("order id is required")
)

// Service records append-only money movements.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, event *models.LedgerEvent) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
	Statement(ctx context.Context, orderID uuid.UUID) (*Statement, error)
}

// Entry is the API shape of one ledger row.
type Entry struct {
	ID          uuid.UUID             `json:"id"`
	Type        enums.LedgerEventType `json:"type"`
	Amount      int64                 `json:"amount"`
	ComplaintID *uuid.UUID            `json:"complaint_id,omitempty"`
	ActorUserID *uuid.UUID            `json:"actor_user_id,omitempty"`
	Metadata    json.RawMessage       `json:"metadata,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Statement lists an order's movements with per-type totals.
type Statement struct {
	OrderID uuid.UUID                       `json:"order_id"`
	Entries []Entry                         `json:"entries"`
	Totals  map[enums.LedgerEventType]int64 `json:"totals"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// Append writes event in tx so the money row commits with the state change
// that caused it. A nil tx writes outside any transaction.
func (s *service) Append(ctx context.Context, tx *gorm.DB, event *models.LedgerEvent) error {
	switch {
	case event == nil:
		return errNoEvent
	case event.OrderID == uuid.Nil:
		return errNoOrderID
	case !event.Type.IsValid():
		return fmt.Errorf("invalid ledger event type %q", event.Type)
	case event.Amount < 0:
		return fmt.Errorf("ledger amount must not be negative: %d", event.Amount)
	}
	return s.repo.WithTx(tx).Create(ctx, event)
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	if orderID == uuid.Nil {
		return nil, errNoOrderID
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

func (s *service) Statement(ctx context.Context, orderID uuid.UUID) (*Statement, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	rows, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger events")
	}
	totals, err := s.repo.SumByType(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum ledger events")
	}

	stmt := &Statement{OrderID: orderID, Entries: make([]Entry, len(rows)), Totals: totals}
	for i, row := range rows {
		stmt.Entries[i] = Entry{
			ID:          row.ID,
			Type:        row.Type,
			Amount:      row.Amount,
			ComplaintID: row.ComplaintID,
			ActorUserID: row.ActorUserID,
			Metadata:    row.Metadata,
			CreatedAt:   row.CreatedAt,
		}
	}
	return stmt, nil
}
