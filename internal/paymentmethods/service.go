package paymentmethods

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

// Service manages the bank accounts customers transfer deposits and final
// payments to.
type Service interface {
	Create(ctx context.Context, input Input) (*models.PaymentMethod, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*models.PaymentMethod, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ToggleActive(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
	ListAll(ctx context.Context) ([]models.PaymentMethod, error)
	ListPublic(ctx context.Context) ([]PublicView, error)
	ActiveAccount(ctx context.Context) (*models.PaymentMethod, error)
}

type service struct {
	repo Repository
}

// NewService constructs a payment method service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment method repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input Input) (*models.PaymentMethod, error) {
	method := &models.PaymentMethod{IsActive: true}
	if err := apply(method, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, method); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment method")
	}
	return method, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*models.PaymentMethod, error) {
	method, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(method, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, method); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment method")
	}
	return method, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment method")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
	}
	return nil
}

func (s *service) ToggleActive(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	method, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	method.IsActive = !method.IsActive
	if err := s.repo.Update(ctx, method); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle payment method")
	}
	return method, nil
}

func (s *service) ListAll(ctx context.Context) ([]models.PaymentMethod, error) {
	rows, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	return rows, nil
}

func (s *service) ListPublic(ctx context.Context) ([]PublicView, error) {
	rows, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	out := make([]PublicView, 0, len(rows))
	for i := range rows {
		view, err := toPublic(&rows[i])
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "project payment method")
		}
		out = append(out, view)
	}
	return out, nil
}

// ActiveAccount returns the oldest active account. It feeds the payment QR.
func (s *service) ActiveAccount(ctx context.Context) (*models.PaymentMethod, error) {
	return s.repo.FirstActive(ctx)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	method, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}
	return method, nil
}

func apply(method *models.PaymentMethod, input Input) error {
	method.FullName = strings.TrimSpace(input.FullName)
	method.AccountNumber = strings.TrimSpace(input.AccountNumber)
	method.Bank = strings.TrimSpace(input.Bank)
	method.BankBIN = strings.TrimSpace(input.BankBIN)
	method.Branch = input.Branch
	method.QRCodeURL = input.QRCodeURL
	if input.IsActive != nil {
		method.IsActive = *input.IsActive
	}
	if method.FullName == "" || method.AccountNumber == "" || method.Bank == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "full name, account number and bank are required")
	}
	if len(method.BankBIN) != 6 {
		return pkgerrors.New(pkgerrors.CodeValidation, "bank bin must be 6 digits")
	}
	return nil
}
