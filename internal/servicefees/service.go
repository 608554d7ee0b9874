package servicefees

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

var maxPercentage = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Input is the admin create/update payload.
type Input struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Percentage  decimal.Decimal `json:"percentage"`
	Description *string         `json:"description,omitempty"`
}

// Service manages the platform commission. At most one fee is active.
type Service interface {
	Create(ctx context.Context, input Input) (*models.ServiceFee, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*models.ServiceFee, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) (*models.ServiceFee, error)
	List(ctx context.Context) ([]models.ServiceFee, error)
	Active(ctx context.Context) (*models.ServiceFee, error)
	ActivePercentage(ctx context.Context, tx *gorm.DB) (decimal.NullDecimal, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires the service fee service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("service fee repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input Input) (*models.ServiceFee, error) {
	fee := &models.ServiceFee{}
	if err := apply(fee, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, fee); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create service fee")
	}
	return fee, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*models.ServiceFee, error) {
	fee, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := apply(fee, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, fee); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update service fee")
	}
	return fee, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	fee, err := s.load(ctx, s.repo, id)
	if err != nil {
		return err
	}
	if fee.IsActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "the active service fee cannot be deleted")
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete service fee")
	}
	return nil
}

// Activate makes id the only active fee.
func (s *service) Activate(ctx context.Context, id uuid.UUID) (*models.ServiceFee, error) {
	var activated *models.ServiceFee
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		fee, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := repo.DeactivateAll(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate service fees")
		}
		fee.IsActive = true
		if err := repo.Update(ctx, fee); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate service fee")
		}
		activated = fee
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

func (s *service) List(ctx context.Context) ([]models.ServiceFee, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list service fees")
	}
	return rows, nil
}

func (s *service) Active(ctx context.Context) (*models.ServiceFee, error) {
	fee, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active service fee")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active service fee")
	}
	return fee, nil
}

// ActivePercentage reads the active fee inside tx. No active fee yields an
// invalid NullDecimal rather than an error.
func (s *service) ActivePercentage(ctx context.Context, tx *gorm.DB) (decimal.NullDecimal, error) {
	fee, err := s.repo.WithTx(tx).FindActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.NullDecimal{}, nil
		}
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(fee.Percentage), nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.ServiceFee, error) {
	fee, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service fee not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service fee")
	}
	return fee, nil
}

func apply(fee *models.ServiceFee, input Input) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Percentage.IsNegative() || input.Percentage.GreaterThan(maxPercentage) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage must be within 0 and 100")
	}
	fee.Name = name
	fee.Percentage = input.Percentage.Round(2)
	fee.Description = input.Description
	return nil
}
