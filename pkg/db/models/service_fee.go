package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceFee is a platform commission rate. At most one row is active.
type ServiceFee struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Percentage  decimal.Decimal `gorm:"column:percentage;type:numeric(5,2);not null"`
	Description *string         `gorm:"column:description"`
	IsActive    bool            `gorm:"column:is_active;not null;default:false"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
