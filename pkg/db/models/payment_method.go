package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is a platform bank account customers transfer to.
type PaymentMethod struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FullName      string    `gorm:"column:full_name;not null"`
	AccountNumber string    `gorm:"column:account_number;not null"`
	Bank          string    `gorm:"column:bank;not null"`
	BankBIN       string    `gorm:"column:bank_bin;not null"`
	Branch        *string   `gorm:"column:branch"`
	QRCodeURL     *string   `gorm:"column:qr_code_url"`
	IsActive      bool      `gorm:"column:is_active;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
