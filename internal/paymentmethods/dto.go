package paymentmethods

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
)

// Input is the admin create/update payload.
type Input struct {
	FullName      string  `json:"full_name" validate:"required,max=120"`
	AccountNumber string  `json:"account_number" validate:"required,numeric,min=6,max=19"`
	Bank          string  `json:"bank" validate:"required,max=120"`
	BankBIN       string  `json:"bank_bin" validate:"required,numeric,len=6"`
	Branch        *string `json:"branch,omitempty" validate:"omitempty,max=120"`
	QRCodeURL     *string `json:"qr_code_url,omitempty" validate:"omitempty,url"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// PublicView is shown to customers; the account number is masked.
type PublicView struct {
	ID            uuid.UUID `json:"id"`
	FullName      string    `json:"full_name"`
	AccountNumber string    `json:"account_number"`
	Bank          string    `json:"bank"`
	BankBIN       string    `json:"bank_bin"`
	Branch        *string   `json:"branch,omitempty"`
	QRCodeURL     *string   `json:"qr_code_url,omitempty"`
}

// MaskAccount keeps the last four digits of number.
func MaskAccount(number string) string {
	number = strings.TrimSpace(number)
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

func toPublic(method *models.PaymentMethod) (PublicView, error) {
	var view PublicView
	if err := copier.Copy(&view, method); err != nil {
		return PublicView{}, err
	}
	view.AccountNumber = MaskAccount(method.AccountNumber)
	return view, nil
}
