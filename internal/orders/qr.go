package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/auth"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
	"github.com/lensbook/lensbook-backend/pkg/vietqr"
)

const qrSize = 320

// PaymentQR is the bank transfer instruction for one payment stage.
type PaymentQR struct {
	Stage         enums.PaymentStage `json:"stage"`
	Amount        int64              `json:"amount"`
	TransferCode  string             `json:"transfer_code"`
	Bank          string             `json:"bank"`
	AccountName   string             `json:"account_name"`
	AccountNumber string             `json:"account_number"`
	Payload       string             `json:"payload"`
	PNG           []byte             `json:"-"`
}

// PaymentQR renders the VietQR code for the amount due at stage. The order's
// transfer code is the transfer purpose customers must keep.
func (s *service) PaymentQR(ctx context.Context, actor auth.Actor, orderID uuid.UUID, stage enums.PaymentStage) (*PaymentQR, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if err := authorizeParty(order, actor); err != nil {
		return nil, err
	}

	var amount int64
	switch stage {
	case enums.PaymentStageDeposit:
		if order.DepositStatus == enums.PaymentStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "deposit already paid")
		}
		amount = order.DepositRequired
	case enums.PaymentStageRemaining:
		if order.RemainingStatus == enums.PaymentStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "remaining amount already paid")
		}
		amount = order.RemainingAmount
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment stage")
	}

	account, err := s.accounts.ActiveAccount(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active payment account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment account")
	}

	transfer := vietqr.Transfer{
		BankBIN:       account.BankBIN,
		AccountNumber: account.AccountNumber,
		Amount:        amount,
		Purpose:       order.TransferCode,
	}
	payload, err := vietqr.Payload(transfer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build payment qr")
	}
	png, err := vietqr.PNG(transfer, qrSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render payment qr")
	}
	return &PaymentQR{
		Stage:         stage,
		Amount:        amount,
		TransferCode:  order.TransferCode,
		Bank:          account.Bank,
		AccountName:   account.FullName,
		AccountNumber: account.AccountNumber,
		Payload:       payload,
		PNG:           png,
	}, nil
}
