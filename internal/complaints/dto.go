package complaints

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// CreateInput is the customer's dispute.
type CreateInput struct {
	OrderID      uuid.UUID `json:"order_id" validate:"required"`
	Reason       string    `json:"reason" validate:"required,max=2000"`
	EvidenceURLs []string  `json:"evidence_urls" validate:"omitempty,max=10,dive,url"`
}

// ManualResolution splits the paid amount between customer, photographer and platform.
type ManualResolution struct {
	RefundPercent       decimal.Decimal `json:"refund_percent"`
	PhotographerPercent decimal.Decimal `json:"photographer_percent"`
	RefundProofURL      string          `json:"refund_proof_url"`
	PayoutProofURL      string          `json:"payout_proof_url"`
	AdminResponse       string          `json:"admin_response,omitempty"`
}

// Split is the money outcome of a manual resolution.
type Split struct {
	Disputed     int64
	Refund       int64
	Photographer int64
	Platform     int64
}

// AlbumInfo lets an admin judge the delivered work.
type AlbumInfo struct {
	AlbumID     uuid.UUID         `json:"album_id"`
	Status      enums.AlbumStatus `json:"status"`
	ShareToken  *string           `json:"share_token,omitempty"`
	FinalizedAt *time.Time        `json:"finalized_at,omitempty"`
	RawCount    int               `json:"raw_count"`
	EditedCount int               `json:"edited_count"`
}

// View is the API projection of a complaint.
type View struct {
	ID                  uuid.UUID             `json:"id"`
	OrderID             uuid.UUID             `json:"order_id"`
	CustomerID          uuid.UUID             `json:"customer_id"`
	PhotographerID      *uuid.UUID            `json:"photographer_id,omitempty"`
	Reason              string                `json:"reason"`
	EvidenceURLs        []string              `json:"evidence_urls"`
	Status              enums.ComplaintStatus `json:"status"`
	AdminResponse       *string               `json:"admin_response,omitempty"`
	RefundPercent       decimal.NullDecimal   `json:"refund_percent"`
	PhotographerPercent decimal.NullDecimal   `json:"photographer_percent"`
	PlatformPercent     decimal.NullDecimal   `json:"platform_percent"`
	DisputedAmount      int64                 `json:"disputed_amount"`
	RefundAmount        int64                 `json:"refund_amount"`
	PhotographerAmount  int64                 `json:"photographer_amount"`
	PlatformAmount      int64                 `json:"platform_amount"`
	RefundProofURL      *string               `json:"refund_proof_url,omitempty"`
	PayoutProofURL      *string               `json:"payout_proof_url,omitempty"`
	ResolvedBy          *uuid.UUID            `json:"resolved_by,omitempty"`
	ResolvedAt          *time.Time            `json:"resolved_at,omitempty"`
	Album               *AlbumInfo            `json:"album,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
}

func toView(c *models.Complaint) View {
	evidence := []string(c.EvidenceURLs)
	if evidence == nil {
		evidence = []string{}
	}
	return View{
		ID:                  c.ID,
		OrderID:             c.OrderID,
		CustomerID:          c.CustomerID,
		PhotographerID:      c.PhotographerID,
		Reason:              c.Reason,
		EvidenceURLs:        evidence,
		Status:              c.Status,
		AdminResponse:       c.AdminResponse,
		RefundPercent:       c.RefundPercent,
		PhotographerPercent: c.PhotographerPercent,
		PlatformPercent:     c.PlatformPercent,
		DisputedAmount:      c.DisputedAmount,
		RefundAmount:        c.RefundAmount,
		PhotographerAmount:  c.PhotographerAmount,
		PlatformAmount:      c.PlatformAmount,
		RefundProofURL:      c.RefundProofURL,
		PayoutProofURL:      c.PayoutProofURL,
		ResolvedBy:          c.ResolvedBy,
		ResolvedAt:          c.ResolvedAt,
		CreatedAt:           c.CreatedAt,
	}
}
