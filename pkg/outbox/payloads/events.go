package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// OrderCreatedEvent is emitted at checkout.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID  `json:"order_id"`
	OrderCode      string     `json:"order_code"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	PhotographerID *uuid.UUID `json:"photographer_id,omitempty"`
	FinalAmount    int64      `json:"final_amount"`
	DepositAmount  int64      `json:"deposit_amount"`
	TransferCode   string     `json:"transfer_code"`
	BookingStart   time.Time  `json:"booking_start"`
}

// OrderStatusChangedEvent is emitted once per committed order transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderCode      string            `json:"order_code"`
	CustomerID     uuid.UUID         `json:"customer_id"`
	PhotographerID *uuid.UUID        `json:"photographer_id,omitempty"`
	From           enums.OrderStatus `json:"from"`
	To             enums.OrderStatus `json:"to"`
	Note           string            `json:"note,omitempty"`
	ActorRole      enums.Role        `json:"actor_role"`
}

// OrderSettledEvent records a payout to the photographer.
type OrderSettledEvent struct {
	OrderID        uuid.UUID  `json:"order_id"`
	OrderCode      string     `json:"order_code"`
	PhotographerID *uuid.UUID `json:"photographer_id,omitempty"`
	Amount         int64      `json:"amount"`
	SettledAt      time.Time  `json:"settled_at"`
}

// AlbumPhotosUploadedEvent tells the customer new raw photos are ready to pick from.
type AlbumPhotosUploadedEvent struct {
	AlbumID        uuid.UUID  `json:"album_id"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	PhotographerID uuid.UUID  `json:"photographer_id"`
	Count          int        `json:"count"`
}

// AlbumSelectionSubmittedEvent tells the photographer which photos to edit.
type AlbumSelectionSubmittedEvent struct {
	AlbumID        uuid.UUID  `json:"album_id"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`
	PhotographerID uuid.UUID  `json:"photographer_id"`
	SelectedCount  int        `json:"selected_count"`
	ViaShareLink   bool       `json:"via_share_link"`
}

// AlbumDeliveredEvent is emitted when edited photos are delivered.
type AlbumDeliveredEvent struct {
	AlbumID        uuid.UUID  `json:"album_id"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	PhotographerID uuid.UUID  `json:"photographer_id"`
	EditedCount    int        `json:"edited_count"`
}

// ComplaintCreatedEvent alerts admins and the photographer about a dispute.
type ComplaintCreatedEvent struct {
	ComplaintID    uuid.UUID  `json:"complaint_id"`
	OrderID        uuid.UUID  `json:"order_id"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	PhotographerID *uuid.UUID `json:"photographer_id,omitempty"`
	Reason         string     `json:"reason"`
}

// ComplaintDecidedEvent carries both resolved and rejected outcomes.
type ComplaintDecidedEvent struct {
	ComplaintID        uuid.UUID             `json:"complaint_id"`
	OrderID            uuid.UUID             `json:"order_id"`
	CustomerID         uuid.UUID             `json:"customer_id"`
	PhotographerID     *uuid.UUID            `json:"photographer_id,omitempty"`
	Status             enums.ComplaintStatus `json:"status"`
	AdminResponse      string                `json:"admin_response,omitempty"`
	RefundAmount       int64                 `json:"refund_amount"`
	PhotographerAmount int64                 `json:"photographer_amount"`
}
