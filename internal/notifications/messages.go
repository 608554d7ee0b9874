package notifications

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/outbox/payloads"
)

// draft is a notification before recipients are resolved.
type draft struct {
	userID  *uuid.UUID
	admins  bool
	kind    enums.NotificationType
	title   string
	message string
	link    string
}

type builderFunc func(data json.RawMessage) ([]draft, error)

var builders = map[enums.OutboxEventType]builderFunc{
	enums.EventOrderCreated:            orderCreated,
	enums.EventOrderStatusChanged:      orderStatusChanged,
	enums.EventOrderSettled:            orderSettled,
	enums.EventAlbumPhotosUploaded:     albumPhotosUploaded,
	enums.EventAlbumSelectionSubmitted: albumSelectionSubmitted,
	enums.EventAlbumDelivered:          albumDelivered,
	enums.EventComplaintCreated:        complaintCreated,
	enums.EventComplaintResolved:       complaintDecided,
	enums.EventComplaintRejected:       complaintDecided,
}

func decode[T any](data json.RawMessage) (T, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

func orderLink(id uuid.UUID) string {
	return fmt.Sprintf("/orders/%s", id)
}

func albumLink(id uuid.UUID) string {
	return fmt.Sprintf("/albums/%s", id)
}

func complaintLink(id uuid.UUID) string {
	return fmt.Sprintf("/complaints/%s", id)
}

func orderCreated(data json.RawMessage) ([]draft, error) {
	p, err := decode[payloads.OrderCreatedEvent](data)
	if err != nil {
		return nil, err
	}
	customer := p.CustomerID
	drafts := []draft{{
		userID:  &customer,
		kind:    enums.NotificationTypePayment,
		title:   "Booking received",
		message: fmt.Sprintf("Order %s is waiting for a deposit of %d VND. Use transfer code %s.", p.OrderCode, p.DepositAmount, p.TransferCode),
		link:    orderLink(p.OrderID),
	}}
	if p.PhotographerID != nil {
		drafts = append(drafts, draft{
			userID:  p.PhotographerID,
			kind:    enums.NotificationTypeOrder,
			title:   "New booking",
			message: fmt.Sprintf("Order %s was booked for %s.", p.OrderCode, p.BookingStart.Format("2006-01-02 15:04")),
			link:    orderLink(p.OrderID),
		})
	}
	return drafts, nil
}

var statusTitles = map[enums.OrderStatus]string{
	enums.OrderStatusPending:             "Deposit received",
	enums.OrderStatusConfirmed:           "Booking confirmed",
	enums.OrderStatusInProgress:          "Shoot started",
	enums.OrderStatusWaitingFinalPayment: "Final payment due",
	enums.OrderStatusFinalPaymentPending: "Final payment submitted",
	enums.OrderStatusProcessing:          "Photos in progress",
	enums.OrderStatusDelivered:           "Photos delivered",
	enums.OrderStatusCompleted:           "Order completed",
	enums.OrderStatusCancelled:           "Order cancelled",
	enums.OrderStatusRefundPending:       "Refund pending",
}

func statusKind(status enums.OrderStatus) enums.NotificationType {
	switch status {
	case enums.OrderStatusPending, enums.OrderStatusWaitingFinalPayment,
		enums.OrderStatusFinalPaymentPending, enums.OrderStatusRefundPending:
		return enums.NotificationTypePayment
	default:
		return enums.NotificationTypeOrder
	}
}

func orderStatusChanged(data json.RawMessage) ([]draft, error) {
	p, err := decode[payloads.OrderStatusChangedEvent](data)
	if err != nil {
		return nil, err
	}
	title, ok := statusTitles[p.To]
	if !ok {
		title = "Order updated"
	}
	message := fmt.Sprintf("Order %s moved from %s to %s.", p.OrderCode, p.From, p.To)
	if p.Note != "" {
		message = fmt.Sprintf("%s Note: %s", message, p.Note)
	}
	base := draft{kind: statusKind(p.To), title: title, message: message, link: orderLink(p.OrderID)}

	customer := p.CustomerID
	withCustomer := base
	withCustomer.userID = &customer
	drafts := []draft{withCustomer}
	if p.PhotographerID != nil {
		withPhotographer := base
		withPhotographer.userID = p.PhotographerID
		drafts = append(drafts, withPhotographer)
	}
	return drafts, nil
}

func orderSettled(data json.RawMessage) ([]draft, error) {
	p, err := decode[payloads.OrderSettledEvent](data)
	if err != nil {
		return nil, err
	}
	if p.PhotographerID == nil {
		return nil, nil
	}
	return []draft{{
		userID:  p.PhotographerID,
		kind:    enums.NotificationTypeSettlement,
		title:   "Payout sent",
		message: fmt.Sprintf("%d VND for order %s has been paid out.", p.Amount, p.OrderCode),
		link:    orderLink(p.OrderID),
	}}, nil
}

func albumPhotosUploaded(data json.RawMessage) ([]draft, error) {
	p, err := decode[payloads.AlbumPhotosUploadedEvent](data)
	if err != nil {
		return nil, err
	}
	if p.CustomerID == nil {
		return nil, nil
	}
	return []draft{{
		userID:  p.CustomerID,
		kind:    enums.NotificationTypeAlbum,
		title:   "New photos to review",
		message: fmt.Sprintf("%d new photos were added to your album. Pick your favourites for editing.", p.Count),
		link:    albumLink(p.AlbumID),
	}}, nil
}

func albumSelectionSubmitted(data json.RawMessage) ([]draft, error) {
	p, err := decode[payloads.AlbumSelectionSubmittedEvent](data)
	if err != nil {
		return nil, err
	}
	photographer := p.PhotographerID
	return []draft{{
		userID:  &photographer,
		kind:    enums.NotificationTypeAlbum,
		title:   "Selection received",
		message: fmt.Sprintf("%d photos were selected for editing.", p.SelectedCount),
		link:    albumLink(p.AlbumID),
	}}, nil
}

func albumDelivered(data json.RawMessage) ([]draft, error) {
	p, err := decode[payloads.AlbumDeliveredEvent](data)
	if err != nil {
		return nil, err
	}
	if p.CustomerID == nil {
		return nil, nil
	}
	return []draft{{
		userID:  p.CustomerID,
		kind:    enums.NotificationTypeAlbum,
		title:   "Edited photos ready",
		message: fmt.Sprintf("%d edited photos are ready to download.", p.EditedCount),
		link:    albumLink(p.AlbumID),
	}}, nil
}

func complaintCreated(data json.RawMessage) ([]draft, error) {
	p, err := decode[payloads.ComplaintCreatedEvent](data)
	if err != nil {
		return nil, err
	}
	drafts := []draft{{
		admins:  true,
		kind:    enums.NotificationTypeComplaint,
		title:   "New complaint",
		message: fmt.Sprintf("A customer opened a complaint: %s", p.Reason),
		link:    complaintLink(p.ComplaintID),
	}}
	if p.PhotographerID != nil {
		drafts = append(drafts, draft{
			userID:  p.PhotographerID,
			kind:    enums.NotificationTypeComplaint,
			title:   "Complaint opened on your order",
			message: "The customer opened a complaint. Payout is on hold until it is resolved.",
			link:    orderLink(p.OrderID),
		})
	}
	return drafts, nil
}

func complaintDecided(data json.RawMessage) ([]draft, error) {
	p, err := decode[payloads.ComplaintDecidedEvent](data)
	if err != nil {
		return nil, err
	}
	customer := p.CustomerID
	title := "Complaint rejected"
	customerMessage := "Your complaint was reviewed and rejected."
	if p.Status == enums.ComplaintStatusResolved {
		title = "Complaint resolved"
		customerMessage = fmt.Sprintf("Your complaint was resolved. Refund: %d VND.", p.RefundAmount)
	}
	if p.AdminResponse != "" {
		customerMessage = fmt.Sprintf("%s %s", customerMessage, p.AdminResponse)
	}
	drafts := []draft{{
		userID:  &customer,
		kind:    enums.NotificationTypeComplaint,
		title:   title,
		message: customerMessage,
		link:    complaintLink(p.ComplaintID),
	}}
	if p.PhotographerID != nil {
		drafts = append(drafts, draft{
			userID:  p.PhotographerID,
			kind:    enums.NotificationTypeComplaint,
			title:   title,
			message: fmt.Sprintf("The complaint on your order was closed. Your share: %d VND.", p.PhotographerAmount),
			link:    orderLink(p.OrderID),
		})
	}
	return drafts, nil
}
