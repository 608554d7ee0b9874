package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateAlbum     OutboxAggregateType = "album"
	AggregateComplaint OutboxAggregateType = "complaint"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateAlbum,
	AggregateComplaint,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool { return slices.Contains(validAggregateTypes, a) }

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType names a domain event carried through the outbox.
type OutboxEventType string

const (
	EventOrderCreated            OutboxEventType = "order.created"
	EventOrderStatusChanged      OutboxEventType = "order.status_changed"
	EventOrderSettled            OutboxEventType = "order.settled"
	EventAlbumPhotosUploaded     OutboxEventType = "album.photos_uploaded"
	EventAlbumSelectionSubmitted OutboxEventType = "album.selection_submitted"
	EventAlbumDelivered          OutboxEventType = "album.delivered"
	EventComplaintCreated        OutboxEventType = "complaint.created"
	EventComplaintResolved       OutboxEventType = "complaint.resolved"
	EventComplaintRejected       OutboxEventType = "complaint.rejected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderSettled,
	EventAlbumPhotosUploaded,
	EventAlbumSelectionSubmitted,
	EventAlbumDelivered,
	EventComplaintCreated,
	EventComplaintResolved,
	EventComplaintRejected,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool { return slices.Contains(validOutboxEventTypes, e) }

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum(validOutboxEventTypes, value, "event type")
}
