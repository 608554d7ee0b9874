package enums

import "slices"

// AlbumStatus tracks an album from raw upload through final delivery.
type AlbumStatus string

const (
	AlbumStatusDraft              AlbumStatus = "draft"
	AlbumStatusSentToCustomer     AlbumStatus = "sent_to_customer"
	AlbumStatusSelectionCompleted AlbumStatus = "selection_completed"
	AlbumStatusFinalized          AlbumStatus = "finalized"
)

var validAlbumStatuses = []AlbumStatus{
	AlbumStatusDraft,
	AlbumStatusSentToCustomer,
	AlbumStatusSelectionCompleted,
	AlbumStatusFinalized,
}

func (a AlbumStatus) String() string { return string(a) }

// IsValid reports whether the value is a known AlbumStatus.
func (a AlbumStatus) IsValid() bool { return slices.Contains(validAlbumStatuses, a) }

// ParseAlbumStatus converts raw input into a AlbumStatus.
func ParseAlbumStatus(value string) (AlbumStatus, error) {
	return parseEnum(validAlbumStatuses, value, "album status")
}
