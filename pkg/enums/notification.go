package enums

import "slices"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrder      NotificationType = "order"
	NotificationTypePayment    NotificationType = "payment"
	NotificationTypeAlbum      NotificationType = "album"
	NotificationTypeComplaint  NotificationType = "complaint"
	NotificationTypeSettlement NotificationType = "settlement"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrder,
	NotificationTypePayment,
	NotificationTypeAlbum,
	NotificationTypeComplaint,
	NotificationTypeSettlement,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool { return slices.Contains(validNotificationTypes, n) }

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parseEnum(validNotificationTypes, value, "notification type")
}
