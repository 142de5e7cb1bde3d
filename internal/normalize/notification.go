package normalize

import "coopconsole/internal/models"

// Notification log field priority. Earlier paths win.
var (
	notificationID        = []string{"id", "_id", "notificationId", "notification_id"}
	notificationRecipient = []string{"recipient", "to", "recipientName", "member.name", "phoneNumber"}
	notificationChannel   = []string{"channel", "medium", "type"}
	notificationSubject   = []string{"subject", "title"}
	notificationMessage   = []string{"message", "body", "content", "text"}
	notificationStatus    = []string{"status", "deliveryStatus", "delivery_status", "state"}
	notificationSentAt    = []string{"sentAt", "sent_at", "createdAt", "timestamp"}

	notificationListKeys = []string{"logs", "notifications", "items", "results"}
)

const (
	DefaultNotificationChannel = "Unknown"
	DefaultNotificationStatus  = "Pending"
)

// NotificationLogEntry normalizes one notification log record.
func NotificationLogEntry(r Raw) models.NotificationLogEntry {
	return models.NotificationLogEntry{
		ID:        r.StringOr("", notificationID...),
		Recipient: r.StringOr("", notificationRecipient...),
		Channel:   r.StringOr(DefaultNotificationChannel, notificationChannel...),
		Subject:   r.StringOr("", notificationSubject...),
		Message:   r.StringOr("", notificationMessage...),
		Status:    r.StringOr(DefaultNotificationStatus, notificationStatus...),
		SentAt:    r.StringOr("", notificationSentAt...),
	}
}

// NotificationLog normalizes a notification log list response.
func NotificationLog(r Raw) []models.NotificationLogEntry {
	items := Unwrap(r).List(notificationListKeys...)
	out := make([]models.NotificationLogEntry, 0, len(items))
	for _, it := range items {
		out = append(out, NotificationLogEntry(it))
	}
	return out
}
