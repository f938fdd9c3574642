package enums

import "fmt"

// NotificationType tags the alert kind; it selects the SMS template and settings entry.
type NotificationType string

const (
	NotificationTypeProximity NotificationType = "proximity"
	NotificationTypeBalance   NotificationType = "balance"
	NotificationTypePayment   NotificationType = "payment"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeProximity,
	NotificationTypeBalance,
	NotificationTypePayment,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// RequiresPlaza reports whether notifications of this type must reference a toll plaza.
func (n NotificationType) RequiresPlaza() bool {
	return n == NotificationTypeProximity
}

// IsDeduplicated reports whether the type is suppressed inside the cooldown
// window. Payment notifications are one per event.
func (n NotificationType) IsDeduplicated() bool {
	return n == NotificationTypeProximity || n == NotificationTypeBalance
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// DeliveryStatus tracks the in-app lifecycle of a notification.
type DeliveryStatus string

const (
	DeliveryStatusSent DeliveryStatus = "sent"
	DeliveryStatusRead DeliveryStatus = "read"
)

// IsValid checks whether the given status matches the canonical enum.
func (s DeliveryStatus) IsValid() bool {
	return s == DeliveryStatusSent || s == DeliveryStatusRead
}

// SMSStatus tracks the single SMS attempt attached to a notification.
type SMSStatus string

const (
	SMSStatusPending     SMSStatus = "pending"
	SMSStatusSent        SMSStatus = "sent"
	SMSStatusFailed      SMSStatus = "failed"
	SMSStatusNotRequired SMSStatus = "not_required"
)

// IsValid checks whether the given status matches the canonical enum.
func (s SMSStatus) IsValid() bool {
	switch s {
	case SMSStatusPending, SMSStatusSent, SMSStatusFailed, SMSStatusNotRequired:
		return true
	}
	return false
}

// IsTerminal reports whether the status closes the SMS lifecycle.
func (s SMSStatus) IsTerminal() bool {
	return s == SMSStatusSent || s == SMSStatusFailed || s == SMSStatusNotRequired
}
