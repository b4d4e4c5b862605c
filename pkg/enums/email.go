package enums

import "fmt"

// EmailType selects the template a queued email renders with.
type EmailType string

const (
	EmailTypePickupConfirmation   EmailType = "pickup_confirmation"
	EmailTypeDeliveryConfirmation EmailType = "delivery_confirmation"
	EmailTypeShippedNotification  EmailType = "shipped_notification"
	EmailTypePickupReminder       EmailType = "pickup_reminder"
)

var validEmailTypes = []EmailType{
	EmailTypePickupConfirmation,
	EmailTypeDeliveryConfirmation,
	EmailTypeShippedNotification,
	EmailTypePickupReminder,
}

// IsValid reports whether the value is a known EmailType.
func (e EmailType) IsValid() bool {
	for _, candidate := range validEmailTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEmailType converts raw input into an EmailType.
func ParseEmailType(value string) (EmailType, error) {
	for _, candidate := range validEmailTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid email type %q", value)
}

// EmailStatus tracks a queue entry through delivery.
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

var validEmailStatuses = []EmailStatus{
	EmailStatusPending,
	EmailStatusSent,
	EmailStatusFailed,
}

// IsValid reports whether the value is a known EmailStatus.
func (e EmailStatus) IsValid() bool {
	for _, candidate := range validEmailStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}
