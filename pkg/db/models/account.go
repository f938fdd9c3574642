package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/tollwatch-backend/pkg/enums"
)

// Account is the slice of the user record the alert pipeline reads.
type Account struct {
	ID            uuid.UUID                         `gorm:"type:uuid;primaryKey"`
	ContactNumber *string                           `gorm:"column:contact_number;type:text"`
	Balance       decimal.Decimal                   `gorm:"type:numeric(12,2);not null;default:0"`
	Settings      datatypes.JSONType[AlertSettings] `gorm:"not null"`
	CreatedAt     time.Time                         `gorm:"autoCreateTime"`
	UpdatedAt     time.Time                         `gorm:"autoUpdateTime"`
}

// AlertToggle is the per-type opt-in block stored in account settings.
type AlertToggle struct {
	Enabled bool `json:"enabled"`
	SMS     bool `json:"sms"`
}

// BalanceToggle extends AlertToggle with the low-balance threshold.
type BalanceToggle struct {
	AlertToggle
	Threshold decimal.Decimal `json:"threshold"`
}

// AlertSettings mirrors the account settings document.
type AlertSettings struct {
	NotificationsEnabled bool          `json:"notificationsEnabled"`
	SMSAlertsEnabled     bool          `json:"smsAlertsEnabled"`
	ProximityAlerts      AlertToggle   `json:"proximityAlerts"`
	BalanceAlerts        BalanceToggle `json:"balanceAlerts"`
	PaymentAlerts        *AlertToggle  `json:"paymentAlerts,omitempty"`
}

// For returns the opt-in block governing the notification type. Payment
// notifications default to enabled without SMS when the block is absent.
func (s AlertSettings) For(t enums.NotificationType) AlertToggle {
	switch t {
	case enums.NotificationTypeProximity:
		return s.ProximityAlerts
	case enums.NotificationTypeBalance:
		return s.BalanceAlerts.AlertToggle
	case enums.NotificationTypePayment:
		if s.PaymentAlerts != nil {
			return *s.PaymentAlerts
		}
		return AlertToggle{Enabled: true}
	default:
		return AlertToggle{}
	}
}

// SMSAllowed reports whether SMS delivery is opted in globally and for the type.
func (s AlertSettings) SMSAllowed(t enums.NotificationType) bool {
	return s.SMSAlertsEnabled && s.For(t).SMS
}

// AlertSettingsOf returns the decoded settings document of the account.
func (a Account) AlertSettingsOf() AlertSettings {
	return a.Settings.Data()
}
