package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tollwatch-backend/pkg/enums"
)

// Notification is one dispatched (or attempted) alert owned by an account.
type Notification struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID              `gorm:"type:uuid;not null;index:idx_notifications_window,priority:1"`
	Type        enums.NotificationType `gorm:"type:varchar(20);not null;index:idx_notifications_window,priority:2"`
	Message     string                 `gorm:"type:text;not null"`
	TollPlazaID *uuid.UUID             `gorm:"type:uuid;index:idx_notifications_window,priority:3"`
	Status      enums.DeliveryStatus   `gorm:"type:varchar(20);not null;default:sent"`
	SMSStatus   enums.SMSStatus        `gorm:"column:sms_status;type:varchar(20);not null;default:pending"`
	SMSError    *string                `gorm:"column:sms_error;type:varchar(200)"`
	DedupKey    string                 `gorm:"column:dedup_key;type:text;not null;uniqueIndex:idx_notifications_dedup_key"`
	SentAt      time.Time              `gorm:"not null;index:idx_notifications_window,priority:4"`
	ExpiresAt   time.Time              `gorm:"not null;index"`
	ReadAt      *time.Time
}
