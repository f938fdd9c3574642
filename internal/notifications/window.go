package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tollwatch-backend/pkg/db/models"
	"github.com/angelmondragon/tollwatch-backend/pkg/enums"
)

// DefaultCooldown suppresses repeat alerts for the same key.
const DefaultCooldown = 5 * time.Minute

// Key identifies the alert a cooldown applies to. A nil PlazaID matches any
// plaza, which is how balance alerts are keyed.
type Key struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	PlazaID *uuid.UUID
}

// Window answers whether a key was alerted within the cooldown. It always
// reads the ledger and keeps no state between calls.
type Window struct {
	cooldown time.Duration
}

// NewWindow builds a window; non-positive cooldowns fall back to DefaultCooldown.
func NewWindow(cooldown time.Duration) *Window {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Window{cooldown: cooldown}
}

// Cooldown returns the configured window length.
func (w *Window) Cooldown() time.Duration {
	return w.cooldown
}

// Since returns the earliest sent_at that still counts as recent at now.
func (w *Window) Since(now time.Time) time.Time {
	return now.Add(-w.cooldown)
}

// HasRecentAlert checks for a matching notification sent at or after since.
// tx must be the transaction that will insert the next row.
func (w *Window) HasRecentAlert(ctx context.Context, tx *gorm.DB, key Key, since time.Time) (bool, error) {
	query := tx.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND sent_at >= ?", key.UserID, key.Type, since.UTC())
	if key.PlazaID != nil {
		query = query.Where("toll_plaza_id = ?", *key.PlazaID)
	}

	var found []uuid.UUID
	if err := query.Limit(1).Pluck("id", &found).Error; err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// DedupKey renders the unique bucket key stored with each notification. The
// bucket is as wide as the cooldown, so two rows sharing a key are always
// inside one window. Types without a cooldown are keyed by notification id.
func (w *Window) DedupKey(key Key, sentAt time.Time, notificationID uuid.UUID) string {
	if !key.Type.IsDeduplicated() {
		return fmt.Sprintf("%s:%s:%s", key.UserID, key.Type, notificationID)
	}
	plaza := "-"
	if key.PlazaID != nil {
		plaza = key.PlazaID.String()
	}
	width := int64(w.cooldown / time.Second)
	if width < 1 {
		width = 1
	}
	bucket := sentAt.Unix() / width
	return fmt.Sprintf("%s:%s:%s:%d", key.UserID, key.Type, plaza, bucket)
}
