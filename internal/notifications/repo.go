package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tollwatch-backend/internal/repo"
	"github.com/angelmondragon/tollwatch-backend/pkg/db/models"
	"github.com/angelmondragon/tollwatch-backend/pkg/enums"
	"github.com/angelmondragon/tollwatch-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	UpdateSMSOutcome(ctx context.Context, id uuid.UUID, status enums.SMSStatus, smsError *string) error
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, now time.Time) (int64, error)
	ListUnread(ctx context.Context, params listUnreadParams) ([]models.Notification, *pagination.Cursor, error)
	DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

type listUnreadParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{Base: r.Bind(tx)}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.DB(ctx).Create(notification).Error
}

// UpdateSMSOutcome moves a pending row to its terminal SMS status.
func (r *repositoryImpl) UpdateSMSOutcome(ctx context.Context, id uuid.UUID, status enums.SMSStatus, smsError *string) error {
	result := r.DB(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND sms_status = ?", id, enums.SMSStatusPending).
		UpdateColumns(map[string]any{
			"sms_status": status,
			"sms_error":  smsError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification %s is not pending", id)
	}
	return nil
}

// MarkRead flips sent rows owned by userID to read; other ids are ignored.
func (r *repositoryImpl) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, now time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.Notification{}).
		Where("id IN ? AND user_id = ? AND status = ?", ids, userID, enums.DeliveryStatusSent).
		UpdateColumns(map[string]any{
			"status":  enums.DeliveryStatusRead,
			"read_at": now.UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) ListUnread(ctx context.Context, params listUnreadParams) ([]models.Notification, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.DB(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", params.UserID, enums.DeliveryStatusSent)
	if params.Cursor != nil {
		query = query.Where("(sent_at < ?) OR (sent_at = ? AND id < ?)", params.Cursor.SentAt.UTC(), params.Cursor.SentAt.UTC(), params.Cursor.ID)
	}

	var notifications []models.Notification
	if err := query.Order("sent_at DESC, id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, nil, err
	}

	if len(notifications) > normalized {
		last := notifications[normalized-1]
		notifications = notifications[:normalized]
		return notifications, &pagination.Cursor{SentAt: last.SentAt, ID: last.ID}, nil
	}
	return notifications, nil, nil
}

// DeleteExpired removes rows whose retention has lapsed. A non-nil tx
// overrides the bound connection.
func (r *repositoryImpl) DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	result := r.Bind(tx).DB(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
