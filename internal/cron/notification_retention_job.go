package cron

import (
	"context"
	"time"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

const notificationRetentionJobName = "notification_retention"

// NotificationRetentionJobParams configures the ledger retention sweep.
type NotificationRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository expiredNotificationsRepo
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type expiredNotificationsRepo interface {
	DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
}

// NewNotificationRetentionJob builds the job that deletes notifications
// whose expires_at has passed.
func NewNotificationRetentionJob(params NotificationRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db runner required")
	}
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &notificationRetentionJob{
		logg: params.Logger,
		db:   params.DB,
		repo: params.Repository,
		now:  time.Now,
	}, nil
}

type notificationRetentionJob struct {
	logg *logger.Logger
	db   txRunner
	repo expiredNotificationsRepo
	now  func() time.Time
}

func (j *notificationRetentionJob) Name() string { return notificationRetentionJobName }

func (j *notificationRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteExpired(ctx, tx, now)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "delete expired notifications")
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expires_before": now,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "notification retention complete")
	return nil
}
