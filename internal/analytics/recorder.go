// Package analytics streams committed alert dispatches to BigQuery.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/angelmondragon/tollwatch-backend/internal/notifications"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

const insertTimeout = 5 * time.Second

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Recorder writes one fact row per committed notification. Insert failures
// are logged and never reach the dispatch path.
type Recorder struct {
	client tableInserter
	table  string
	logg   *logger.Logger
}

func NewRecorder(client tableInserter, table string, logg *logger.Logger) (*Recorder, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Recorder{client: client, table: strings.TrimSpace(table), logg: logg}, nil
}

type dispatchFactRow struct {
	NotificationID string               `bigquery:"notification_id"`
	UserID         string               `bigquery:"user_id"`
	Type           string               `bigquery:"type"`
	TollPlazaID    cbigquery.NullString `bigquery:"toll_plaza_id"`
	SMSStatus      string               `bigquery:"sms_status"`
	SMSError       cbigquery.NullString `bigquery:"sms_error"`
	PushDelivered  int64                `bigquery:"push_delivered"`
	SentAt         time.Time            `bigquery:"sent_at"`
}

func buildRow(snapshot notifications.NotificationSnapshot, pushDelivered int) *dispatchFactRow {
	row := &dispatchFactRow{
		NotificationID: snapshot.ID.String(),
		UserID:         snapshot.UserID.String(),
		Type:           string(snapshot.Type),
		SMSStatus:      string(snapshot.SMSStatus),
		PushDelivered:  int64(pushDelivered),
		SentAt:         snapshot.SentAt.UTC(),
	}
	if snapshot.TollPlazaID != nil {
		row.TollPlazaID = cbigquery.NullString{StringVal: snapshot.TollPlazaID.String(), Valid: true}
	}
	if snapshot.SMSError != nil {
		row.SMSError = cbigquery.NullString{StringVal: *snapshot.SMSError, Valid: true}
	}
	return row
}

// RecordDispatch streams the fact row for a committed notification.
func (r *Recorder) RecordDispatch(ctx context.Context, snapshot notifications.NotificationSnapshot, pushDelivered int) {
	insertCtx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()

	if err := r.client.InsertRows(insertCtx, r.table, []any{buildRow(snapshot, pushDelivered)}); err != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"notification_id": snapshot.ID.String(),
			"table":           r.table,
		})
		r.logg.Error(logCtx, "failed to insert dispatch fact", err)
	}
}
