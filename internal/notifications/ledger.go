package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tollwatch-backend/internal/accounts"
	"github.com/angelmondragon/tollwatch-backend/internal/channels"
	"github.com/angelmondragon/tollwatch-backend/pkg/db"
	"github.com/angelmondragon/tollwatch-backend/pkg/db/models"
	"github.com/angelmondragon/tollwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

const (
	// MaxMessageLen bounds the stored message in characters.
	MaxMessageLen = 500
	// DefaultRetention is how long a notification lives before cleanup.
	DefaultRetention = 30 * 24 * time.Hour

	smsOutcomeSavepoint = "sms_outcome"
	beginAttempts       = 2
	fallbackSMSError    = "sms delivery failed"
)

// ErrAlreadyAlerted reports that the key was alerted inside the cooldown.
var ErrAlreadyAlerted = pkgerrors.New(pkgerrors.CodeConflict, "already alerted within cooldown")

var trailingTimestamp = regexp.MustCompile(`\s*\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z\s*$`)

// Sanitize strips a trailing ISO-8601 millisecond timestamp, trims whitespace
// and cuts the message to MaxMessageLen characters.
func Sanitize(message string) string {
	cleaned := trailingTimestamp.ReplaceAllString(message, "")
	return channels.TruncateRunes(strings.TrimSpace(cleaned), MaxMessageLen)
}

// DispatchInput describes one notification to record.
type DispatchInput struct {
	UserID  uuid.UUID              `validate:"required"`
	Type    enums.NotificationType `validate:"required,oneof=proximity balance payment"`
	Message string                 `validate:"required"`
	PlazaID *uuid.UUID
}

// NotificationSnapshot is the committed state of a notification.
type NotificationSnapshot struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Type        enums.NotificationType
	Message     string
	TollPlazaID *uuid.UUID
	Status      enums.DeliveryStatus
	SMSStatus   enums.SMSStatus
	SMSError    *string
	SentAt      time.Time
	ExpiresAt   time.Time
}

func snapshotOf(n models.Notification) NotificationSnapshot {
	return NotificationSnapshot{
		ID:          n.ID,
		UserID:      n.UserID,
		Type:        n.Type,
		Message:     n.Message,
		TollPlazaID: n.TollPlazaID,
		Status:      n.Status,
		SMSStatus:   n.SMSStatus,
		SMSError:    n.SMSError,
		SentAt:      n.SentAt,
		ExpiresAt:   n.ExpiresAt,
	}
}

// Dispatch is an open ledger transaction holding one pending notification.
// It must end in Commit or Abort.
type Dispatch struct {
	tx           *gorm.DB
	Notification models.Notification
	Account      models.Account
	done         bool
}

type beginner interface {
	BeginSerializable(ctx context.Context) (*gorm.DB, error)
}

// LedgerParams wire the ledger dependencies.
type LedgerParams struct {
	DB        beginner
	Repo      Repository
	Accounts  accounts.Repository
	Window    *Window
	Retention time.Duration
	Logger    *logger.Logger
	Now       func() time.Time
}

// Ledger persists notifications exactly once per cooldown window.
type Ledger struct {
	db        beginner
	repo      Repository
	accounts  accounts.Repository
	window    *Window
	retention time.Duration
	validate  *validator.Validate
	logg      *logger.Logger
	now       func() time.Time
}

// NewLedger wires the ledger.
func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "accounts repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	window := params.Window
	if window == nil {
		window = NewWindow(DefaultCooldown)
	}
	retention := params.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		db:        params.DB,
		repo:      params.Repo,
		accounts:  params.Accounts,
		window:    window,
		retention: retention,
		validate:  validator.New(),
		logg:      params.Logger,
		now:       now,
	}, nil
}

// BeginDispatch validates the input, opens the transaction, applies the
// cooldown and inserts the pending row. A nil dispatch with a nil error means
// the owning account does not exist and nothing was recorded. A serialization
// failure before the insert returns is retried once in a fresh transaction.
func (l *Ledger) BeginDispatch(ctx context.Context, input DispatchInput) (*Dispatch, error) {
	input.Message = Sanitize(input.Message)
	if err := l.validateInput(input); err != nil {
		return nil, err
	}

	ctx = l.logg.WithFields(ctx, map[string]any{
		"user_id": input.UserID.String(),
		"type":    string(input.Type),
	})

	for attempt := 1; ; attempt++ {
		d, err := l.begin(ctx, input)
		if attempt == beginAttempts || !db.IsSerializationFailure(err) {
			return d, err
		}
		l.logg.Debug(ctx, "notification transaction lost a serialization race, retrying")
	}
}

func (l *Ledger) begin(ctx context.Context, input DispatchInput) (*Dispatch, error) {
	tx, err := l.db.BeginSerializable(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "begin notification transaction")
	}
	d := &Dispatch{tx: tx}

	account, err := l.accounts.WithTx(tx).FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Abort(ctx, d)
			l.logg.Info(ctx, "account not found, notification discarded")
			return nil, nil
		}
		return nil, l.abortWith(ctx, d, err, "load account")
	}
	d.Account = *account

	now := l.now().UTC()
	key := Key{UserID: input.UserID, Type: input.Type, PlazaID: input.PlazaID}
	if input.Type.IsDeduplicated() {
		recent, err := l.window.HasRecentAlert(ctx, tx, key, l.window.Since(now))
		if err != nil {
			return nil, l.abortWith(ctx, d, err, "check cooldown window")
		}
		if recent {
			l.Abort(ctx, d)
			return nil, ErrAlreadyAlerted
		}
	}

	id := uuid.New()
	d.Notification = models.Notification{
		ID:          id,
		UserID:      input.UserID,
		Type:        input.Type,
		Message:     input.Message,
		TollPlazaID: input.PlazaID,
		Status:      enums.DeliveryStatusSent,
		SMSStatus:   enums.SMSStatusPending,
		DedupKey:    l.window.DedupKey(key, now, id),
		SentAt:      now,
		ExpiresAt:   now.Add(l.retention),
	}
	if err := l.repo.WithTx(tx).Create(ctx, &d.Notification); err != nil {
		return nil, l.abortWith(ctx, d, err, "insert notification")
	}
	return d, nil
}

func (l *Ledger) validateInput(input DispatchInput) error {
	if err := l.validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification: "+strings.Join(fields, "; "))
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification")
	}
	hasPlaza := input.PlazaID != nil && *input.PlazaID != uuid.Nil
	if input.Type.RequiresPlaza() != hasPlaza {
		if hasPlaza {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s notifications cannot reference a toll plaza", input.Type))
		}
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s notifications require a toll plaza", input.Type))
	}
	return nil
}

// abortWith rolls back and classifies err. A unique violation on the dedup
// key surfaces as ErrAlreadyAlerted.
func (l *Ledger) abortWith(ctx context.Context, d *Dispatch, err error, action string) error {
	rbErr := l.rollback(d)
	if db.IsUniqueViolation(err, "") {
		if rbErr != nil {
			l.logg.Warn(l.logg.WithField(ctx, "error", rbErr.Error()), "rollback after dedup race failed")
		}
		return ErrAlreadyAlerted
	}
	return multierr.Append(pkgerrors.Wrap(pkgerrors.CodeStore, err, action), rbErr)
}

// RecordSMSOutcome stores the terminal SMS status inside a savepoint. A
// failed write is retried once as a generic failure; it never returns an
// error, but a dispatch whose outcome could not be stored refuses to commit.
func (l *Ledger) RecordSMSOutcome(ctx context.Context, d *Dispatch, outcome channels.SMSOutcome) {
	if d == nil || d.done {
		return
	}
	ctx = l.logg.WithNotificationID(ctx, d.Notification.ID.String())

	if !outcome.Status.IsTerminal() {
		outcome = channels.SMSFailed(fmt.Errorf("unexpected sms status %q", outcome.Status))
	}
	err := l.writeOutcome(ctx, d, outcome)
	if err == nil {
		return
	}
	l.logg.Error(ctx, "record sms outcome", err)

	fallback := channels.SMSOutcome{Status: enums.SMSStatusFailed, Error: fallbackSMSError}
	if err := l.writeOutcome(ctx, d, fallback); err != nil {
		l.logg.Error(ctx, "record fallback sms outcome", err)
	}
}

func (l *Ledger) writeOutcome(ctx context.Context, d *Dispatch, outcome channels.SMSOutcome) error {
	if err := d.tx.WithContext(ctx).SavePoint(smsOutcomeSavepoint).Error; err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	var smsError *string
	if outcome.Status == enums.SMSStatusFailed {
		msg := channels.TruncateRunes(strings.TrimSpace(outcome.Error), channels.MaxSMSErrorLen)
		if msg == "" {
			msg = fallbackSMSError
		}
		smsError = &msg
	}

	if err := l.repo.WithTx(d.tx).UpdateSMSOutcome(ctx, d.Notification.ID, outcome.Status, smsError); err != nil {
		if rbErr := d.tx.WithContext(ctx).RollbackTo(smsOutcomeSavepoint).Error; rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return err
	}
	d.Notification.SMSStatus = outcome.Status
	d.Notification.SMSError = smsError
	return nil
}

// Commit makes the notification visible. A dispatch still holding a pending
// SMS status is rolled back instead.
func (l *Ledger) Commit(ctx context.Context, d *Dispatch) (*NotificationSnapshot, error) {
	if d == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "nil dispatch")
	}
	if d.done {
		return nil, pkgerrors.New(pkgerrors.CodeStore, "dispatch already finished")
	}
	if !d.Notification.SMSStatus.IsTerminal() {
		l.Abort(ctx, d)
		return nil, pkgerrors.New(pkgerrors.CodeStore, "sms outcome not recorded, notification discarded")
	}

	d.done = true
	if err := d.tx.Commit().Error; err != nil {
		if db.IsSerializationFailure(err) || db.IsUniqueViolation(err, "") {
			return nil, ErrAlreadyAlerted
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "commit notification")
	}

	snapshot := snapshotOf(d.Notification)
	return &snapshot, nil
}

// Abort rolls the dispatch back. Calling it on a finished dispatch is a no-op.
func (l *Ledger) Abort(ctx context.Context, d *Dispatch) {
	if d == nil || d.done {
		return
	}
	if err := l.rollback(d); err != nil {
		l.logg.Warn(l.logg.WithField(ctx, "error", err.Error()), "notification rollback failed")
	}
}

func (l *Ledger) rollback(d *Dispatch) error {
	if d.done {
		return nil
	}
	d.done = true
	if err := d.tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
