package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tollwatch-backend/internal/accounts"
	"github.com/angelmondragon/tollwatch-backend/internal/channels"
	"github.com/angelmondragon/tollwatch-backend/internal/notifications"
	"github.com/angelmondragon/tollwatch-backend/internal/tollplazas"
	"github.com/angelmondragon/tollwatch-backend/pkg/db/models"
	"github.com/angelmondragon/tollwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
	"github.com/angelmondragon/tollwatch-backend/pkg/geo"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
	"github.com/angelmondragon/tollwatch-backend/pkg/metrics"
)

const sentAtLayout = "2006-01-02T15:04:05.000Z"

type ledger interface {
	BeginDispatch(ctx context.Context, input notifications.DispatchInput) (*notifications.Dispatch, error)
	RecordSMSOutcome(ctx context.Context, d *notifications.Dispatch, outcome channels.SMSOutcome)
	Commit(ctx context.Context, d *notifications.Dispatch) (*notifications.NotificationSnapshot, error)
	Abort(ctx context.Context, d *notifications.Dispatch)
}

type dispatcher interface {
	DeliverPush(ctx context.Context, userID uuid.UUID, payload channels.PushPayload) int
	DeliverSMS(ctx context.Context, contactNumber *string, allowed bool, body string) channels.SMSOutcome
}

// FactSink receives every committed notification for analytics.
type FactSink interface {
	RecordDispatch(ctx context.Context, snapshot notifications.NotificationSnapshot, pushDelivered int)
}

// ScannerParams wire the scanner dependencies. Facts is optional.
type ScannerParams struct {
	Logger      *logger.Logger
	Accounts    accounts.Repository
	Plazas      tollplazas.Repository
	Ledger      ledger
	Dispatcher  dispatcher
	Metrics     *metrics.DispatchMetrics
	Facts       FactSink
	ProximityKm float64
}

// Scanner turns position and balance events into dispatched alerts.
type Scanner struct {
	logg        *logger.Logger
	accounts    accounts.Repository
	plazas      tollplazas.Repository
	ledger      ledger
	dispatcher  dispatcher
	metrics     *metrics.DispatchMetrics
	facts       FactSink
	proximityKm float64
}

// ScanReport summarizes one evaluation.
type ScanReport struct {
	Created    []notifications.NotificationSnapshot
	Suppressed int
	Failed     int
}

// NotifyInput describes an explicitly requested notification.
type NotifyInput struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Message string
	PlazaID *uuid.UUID
}

type candidate struct {
	input    notifications.DispatchInput
	template *channels.TemplateData
	push     *channels.PushData
}

// NewScanner wires the scanner.
func NewScanner(params ScannerParams) (*Scanner, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "accounts repository required")
	}
	if params.Plazas == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "toll plaza repository required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification ledger required")
	}
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "channel dispatcher required")
	}
	proximityKm := params.ProximityKm
	if proximityKm <= 0 {
		proximityKm = DefaultProximityKm
	}
	return &Scanner{
		logg:        params.Logger,
		accounts:    params.Accounts,
		plazas:      params.Plazas,
		ledger:      params.Ledger,
		dispatcher:  params.Dispatcher,
		metrics:     params.Metrics,
		facts:       params.Facts,
		proximityKm: proximityKm,
	}, nil
}

// Scan evaluates the balance alert and every toll plaza for a position
// update. Candidate failures are logged and counted; only input and load
// failures are returned.
func (s *Scanner) Scan(ctx context.Context, userID uuid.UUID, latitude, longitude float64) (*ScanReport, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveScan(time.Since(start)) }()

	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	position := geo.Point{Lat: latitude, Lng: longitude}
	if !position.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}

	ctx = s.logg.WithUserID(ctx, userID.String())
	report := &ScanReport{}

	account, settings, err := s.loadAccount(ctx, userID)
	if err != nil || account == nil {
		return report, err
	}
	if !settings.NotificationsEnabled {
		return report, nil
	}

	plazas, err := s.plazas.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeScan, err, "load toll plazas")
	}

	s.evaluateBalance(ctx, account, settings, report)

	proximity := settings.For(enums.NotificationTypeProximity)
	for _, plaza := range plazas {
		distance := position.DistanceKm(geo.Point{Lat: plaza.Latitude, Lng: plaza.Longitude})
		if !IsProximityCandidate(distance, s.proximityKm, proximity.Enabled) {
			continue
		}
		plazaID := plaza.ID
		snapshot, err := s.dispatch(ctx, candidate{
			input: notifications.DispatchInput{
				UserID:  account.ID,
				Type:    enums.NotificationTypeProximity,
				Message: ProximityMessage(plaza.Name, distance, plaza.Fee),
				PlazaID: &plazaID,
			},
			template: &channels.TemplateData{PlazaName: plaza.Name, DistanceKm: distance, Fee: plaza.Fee},
			push:     &channels.PushData{Name: plaza.Name, Fee: plaza.Fee, Distance: distance},
		})
		s.record(ctx, report, snapshot, err)
	}
	return report, nil
}

// CheckBalance evaluates only the low balance alert, for balance changes
// that arrive without a position.
func (s *Scanner) CheckBalance(ctx context.Context, userID uuid.UUID) (*ScanReport, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	ctx = s.logg.WithUserID(ctx, userID.String())
	report := &ScanReport{}

	account, settings, err := s.loadAccount(ctx, userID)
	if err != nil || account == nil || !settings.NotificationsEnabled {
		return report, err
	}
	s.evaluateBalance(ctx, account, settings, report)
	return report, nil
}

// Notify records and delivers one caller supplied notification. The SMS
// body is the message cut to the SMS limit. A nil snapshot with a nil
// error means the account does not exist. Errors are returned unlogged.
func (s *Scanner) Notify(ctx context.Context, input NotifyInput) (*notifications.NotificationSnapshot, error) {
	ctx = s.logg.WithUserID(ctx, input.UserID.String())
	return s.dispatch(ctx, candidate{
		input: notifications.DispatchInput{
			UserID:  input.UserID,
			Type:    input.Type,
			Message: input.Message,
			PlazaID: input.PlazaID,
		},
	})
}

func (s *Scanner) loadAccount(ctx context.Context, userID uuid.UUID) (*models.Account, models.AlertSettings, error) {
	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Debug(ctx, "account not found, nothing to scan")
			return nil, models.AlertSettings{}, nil
		}
		return nil, models.AlertSettings{}, pkgerrors.Wrap(pkgerrors.CodeScan, err, "load account")
	}
	return account, account.AlertSettingsOf(), nil
}

func (s *Scanner) evaluateBalance(ctx context.Context, account *models.Account, settings models.AlertSettings, report *ScanReport) {
	toggle := settings.BalanceAlerts
	if !IsBalanceCandidate(account.Balance, toggle.Threshold, toggle.Enabled) {
		return
	}
	snapshot, err := s.dispatch(ctx, candidate{
		input: notifications.DispatchInput{
			UserID:  account.ID,
			Type:    enums.NotificationTypeBalance,
			Message: BalanceMessage(account.Balance, toggle.Threshold),
		},
		template: &channels.TemplateData{Balance: account.Balance, Threshold: toggle.Threshold},
	})
	s.record(ctx, report, snapshot, err)
}

// dispatch runs one candidate through the ledger and both channels. Push is
// delivered before commit; the SMS outcome is always recorded before commit.
func (s *Scanner) dispatch(ctx context.Context, c candidate) (*notifications.NotificationSnapshot, error) {
	d, err := s.ledger.BeginDispatch(ctx, c.input)
	if err != nil || d == nil {
		return nil, err
	}
	ctx = s.logg.WithNotificationID(ctx, d.Notification.ID.String())

	delivered := s.dispatcher.DeliverPush(ctx, d.Notification.UserID, pushPayloadOf(d.Notification, c.push))
	s.metrics.AddPushDeliveries(delivered)

	body := channels.FallbackSMS(d.Notification.Message)
	if c.template != nil {
		body = channels.RenderSMS(d.Notification.Type, d.Notification.Message, *c.template)
	}
	settings := d.Account.AlertSettingsOf()
	outcome := s.dispatcher.DeliverSMS(ctx, d.Account.ContactNumber, settings.SMSAllowed(d.Notification.Type), body)
	s.ledger.RecordSMSOutcome(ctx, d, outcome)

	snapshot, err := s.ledger.Commit(ctx, d)
	if err != nil {
		return nil, err
	}
	s.metrics.IncCreated(string(snapshot.Type))
	s.metrics.IncSMSOutcome(string(snapshot.SMSStatus))
	if s.facts != nil {
		s.facts.RecordDispatch(ctx, *snapshot, delivered)
	}
	return snapshot, nil
}

func (s *Scanner) record(ctx context.Context, report *ScanReport, snapshot *notifications.NotificationSnapshot, err error) {
	switch {
	case err == nil && snapshot != nil:
		report.Created = append(report.Created, *snapshot)
	case err == nil:
	case errors.Is(err, notifications.ErrAlreadyAlerted):
		report.Suppressed++
	default:
		report.Failed++
		s.logg.Error(ctx, "dispatch alert", err)
	}
}

func pushPayloadOf(n models.Notification, data *channels.PushData) channels.PushPayload {
	return channels.PushPayload{
		ID:      n.ID.String(),
		Type:    string(n.Type),
		Message: n.Message,
		Status:  string(n.Status),
		SentAt:  n.SentAt.UTC().Format(sentAtLayout),
		Data:    data,
	}
}
