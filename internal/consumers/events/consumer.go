package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/tollwatch-backend/internal/alerts"
	"github.com/angelmondragon/tollwatch-backend/internal/notifications"
	"github.com/angelmondragon/tollwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

const (
	// AccountEventBalanceChanged asks for a low balance evaluation.
	AccountEventBalanceChanged = "balance_changed"
	// AccountEventPaymentReceived records a payment notification, then
	// evaluates the balance.
	AccountEventPaymentReceived = "payment_received"
)

type scanner interface {
	Scan(ctx context.Context, userID uuid.UUID, latitude, longitude float64) (*alerts.ScanReport, error)
	CheckBalance(ctx context.Context, userID uuid.UUID) (*alerts.ScanReport, error)
	Notify(ctx context.Context, input alerts.NotifyInput) (*notifications.NotificationSnapshot, error)
}

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type positionPayload struct {
	UserID    string   `json:"userId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type accountPayload struct {
	UserID  string `json:"userId"`
	Event   string `json:"event"`
	Message string `json:"message"`
}

type processResult struct {
	ack  bool
	nack bool
}

// PositionConsumer feeds vehicle position updates into the proximity scanner.
type PositionConsumer struct {
	scanner      scanner
	subscription subscriber
	logg         *logger.Logger
}

// NewPositionConsumer builds a position consumer.
func NewPositionConsumer(scanner scanner, subscription subscriber, logg *logger.Logger) (*PositionConsumer, error) {
	if scanner == nil {
		return nil, fmt.Errorf("scanner required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("position subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PositionConsumer{scanner: scanner, subscription: subscription, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *PositionConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		settle(msg, c.process(ctx, msg))
	})
}

func (c *PositionConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	var payload positionPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode position", err)
		return processResult{ack: true}
	}
	userID, err := uuid.Parse(strings.TrimSpace(payload.UserID))
	if err != nil {
		c.logg.Error(logCtx, "invalid user id", err)
		return processResult{ack: true}
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		c.logg.Warn(logCtx, "position without coordinates")
		return processResult{ack: true}
	}

	report, err := c.scanner.Scan(ctx, userID, *payload.Latitude, *payload.Longitude)
	if err != nil {
		return c.failure(logCtx, "position scan failed", err)
	}
	logReport(logCtx, c.logg, report)
	return processResult{ack: true}
}

func (c *PositionConsumer) failure(ctx context.Context, msg string, err error) processResult {
	c.logg.Error(ctx, msg, err)
	if pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Retryable {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

// AccountConsumer reacts to balance-changing account events.
type AccountConsumer struct {
	scanner      scanner
	subscription subscriber
	logg         *logger.Logger
}

// NewAccountConsumer builds an account event consumer.
func NewAccountConsumer(scanner scanner, subscription subscriber, logg *logger.Logger) (*AccountConsumer, error) {
	if scanner == nil {
		return nil, fmt.Errorf("scanner required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("account subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &AccountConsumer{scanner: scanner, subscription: subscription, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *AccountConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		settle(msg, c.process(ctx, msg))
	})
}

func (c *AccountConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	var payload accountPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode account event", err)
		return processResult{ack: true}
	}
	userID, err := uuid.Parse(strings.TrimSpace(payload.UserID))
	if err != nil {
		c.logg.Error(logCtx, "invalid user id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"user_id": userID.String(),
		"event":   payload.Event,
	})

	switch payload.Event {
	case "", AccountEventBalanceChanged:
	case AccountEventPaymentReceived:
		// a redelivered payment event produces a second notification
		_, err := c.scanner.Notify(ctx, alerts.NotifyInput{
			UserID:  userID,
			Type:    enums.NotificationTypePayment,
			Message: payload.Message,
		})
		if err != nil {
			c.logg.Error(logCtx, "payment notification failed", err)
			if pkgerrors.Is(err, pkgerrors.CodeStore) {
				return processResult{nack: true}
			}
		}
	default:
		c.logg.Info(logCtx, "account event not handled")
		return processResult{ack: true}
	}

	report, err := c.scanner.CheckBalance(ctx, userID)
	if err != nil {
		c.logg.Error(logCtx, "balance check failed", err)
		if pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Retryable {
			return processResult{nack: true}
		}
		return processResult{ack: true}
	}
	logReport(logCtx, c.logg, report)
	return processResult{ack: true}
}

func settle(msg *pubsub.Message, result processResult) {
	if result.nack {
		msg.Nack()
		return
	}
	msg.Ack()
}

func logReport(ctx context.Context, logg *logger.Logger, report *alerts.ScanReport) {
	if report == nil {
		return
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"created":    len(report.Created),
		"suppressed": report.Suppressed,
		"failed":     report.Failed,
	}), "alerts evaluated")
}
