package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tollwatch-backend/pkg/enums"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
	"github.com/angelmondragon/tollwatch-backend/pkg/sms"
)

const (
	defaultSMSTimeout  = 10 * time.Second
	defaultPushTimeout = 2 * time.Second
	pushFrameType      = "notification"
)

// PushPayload is the notification view sent to live sessions.
type PushPayload struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Status  string    `json:"status"`
	SentAt  string    `json:"sentAt"`
	Data    *PushData `json:"data"`
}

// PushData describes the toll plaza of a proximity alert.
type PushData struct {
	Name     string          `json:"name"`
	Fee      decimal.Decimal `json:"fee"`
	Distance float64         `json:"distance"`
}

type pushFrame struct {
	Type string      `json:"type"`
	Data PushPayload `json:"data"`
}

// SMSOutcome is the terminal result of one SMS attempt.
type SMSOutcome struct {
	Status enums.SMSStatus
	Error  string
}

// SMSSent reports a delivered message.
func SMSSent() SMSOutcome {
	return SMSOutcome{Status: enums.SMSStatusSent}
}

// SMSNotRequired reports that no send was attempted.
func SMSNotRequired() SMSOutcome {
	return SMSOutcome{Status: enums.SMSStatusNotRequired}
}

// SMSFailed reports a failed attempt with provider text cut to MaxSMSErrorLen.
func SMSFailed(err error) SMSOutcome {
	msg := "sms delivery failed"
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		msg = strings.TrimSpace(err.Error())
	}
	return SMSOutcome{Status: enums.SMSStatusFailed, Error: TruncateRunes(msg, MaxSMSErrorLen)}
}

// DispatcherParams configure the channel dispatcher.
type DispatcherParams struct {
	Logger      *logger.Logger
	Registry    Registry
	Gateway     sms.Gateway
	SMSTimeout  time.Duration
	PushTimeout time.Duration
}

// Dispatcher delivers one notification over push and SMS independently.
type Dispatcher struct {
	logg        *logger.Logger
	registry    Registry
	gateway     sms.Gateway
	timeout     time.Duration
	pushTimeout time.Duration
}

// NewDispatcher builds a dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("session registry required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("sms gateway required")
	}
	timeout := params.SMSTimeout
	if timeout <= 0 {
		timeout = defaultSMSTimeout
	}
	pushTimeout := params.PushTimeout
	if pushTimeout <= 0 {
		pushTimeout = defaultPushTimeout
	}
	return &Dispatcher{
		logg:        params.Logger,
		registry:    params.Registry,
		gateway:     params.Gateway,
		timeout:     timeout,
		pushTimeout: pushTimeout,
	}, nil
}

// DeliverPush hands the payload to every live session of the user and
// returns how many accepted it. Each send is bounded by the push timeout;
// failed or slow sessions are logged and skipped.
func (d *Dispatcher) DeliverPush(ctx context.Context, userID uuid.UUID, payload PushPayload) int {
	sessions := d.registry.SessionsFor(userID.String())
	if len(sessions) == 0 {
		return 0
	}

	frame, err := json.Marshal(pushFrame{Type: pushFrameType, Data: payload})
	if err != nil {
		d.logg.Error(ctx, "encode push frame", err)
		return 0
	}

	delivered := 0
	for _, session := range sessions {
		if err := d.sendWithin(ctx, session, frame); err != nil {
			if errors.Is(err, ErrNoSession) {
				continue
			}
			d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "push delivery to session failed")
			continue
		}
		delivered++
	}
	return delivered
}

func (d *Dispatcher) sendWithin(ctx context.Context, session Session, frame []byte) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.pushTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- session.Send(sendCtx, frame)
	}()

	select {
	case err := <-done:
		return err
	case <-sendCtx.Done():
		return fmt.Errorf("push send timed out after %s", d.pushTimeout)
	}
}

// DeliverSMS makes at most one gateway call bounded by the SMS timeout.
// It never returns an error; failures are folded into the outcome.
func (d *Dispatcher) DeliverSMS(ctx context.Context, contactNumber *string, allowed bool, body string) SMSOutcome {
	if !allowed || contactNumber == nil || strings.TrimSpace(*contactNumber) == "" {
		return SMSNotRequired()
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.gateway.Send(sendCtx, strings.TrimSpace(*contactNumber), body)
	}()

	var err error
	select {
	case err = <-done:
	case <-sendCtx.Done():
		err = fmt.Errorf("sms send timed out after %s", d.timeout)
	}
	if err != nil {
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "sms delivery failed")
		return SMSFailed(err)
	}
	return SMSSent()
}
