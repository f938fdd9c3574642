package events

import (
	"context"
	"errors"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/tollwatch-backend/internal/alerts"
	"github.com/angelmondragon/tollwatch-backend/internal/notifications"
	"github.com/angelmondragon/tollwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

type fakeScanner struct {
	scanFn    func(ctx context.Context, userID uuid.UUID, latitude, longitude float64) (*alerts.ScanReport, error)
	balanceFn func(ctx context.Context, userID uuid.UUID) (*alerts.ScanReport, error)
	notifyFn  func(ctx context.Context, input alerts.NotifyInput) (*notifications.NotificationSnapshot, error)
	calls     []string
}

func (f *fakeScanner) Scan(ctx context.Context, userID uuid.UUID, latitude, longitude float64) (*alerts.ScanReport, error) {
	f.calls = append(f.calls, "scan")
	if f.scanFn != nil {
		return f.scanFn(ctx, userID, latitude, longitude)
	}
	return &alerts.ScanReport{}, nil
}

func (f *fakeScanner) CheckBalance(ctx context.Context, userID uuid.UUID) (*alerts.ScanReport, error) {
	f.calls = append(f.calls, "balance")
	if f.balanceFn != nil {
		return f.balanceFn(ctx, userID)
	}
	return &alerts.ScanReport{}, nil
}

func (f *fakeScanner) Notify(ctx context.Context, input alerts.NotifyInput) (*notifications.NotificationSnapshot, error) {
	f.calls = append(f.calls, "notify")
	if f.notifyFn != nil {
		return f.notifyFn(ctx, input)
	}
	return &notifications.NotificationSnapshot{}, nil
}

type fakeSubscriber struct{}

func (fakeSubscriber) Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error {
	return nil
}

func mustPositionConsumer(t *testing.T, scanner *fakeScanner) *PositionConsumer {
	t.Helper()
	consumer, err := NewPositionConsumer(scanner, fakeSubscriber{}, logger.Nop())
	if err != nil {
		t.Fatalf("new position consumer: %v", err)
	}
	return consumer
}

func mustAccountConsumer(t *testing.T, scanner *fakeScanner) *AccountConsumer {
	t.Helper()
	consumer, err := NewAccountConsumer(scanner, fakeSubscriber{}, logger.Nop())
	if err != nil {
		t.Fatalf("new account consumer: %v", err)
	}
	return consumer
}

func TestPositionConsumerScans(t *testing.T) {
	userID := uuid.New()
	scanner := &fakeScanner{
		scanFn: func(ctx context.Context, gotUser uuid.UUID, latitude, longitude float64) (*alerts.ScanReport, error) {
			if gotUser != userID || latitude != 28.4 || longitude != 77 {
				t.Fatalf("unexpected scan args %s %v %v", gotUser, latitude, longitude)
			}
			return &alerts.ScanReport{Suppressed: 1}, nil
		},
	}
	consumer := mustPositionConsumer(t, scanner)

	result := consumer.process(context.Background(), &pubsub.Message{
		ID:   "m1",
		Data: []byte(`{"userId":"` + userID.String() + `","latitude":28.4,"longitude":77}`),
	})
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
}

func TestPositionConsumerDropsMalformedMessages(t *testing.T) {
	scanner := &fakeScanner{}
	consumer := mustPositionConsumer(t, scanner)

	for _, data := range []string{
		`not json`,
		`{"userId":"nope","latitude":1,"longitude":1}`,
		`{"userId":"` + uuid.NewString() + `","latitude":1}`,
	} {
		result := consumer.process(context.Background(), &pubsub.Message{ID: "m", Data: []byte(data)})
		if !result.ack {
			t.Fatalf("expected malformed message %q to be acked", data)
		}
	}
	if len(scanner.calls) != 0 {
		t.Fatalf("scanner must not run for malformed messages, got %v", scanner.calls)
	}
}

func TestPositionConsumerRetriesScanErrors(t *testing.T) {
	scanner := &fakeScanner{
		scanFn: func(ctx context.Context, userID uuid.UUID, latitude, longitude float64) (*alerts.ScanReport, error) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeScan, errors.New("db down"), "load account")
		},
	}
	consumer := mustPositionConsumer(t, scanner)
	data := []byte(`{"userId":"` + uuid.NewString() + `","latitude":1,"longitude":1}`)

	if result := consumer.process(context.Background(), &pubsub.Message{ID: "m", Data: data}); !result.nack {
		t.Fatalf("expected nack for scan error, got %+v", result)
	}

	scanner.scanFn = func(ctx context.Context, userID uuid.UUID, latitude, longitude float64) (*alerts.ScanReport, error) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	if result := consumer.process(context.Background(), &pubsub.Message{ID: "m", Data: data}); !result.ack {
		t.Fatalf("expected ack for validation error, got %+v", result)
	}
}

func TestAccountConsumerBalanceChanged(t *testing.T) {
	scanner := &fakeScanner{}
	consumer := mustAccountConsumer(t, scanner)

	result := consumer.process(context.Background(), &pubsub.Message{
		ID:   "m1",
		Data: []byte(`{"userId":"` + uuid.NewString() + `","event":"balance_changed"}`),
	})
	if !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(scanner.calls) != 1 || scanner.calls[0] != "balance" {
		t.Fatalf("expected a single balance check, got %v", scanner.calls)
	}
}

func TestAccountConsumerPaymentReceived(t *testing.T) {
	userID := uuid.New()
	scanner := &fakeScanner{
		notifyFn: func(ctx context.Context, input alerts.NotifyInput) (*notifications.NotificationSnapshot, error) {
			if input.UserID != userID || input.Type != enums.NotificationTypePayment || input.Message != "Recharge of ₹500 received" {
				t.Fatalf("unexpected notify input %+v", input)
			}
			return &notifications.NotificationSnapshot{ID: uuid.New()}, nil
		},
	}
	consumer := mustAccountConsumer(t, scanner)

	result := consumer.process(context.Background(), &pubsub.Message{
		ID:   "m1",
		Data: []byte(`{"userId":"` + userID.String() + `","event":"payment_received","message":"Recharge of ₹500 received"}`),
	})
	if !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(scanner.calls) != 2 || scanner.calls[0] != "notify" || scanner.calls[1] != "balance" {
		t.Fatalf("expected notify then balance, got %v", scanner.calls)
	}
}

func TestAccountConsumerIgnoresUnknownEvents(t *testing.T) {
	scanner := &fakeScanner{}
	consumer := mustAccountConsumer(t, scanner)

	result := consumer.process(context.Background(), &pubsub.Message{
		ID:   "m1",
		Data: []byte(`{"userId":"` + uuid.NewString() + `","event":"profile_updated"}`),
	})
	if !result.ack || len(scanner.calls) != 0 {
		t.Fatalf("expected unknown event to be acked untouched, got %+v %v", result, scanner.calls)
	}
}

func TestNewConsumersRequireDependencies(t *testing.T) {
	if _, err := NewPositionConsumer(nil, fakeSubscriber{}, logger.Nop()); err == nil {
		t.Fatal("expected scanner requirement")
	}
	if _, err := NewAccountConsumer(&fakeScanner{}, nil, logger.Nop()); err == nil {
		t.Fatal("expected subscription requirement")
	}
}
