package notifications

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/tollwatch-backend/internal/accounts"
	"github.com/angelmondragon/tollwatch-backend/pkg/db"
	"github.com/angelmondragon/tollwatch-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tollwatch-backend/pkg/db/models"
	"github.com/angelmondragon/tollwatch-backend/pkg/enums"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

var testEpoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func defaultSettings() models.AlertSettings {
	return models.AlertSettings{
		NotificationsEnabled: true,
		SMSAlertsEnabled:     true,
		ProximityAlerts:      models.AlertToggle{Enabled: true, SMS: true},
		BalanceAlerts: models.BalanceToggle{
			AlertToggle: models.AlertToggle{Enabled: true, SMS: true},
			Threshold:   decimal.NewFromInt(100),
		},
	}
}

func seedAccount(t *testing.T, client *db.Client, settings models.AlertSettings) models.Account {
	t.Helper()
	contact := "+919800000000"
	account := models.Account{
		ID:            uuid.New(),
		ContactNumber: &contact,
		Balance:       decimal.NewFromInt(500),
		Settings:      datatypes.NewJSONType(settings),
	}
	dbtest.Create(t, client, &account)
	return account
}

func seedPlaza(t *testing.T, client *db.Client) models.TollPlaza {
	t.Helper()
	plaza := models.TollPlaza{
		ID:        uuid.New(),
		Name:      "Kherki Daula",
		Latitude:  28.4,
		Longitude: 77.0,
		Fee:       decimal.RequireFromString("85.50"),
	}
	dbtest.Create(t, client, &plaza)
	return plaza
}

func seedNotification(t *testing.T, client *db.Client, userID uuid.UUID, sentAt time.Time) models.Notification {
	t.Helper()
	id := uuid.New()
	notification := models.Notification{
		ID:        id,
		UserID:    userID,
		Type:      enums.NotificationTypePayment,
		Message:   "Recharge of ₹500 received",
		Status:    enums.DeliveryStatusSent,
		SMSStatus: enums.SMSStatusNotRequired,
		DedupKey:  id.String(),
		SentAt:    sentAt.UTC(),
		ExpiresAt: sentAt.UTC().Add(DefaultRetention),
	}
	dbtest.Create(t, client, &notification)
	return notification
}

func loadNotification(t *testing.T, client *db.Client, id uuid.UUID) models.Notification {
	t.Helper()
	var notification models.Notification
	if err := client.DB().First(&notification, "id = ?", id).Error; err != nil {
		t.Fatalf("load notification %s: %v", id, err)
	}
	return notification
}

func countNotifications(t *testing.T, client *db.Client) int64 {
	t.Helper()
	var count int64
	if err := client.DB().Model(&models.Notification{}).Count(&count).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return count
}

func newTestLedger(t *testing.T, client *db.Client, clock *testClock) *Ledger {
	t.Helper()
	return newTestLedgerWithRepo(t, client, clock, NewRepository(client.DB()))
}

func newTestLedgerWithRepo(t *testing.T, client *db.Client, clock *testClock, repo Repository) *Ledger {
	t.Helper()
	ledger, err := NewLedger(LedgerParams{
		DB:       client,
		Repo:     repo,
		Accounts: accounts.NewRepository(client.DB()),
		Window:   NewWindow(DefaultCooldown),
		Logger:   logger.Nop(),
		Now:      clock.Now,
	})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return ledger
}
