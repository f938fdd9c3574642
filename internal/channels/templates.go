package channels

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tollwatch-backend/pkg/enums"
)

const (
	// MaxSMSBodyLen is the fallback SMS body limit in characters.
	MaxSMSBodyLen = 160
	// MaxSMSErrorLen bounds provider error text stored on a notification.
	MaxSMSErrorLen = 200
)

// TemplateData carries the values interpolated into typed SMS templates.
type TemplateData struct {
	PlazaName  string
	DistanceKm float64
	Fee        decimal.Decimal
	Balance    decimal.Decimal
	Threshold  decimal.Decimal
}

// RenderSMS picks the template for the notification type. Types without a
// template send the sanitized message cut to MaxSMSBodyLen.
func RenderSMS(t enums.NotificationType, message string, data TemplateData) string {
	switch t {
	case enums.NotificationTypeProximity:
		return fmt.Sprintf("Toll Alert: Approaching %s (%.1fkm). Fee: ₹%s", data.PlazaName, data.DistanceKm, data.Fee.String())
	case enums.NotificationTypeBalance:
		return fmt.Sprintf("Toll Alert: Low balance ₹%s (Min: ₹%s)", data.Balance.String(), data.Threshold.String())
	default:
		return FallbackSMS(message)
	}
}

// FallbackSMS is the body sent for notifications without a typed template.
func FallbackSMS(message string) string {
	return TruncateRunes(message, MaxSMSBodyLen)
}

// TruncateRunes cuts s to at most n characters without splitting a rune.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

