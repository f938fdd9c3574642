// Package sms holds the SMS gateway implementations used by the channel dispatcher.
package sms

import (
	"context"
	"fmt"
	"net/http"

	"github.com/angelmondragon/tollwatch-backend/pkg/config"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

// Gateway sends a single SMS. Errors carry the provider's error text.
type Gateway interface {
	Send(ctx context.Context, to, body string) error
}

// NewFromConfig builds the gateway selected by the SMS provider setting.
func NewFromConfig(ctx context.Context, cfg config.SMSConfig, logg *logger.Logger) (Gateway, error) {
	switch provider := cfg.NormalizedProvider(); provider {
	case config.SMSProviderNoop:
		return NewNoopGateway(logg), nil
	case config.SMSProviderSNS:
		return NewSNSGateway(ctx, cfg.SNSRegion, WithSenderID(cfg.SNSSender))
	case config.SMSProviderTwilio:
		return NewTwilioGateway(
			cfg.TwilioAccountSID,
			cfg.TwilioAuthToken,
			cfg.TwilioFrom,
			WithBaseURL(cfg.TwilioBaseURL),
			WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		)
	default:
		return nil, fmt.Errorf("unsupported sms provider %q", provider)
	}
}
