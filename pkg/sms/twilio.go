package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
)

const (
	defaultTwilioBaseURL        = "https://api.twilio.com"
	twilioAPIVersion            = "2010-04-01"
	responseBodyReadLimit int64 = 1024
)

var (
	errTwilioCredentials = errors.New("twilio account sid, auth token and sender number are required")
)

// TwilioGateway sends SMS through the Twilio Messages REST API.
type TwilioGateway struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
}

// Option configures optional client behavior.
type Option func(*TwilioGateway)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *TwilioGateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithBaseURL overrides the Twilio API base URL.
func WithBaseURL(baseURL string) Option {
	return func(g *TwilioGateway) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			g.baseURL = trimmed
		}
	}
}

// NewTwilioGateway builds the gateway given account credentials.
func NewTwilioGateway(accountSID, authToken, from string, opts ...Option) (*TwilioGateway, error) {
	accountSID = strings.TrimSpace(accountSID)
	authToken = strings.TrimSpace(authToken)
	from = strings.TrimSpace(from)
	if accountSID == "" || authToken == "" || from == "" {
		return nil, errTwilioCredentials
	}

	g := &TwilioGateway{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    defaultTwilioBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g, nil
}

func (g *TwilioGateway) Send(ctx context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sms recipient is required")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", g.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/%s/Accounts/%s/Messages.json", strings.TrimRight(g.baseURL, "/"), twilioAPIVersion, url.PathEscape(g.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeChannel, err, "build twilio request")
	}
	req.SetBasicAuth(g.accountSID, g.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeChannel, err, "execute twilio request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	var apiErr struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return pkgerrors.Wrap(pkgerrors.CodeChannel, fmt.Errorf("twilio %d: %s", apiErr.Code, apiErr.Message), "twilio rejected message")
	}
	return pkgerrors.Wrap(pkgerrors.CodeChannel, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), "twilio request failed")
}
