package sms

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
)

func TestTwilioGatewaySendsForm(t *testing.T) {
	var captured url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		body, _ := io.ReadAll(r.Body)
		captured, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer server.Close()

	gateway, err := NewTwilioGateway("AC123", "secret", "+15550001111", WithBaseURL(server.URL))
	require.NoError(t, err)

	err = gateway.Send(context.Background(), "+919800000000", "Toll Alert: Low balance ₹50 (Min: ₹100)")
	require.NoError(t, err)
	assert.Equal(t, "+919800000000", captured.Get("To"))
	assert.Equal(t, "+15550001111", captured.Get("From"))
	assert.Equal(t, "Toll Alert: Low balance ₹50 (Min: ₹100)", captured.Get("Body"))
}

func TestTwilioGatewaySurfacesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`))
	}))
	defer server.Close()

	gateway, err := NewTwilioGateway("AC123", "secret", "+15550001111", WithBaseURL(server.URL))
	require.NoError(t, err)

	err = gateway.Send(context.Background(), "bogus", "hi")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeChannel))
	assert.Contains(t, err.Error(), "21211")
	assert.Contains(t, err.Error(), "not a valid phone number")
}

func TestTwilioGatewayNonJSONFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	gateway, err := NewTwilioGateway("AC123", "secret", "+15550001111", WithBaseURL(server.URL))
	require.NoError(t, err)

	err = gateway.Send(context.Background(), "+919800000000", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestTwilioGatewayHonorsTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	gateway, err := NewTwilioGateway("AC123", "secret", "+15550001111",
		WithBaseURL(server.URL),
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
	)
	require.NoError(t, err)

	err = gateway.Send(context.Background(), "+919800000000", "hi")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeChannel))
}

func TestNewTwilioGatewayRequiresCredentials(t *testing.T) {
	_, err := NewTwilioGateway("AC123", " ", "+15550001111")
	assert.ErrorIs(t, err, errTwilioCredentials)
}

func TestTwilioGatewayRejectsEmptyRecipient(t *testing.T) {
	gateway, err := NewTwilioGateway("AC123", "secret", "+15550001111")
	require.NoError(t, err)
	err = gateway.Send(context.Background(), "  ", "hi")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.False(t, strings.Contains(err.Error(), "twilio"))
}
