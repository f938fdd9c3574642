package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var body errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body.Error
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[pkgerrors.Code]int{
		pkgerrors.CodeValidation: http.StatusBadRequest,
		pkgerrors.CodeConflict:   http.StatusConflict,
		pkgerrors.CodeStore:      http.StatusServiceUnavailable,
		pkgerrors.CodeInternal:   http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatus(code); got != want {
			t.Fatalf("%s: expected %d, got %d", code, want, got)
		}
	}
}

func TestWriteErrorExposesValidationMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), logger.Nop(), rec, pkgerrors.New(pkgerrors.CodeValidation, "user id required"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Message != "user id required" || got.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected error body %+v", got)
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), logger.Nop(), rec, errors.New("dial tcp 10.0.0.3:5432: refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Message != "internal error" {
		t.Fatalf("expected generic message, got %q", got.Message)
	}
}
