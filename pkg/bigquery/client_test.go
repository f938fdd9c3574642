package bigquery

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/tollwatch-backend/pkg/config"
	"github.com/angelmondragon/tollwatch-backend/pkg/gcp"
)

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "alerts"}, nil)
	assert.ErrorIs(t, err, gcp.ErrProjectIDRequired)

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{DispatchFactsTable: "alert_dispatches"}, nil)
	assert.ErrorIs(t, err, errDatasetRequired)

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "alerts", DispatchFactsTable: " "}, nil)
	assert.ErrorIs(t, err, errTableRequired)
}

func TestNilClientGuards(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.InsertRows(context.Background(), "alert_dispatches", []any{1}), errClientNotInitialized)
	assert.ErrorIs(t, c.Ping(context.Background()), errClientNotInitialized)
	assert.NoError(t, c.Close())
}

func TestDescribeLookup(t *testing.T) {
	missing := describeLookup("table", "alert_dispatches", fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound}))
	assert.EqualError(t, missing, `table "alert_dispatches" does not exist`)

	denied := &googleapi.Error{Code: http.StatusForbidden}
	assert.ErrorIs(t, describeLookup("dataset", "alerts", denied), denied)
	assert.False(t, isNotFound(denied))
}
