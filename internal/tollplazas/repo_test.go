package tollplazas

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tollwatch-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tollwatch-backend/pkg/db/models"
)

func TestListReturnsCatalogOrderedByName(t *testing.T) {
	client := dbtest.Open(t)
	plazas := []models.TollPlaza{
		{ID: uuid.New(), Name: "Kherki Daula", Latitude: 28.3956, Longitude: 76.9810, Fee: decimal.RequireFromString("85.50")},
		{ID: uuid.New(), Name: "DND Flyway", Latitude: 28.5672, Longitude: 77.2940, Fee: decimal.NewFromInt(40)},
	}
	if err := client.DB().Create(&plazas).Error; err != nil {
		t.Fatalf("seed plazas: %v", err)
	}

	got, err := NewRepository(client.DB()).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 plazas, got %d", len(got))
	}
	if got[0].Name != "DND Flyway" || got[1].Name != "Kherki Daula" {
		t.Fatalf("unexpected order %q, %q", got[0].Name, got[1].Name)
	}
	if !got[1].Fee.Equal(decimal.RequireFromString("85.5")) {
		t.Fatalf("unexpected fee %s", got[1].Fee)
	}
}

func TestListEmptyCatalog(t *testing.T) {
	client := dbtest.Open(t)
	got, err := NewRepository(client.DB()).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty catalog, got %d", len(got))
	}
}
