package alerts

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestIsProximityCandidate(t *testing.T) {
	cases := []struct {
		name     string
		distance float64
		enabled  bool
		want     bool
	}{
		{"inside", 1.5, true, true},
		{"on threshold", 2, true, true},
		{"outside", 2.01, true, false},
		{"disabled", 0.1, false, false},
		{"nan", math.NaN(), true, false},
	}
	for _, tc := range cases {
		if got := IsProximityCandidate(tc.distance, DefaultProximityKm, tc.enabled); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestIsBalanceCandidate(t *testing.T) {
	threshold := decimal.NewFromInt(100)
	if !IsBalanceCandidate(decimal.NewFromInt(50), threshold, true) {
		t.Fatal("50 < 100 must alert")
	}
	if IsBalanceCandidate(decimal.NewFromInt(100), threshold, true) {
		t.Fatal("balance equal to threshold must not alert")
	}
	if IsBalanceCandidate(decimal.NewFromInt(50), threshold, false) {
		t.Fatal("disabled balance alerts must not alert")
	}
}

func TestMessages(t *testing.T) {
	got := ProximityMessage("Kherki Daula", 1.46, decimal.RequireFromString("85.50"))
	if want := "Approaching Kherki Daula (1.5km away). Fee: ₹85.5"; got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
	got = BalanceMessage(decimal.NewFromInt(50), decimal.NewFromInt(100))
	if want := "Low balance: ₹50. Minimum threshold: ₹100"; got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}
