package alerts

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultProximityKm is the distance at which a toll plaza triggers an alert.
const DefaultProximityKm = 2.0

// IsProximityCandidate reports whether a plaza at distanceKm should alert.
// A NaN distance never qualifies.
func IsProximityCandidate(distanceKm, thresholdKm float64, enabled bool) bool {
	return enabled && distanceKm <= thresholdKm
}

// IsBalanceCandidate reports whether the balance is strictly below the threshold.
func IsBalanceCandidate(balance, threshold decimal.Decimal, enabled bool) bool {
	return enabled && balance.LessThan(threshold)
}

// ProximityMessage renders the in-app text of a proximity alert.
func ProximityMessage(plazaName string, distanceKm float64, fee decimal.Decimal) string {
	return fmt.Sprintf("Approaching %s (%.1fkm away). Fee: ₹%s", plazaName, distanceKm, fee.String())
}

// BalanceMessage renders the in-app text of a low balance alert.
func BalanceMessage(balance, threshold decimal.Decimal) string {
	return fmt.Sprintf("Low balance: ₹%s. Minimum threshold: ₹%s", balance.String(), threshold.String())
}
