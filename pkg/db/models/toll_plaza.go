package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TollPlaza is a catalog entry consumed read-only by the proximity scanner.
type TollPlaza struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name      string          `gorm:"type:text;not null"`
	Latitude  float64         `gorm:"not null"`
	Longitude float64         `gorm:"not null"`
	Fee       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}
