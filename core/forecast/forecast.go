// Package forecast merges price, solar and load forecasts into the 15-minute
// timeline the rest of the engine runs on.
package forecast

import (
	"context"
	"time"
)

// PricePoint is one forecast slot of grid prices.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Buy       float64   `json:"buy" yaml:"buy"`
	Sell      float64   `json:"sell" yaml:"sell"`
}

// EnergyPoint is one forecast slot of energy, production or consumption.
type EnergyPoint struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	KWh       float64   `json:"kwh" yaml:"kwh"`
}

// PriceFeed supplies grid buy and sell prices for a time range.
type PriceFeed interface {
	Prices(ctx context.Context, from, to time.Time) ([]PricePoint, error)
}

// SolarProvider supplies the PV production forecast for a time range.
type SolarProvider interface {
	Solar(ctx context.Context, from, to time.Time) ([]EnergyPoint, error)
}

// LoadProvider supplies the household consumption forecast for a time range.
type LoadProvider interface {
	Load(ctx context.Context, from, to time.Time) ([]EnergyPoint, error)
}
