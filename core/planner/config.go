package planner

import "fmt"

// Config holds the charging policy settings shared by the planning
// strategies.
type Config struct {
	// EnableEconomicCharging selects the economic strategy instead of the
	// heuristic one.
	EnableEconomicCharging bool `json:"enable_economic_charging"`
	// MinSavingsMarginPerKWh is the minimum savings per charged kWh an
	// economic top-up must produce to be committed.
	MinSavingsMarginPerKWh float64 `json:"min_savings_margin_per_kwh"`
	// SafetyMarginPercent is added on top of the policy floor to form the
	// effective minimum used by the death-valley check.
	SafetyMarginPercent float64 `json:"safety_margin_percent"`
	// MinCapacityPercent is the policy floor the trajectory must not fall
	// below, in percent of capacity.
	MinCapacityPercent float64 `json:"min_capacity_percent"`
	// TargetCapacityPercent is the SoC the heuristic raises the end of
	// the horizon to once violations are cleared.
	TargetCapacityPercent float64 `json:"target_capacity_percent"`
	// MaxChargingPrice is the absolute price ceiling for planned charging.
	MaxChargingPrice float64 `json:"max_charging_price"`
	// ChargingPowerKW is the grid charging power. It must match the
	// battery's AC charge limit, which bounds one injected charge unit.
	ChargingPowerKW float64 `json:"charging_power_kw"`
	// MaxIterations caps the fixed-point iteration of both strategies.
	MaxIterations int `json:"max_iterations"`
	// PeakPercentile is the quantile of the horizon's buy prices used as
	// the heuristic's peak threshold.
	PeakPercentile float64 `json:"peak_percentile"`
	// EconomicHorizonHours bounds the forward simulation window of the
	// economic strategy.
	EconomicHorizonHours int `json:"economic_horizon_hours"`
	// ExpectedEveningPrice values reserved headroom in the night-target
	// comparison.
	ExpectedEveningPrice float64 `json:"expected_evening_price"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = 50
	}
	if c.PeakPercentile == 0 {
		c.PeakPercentile = 0.7
	}
	if c.EconomicHorizonHours == 0 {
		c.EconomicHorizonHours = 48
	}
	if c.TargetCapacityPercent == 0 {
		c.TargetCapacityPercent = 90
	}
}

// Validate checks the policy before any computation starts.
func (c Config) Validate() error {
	if c.MinCapacityPercent < 0 || c.MinCapacityPercent > 100 {
		return fmt.Errorf("min_capacity_percent must be in [0,100], got %v", c.MinCapacityPercent)
	}
	if c.TargetCapacityPercent < 0 || c.TargetCapacityPercent > 100 {
		return fmt.Errorf("target_capacity_percent must be in [0,100], got %v", c.TargetCapacityPercent)
	}
	if c.SafetyMarginPercent < 0 || c.SafetyMarginPercent > 100 {
		return fmt.Errorf("safety_margin_percent must be in [0,100], got %v", c.SafetyMarginPercent)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.PeakPercentile <= 0 || c.PeakPercentile >= 1 {
		return fmt.Errorf("peak_percentile must be in (0,1), got %v", c.PeakPercentile)
	}
	if c.ChargingPowerKW < 0 {
		return fmt.Errorf("charging_power_kw must not be negative, got %v", c.ChargingPowerKW)
	}
	return nil
}
