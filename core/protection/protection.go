// Package protection derives the minimum SoC required by blackout and
// weather reserve policies.
package protection

import (
	"fmt"
	"strings"

	"github.com/battsched/battsched/core/model"
)

// WeatherRisk grades the forecast severity used by the weather sub-policy.
type WeatherRisk int

const (
	RiskLow WeatherRisk = iota
	RiskMedium
	RiskHigh
)

func (r WeatherRisk) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	}
	return "unknown"
}

// Multiplier returns the fraction of the weather target applied at this
// risk level.
func (r WeatherRisk) Multiplier() float64 {
	switch r {
	case RiskMedium:
		return 0.75
	case RiskHigh:
		return 1.0
	default:
		return 0.5
	}
}

// ParseWeatherRisk maps a configuration string to a risk level.
func ParseWeatherRisk(s string) (WeatherRisk, error) {
	switch strings.ToLower(s) {
	case "low", "":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	}
	return RiskLow, fmt.Errorf("unknown weather risk level %q", s)
}

// Config holds the reserve policy settings.
type Config struct {
	EnableBlackoutProtection bool    `json:"enable_blackout_protection"`
	BlackoutProtectionHours  int     `json:"blackout_protection_hours"`
	BlackoutTargetSoCPercent float64 `json:"blackout_target_soc_percent"`
	EnableWeatherRisk        bool    `json:"enable_weather_risk"`
	WeatherRiskLevel         string  `json:"weather_risk_level"`
	WeatherTargetSoCPercent  float64 `json:"weather_target_soc_percent"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.BlackoutProtectionHours == 0 {
		c.BlackoutProtectionHours = 12
	}
	if c.WeatherRiskLevel == "" {
		c.WeatherRiskLevel = "low"
	}
}

// Validate checks the policy settings.
func (c Config) Validate() error {
	if c.BlackoutProtectionHours < 0 {
		return fmt.Errorf("blackout_protection_hours must not be negative, got %d", c.BlackoutProtectionHours)
	}
	if c.BlackoutTargetSoCPercent < 0 || c.BlackoutTargetSoCPercent > 100 {
		return fmt.Errorf("blackout_target_soc_percent must be in [0,100], got %v", c.BlackoutTargetSoCPercent)
	}
	if c.WeatherTargetSoCPercent < 0 || c.WeatherTargetSoCPercent > 100 {
		return fmt.Errorf("weather_target_soc_percent must be in [0,100], got %v", c.WeatherTargetSoCPercent)
	}
	if _, err := ParseWeatherRisk(c.WeatherRiskLevel); err != nil {
		return err
	}
	return nil
}

// RequiredSoC returns the reserve SoC in kWh demanded by the enabled
// sub-policies, taking the maximum across them, never the sum. The second
// return value is false when no policy is enabled.
func RequiredSoC(tl model.Timeline, params model.BatteryParameters, cfg Config) (float64, bool) {
	var required float64
	enabled := false

	if cfg.EnableBlackoutProtection {
		enabled = true
		n := cfg.BlackoutProtectionHours * int(1/model.IntervalHours)
		if n > tl.Len() {
			n = tl.Len()
		}
		var loadSum float64
		for i := 0; i < n; i++ {
			loadSum += tl.Interval(i).LoadKWh
		}
		target := params.SoCFromPercent(cfg.BlackoutTargetSoCPercent)
		if loadSum > target {
			target = loadSum
		}
		if target > required {
			required = target
		}
	}

	if cfg.EnableWeatherRisk {
		enabled = true
		risk, err := ParseWeatherRisk(cfg.WeatherRiskLevel)
		if err != nil {
			risk = RiskLow
		}
		target := params.SoCFromPercent(cfg.WeatherTargetSoCPercent) * risk.Multiplier()
		if target > required {
			required = target
		}
	}

	if !enabled {
		return 0, false
	}
	if required > params.MaxCapacityKWh {
		required = params.MaxCapacityKWh
	}
	return required, true
}
