package optimizer

import "fmt"

// Config defines the discretization and opportunity-cost settings of the
// dynamic-programming mode optimizer.
type Config struct {
	// SoCStepKWh is the SoC discretization step between the policy floor
	// and the capacity ceiling.
	SoCStepKWh float64 `json:"soc_step_kwh"`
	// AssumedPeakPrice is the reference evening-peak buy price used for
	// the opportunity-cost penalty on off-peak discharge. The upstream
	// system hard-coded this value; here it is configuration.
	AssumedPeakPrice float64 `json:"assumed_peak_price"`
	// PeakStartHour and PeakEndHour bound the evening peak window in
	// local hours, half-open [start, end).
	PeakStartHour int `json:"peak_start_hour"`
	PeakEndHour   int `json:"peak_end_hour"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.SoCStepKWh == 0 {
		c.SoCStepKWh = 0.5
	}
	if c.PeakStartHour == 0 && c.PeakEndHour == 0 {
		c.PeakStartHour = 17
		c.PeakEndHour = 21
	}
}

// Validate checks the configuration before any computation starts.
func (c Config) Validate() error {
	if c.SoCStepKWh <= 0 {
		return fmt.Errorf("soc_step_kwh must be positive, got %v", c.SoCStepKWh)
	}
	if c.AssumedPeakPrice < 0 {
		return fmt.Errorf("assumed_peak_price must not be negative, got %v", c.AssumedPeakPrice)
	}
	if c.PeakStartHour < 0 || c.PeakStartHour > 23 || c.PeakEndHour < 0 || c.PeakEndHour > 24 || c.PeakEndHour <= c.PeakStartHour {
		return fmt.Errorf("invalid peak window [%d, %d)", c.PeakStartHour, c.PeakEndHour)
	}
	return nil
}
