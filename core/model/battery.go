package model

import "fmt"

// BatteryParameters describes the physical limits of the storage system.
// Efficiencies are fractions in (0,1]. The discharge efficiency models the
// battery-to-load conversion loss; the charge efficiency covers the PV and
// AC charging paths and is usually left at 1.
type BatteryParameters struct {
	MaxCapacityKWh      float64 `json:"max_capacity_kwh"`
	MinCapacityKWh      float64 `json:"min_capacity_kwh"`
	DischargeEfficiency float64 `json:"discharge_efficiency"`
	ChargeEfficiency    float64 `json:"charge_efficiency"`
	MaxChargePowerKW    float64 `json:"max_charge_power_kw"`
}

// Validate rejects malformed parameters before any computation starts.
func (p BatteryParameters) Validate() error {
	if p.MaxCapacityKWh <= 0 {
		return fmt.Errorf("max_capacity_kwh must be positive, got %v", p.MaxCapacityKWh)
	}
	if p.MinCapacityKWh < 0 || p.MinCapacityKWh > p.MaxCapacityKWh {
		return fmt.Errorf("min_capacity_kwh must be in [0, %v], got %v", p.MaxCapacityKWh, p.MinCapacityKWh)
	}
	if p.DischargeEfficiency <= 0 || p.DischargeEfficiency > 1 {
		return fmt.Errorf("discharge_efficiency must be in (0,1], got %v", p.DischargeEfficiency)
	}
	if p.ChargeEfficiency <= 0 || p.ChargeEfficiency > 1 {
		return fmt.Errorf("charge_efficiency must be in (0,1], got %v", p.ChargeEfficiency)
	}
	if p.MaxChargePowerKW <= 0 {
		return fmt.Errorf("max_charge_power_kw must be positive, got %v", p.MaxChargePowerKW)
	}
	return nil
}

// UsableCapacityKWh returns the span between the policy floor and the ceiling.
func (p BatteryParameters) UsableCapacityKWh() float64 {
	return p.MaxCapacityKWh - p.MinCapacityKWh
}

// SoCPercent converts an absolute SoC in kWh to percent of total capacity.
func (p BatteryParameters) SoCPercent(socKWh float64) float64 {
	return socKWh / p.MaxCapacityKWh * 100
}

// SoCFromPercent converts a percentage of total capacity to kWh.
func (p BatteryParameters) SoCFromPercent(pct float64) float64 {
	return pct / 100 * p.MaxCapacityKWh
}

// ClampSoC bounds a SoC value to the policy window.
func (p BatteryParameters) ClampSoC(socKWh float64) float64 {
	if socKWh < p.MinCapacityKWh {
		return p.MinCapacityKWh
	}
	if socKWh > p.MaxCapacityKWh {
		return p.MaxCapacityKWh
	}
	return socKWh
}
