package model

// Mode identifies an inverter operating strategy for one interval.
type Mode int

const (
	// BatteryPriority routes PV to the battery first; the load is served
	// from PV and battery, the grid only covers the shortfall.
	BatteryPriority Mode = iota
	// GridSupplemented serves the load from PV directly, charges the
	// battery with the surplus and imports the deficit. The battery never
	// discharges in this mode.
	GridSupplemented
	// SolarToBatteryOnly sends all PV to the battery through the uncapped
	// DC path while the load is served entirely from the grid.
	SolarToBatteryOnly
	// ACChargeHold charges the battery from the grid up to the configured
	// power limit in addition to PV. The load is served from the grid.
	ACChargeHold
)

// Modes enumerates all operating modes in their canonical order. The order
// is part of the optimizer's tie-breaking contract and must stay stable.
var Modes = [4]Mode{BatteryPriority, GridSupplemented, SolarToBatteryOnly, ACChargeHold}

func (m Mode) String() string {
	switch m {
	case BatteryPriority:
		return "battery_priority"
	case GridSupplemented:
		return "grid_supplemented"
	case SolarToBatteryOnly:
		return "solar_to_battery"
	case ACChargeHold:
		return "ac_charge_hold"
	}
	return "unknown"
}

// ReasonTag explains why a point ended up with its mode or charge.
type ReasonTag int

const (
	ReasonNormal ReasonTag = iota
	ReasonDeathValleyFix
	ReasonProtectionCharge
	ReasonBalancingCharging
	ReasonBalancingHolding
	ReasonEconomicCharge
)

func (r ReasonTag) String() string {
	switch r {
	case ReasonNormal:
		return "normal"
	case ReasonDeathValleyFix:
		return "death_valley_fix"
	case ReasonProtectionCharge:
		return "protection_charge"
	case ReasonBalancingCharging:
		return "balancing_charging"
	case ReasonBalancingHolding:
		return "balancing_holding"
	case ReasonEconomicCharge:
		return "economic_charge"
	}
	return "unknown"
}
