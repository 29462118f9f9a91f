package model

import "time"

// IntervalDuration is the fixed scheduling cadence.
const IntervalDuration = 15 * time.Minute

// IntervalHours is the interval length expressed in hours, used to convert
// power limits (kW) into per-interval energy (kWh).
const IntervalHours = 0.25

// DataTag flags degraded forecast inputs on an interval.
type DataTag uint8

const (
	// DataPriceMissing marks an interval whose price was carried forward
	// over a signaled feed gap.
	DataPriceMissing DataTag = 1 << iota
	// DataSolarMissing marks an interval past the solar forecast horizon.
	DataSolarMissing
	// DataLoadMissing marks an interval served by the flat load fallback.
	DataLoadMissing
)

// Interval is one 15-minute slot of merged forecast inputs. Intervals are
// immutable; a forecast refresh replaces the whole sequence.
type Interval struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	BuyPrice  float64   `json:"buy_price"`
	SellPrice float64   `json:"sell_price"`
	SolarKWh  float64   `json:"solar_kwh"`
	LoadKWh   float64   `json:"load_kwh"`
	Tags      DataTag   `json:"tags,omitempty"`
}

// Degraded reports whether any forecast input was substituted by a fallback.
func (iv Interval) Degraded() bool { return iv.Tags != 0 }

// SimulationPoint is the outcome of simulating one interval.
type SimulationPoint struct {
	Mode                Mode      `json:"mode"`
	Reason              ReasonTag `json:"reason"`
	SoCAfterKWh         float64   `json:"soc_after_kwh"`
	GridImportKWh       float64   `json:"grid_import_kwh"`
	GridExportKWh       float64   `json:"grid_export_kwh"`
	BatteryChargeKWh    float64   `json:"battery_charge_kwh"`
	BatteryDischargeKWh float64   `json:"battery_discharge_kwh"`
	NetCost             float64   `json:"net_cost"`
	CurtailedKWh        float64   `json:"curtailed_kwh"`
	DivertedKWh         float64   `json:"diverted_kwh,omitempty"`
	FloorClamped        bool      `json:"floor_clamped,omitempty"`
	CeilClamped         bool      `json:"ceil_clamped,omitempty"`
}

// Cycling returns the battery throughput of the point, used by the
// optimizer to break cost ties in favour of less wear.
func (p SimulationPoint) Cycling() float64 {
	return p.BatteryChargeKWh + p.BatteryDischargeKWh
}
