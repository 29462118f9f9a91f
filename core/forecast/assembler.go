package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/battsched/battsched/core/logger"
	"github.com/battsched/battsched/core/model"
)

// Config tunes the assembler.
type Config struct {
	// HorizonHours is how far ahead the assembled timeline reaches.
	HorizonHours int `json:"horizon_hours"`
	// FlatLoadKWh is the per-interval consumption assumed when the load
	// forecast has no data for a slot.
	FlatLoadKWh float64 `json:"flat_load_kwh"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.HorizonHours == 0 {
		c.HorizonHours = 48
	}
	if c.FlatLoadKWh == 0 {
		c.FlatLoadKWh = 0.1
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.HorizonHours < 1 {
		return fmt.Errorf("horizon_hours must be >= 1, got %d", c.HorizonHours)
	}
	if c.FlatLoadKWh < 0 {
		return fmt.Errorf("flat_load_kwh must not be negative, got %v", c.FlatLoadKWh)
	}
	return nil
}

// Assembler merges the three forecast feeds into a Timeline. Missing inputs
// degrade to tagged fallbacks instead of failing the whole assembly: prices
// carry forward, solar drops to zero, load falls back to a flat profile.
// Only a price feed with no usable data at all is an error.
type Assembler struct {
	prices PriceFeed
	solar  SolarProvider
	load   LoadProvider
	cfg    Config
	log    logger.Logger
}

// NewAssembler wires an Assembler.
func NewAssembler(prices PriceFeed, solar SolarProvider, load LoadProvider, cfg Config, log logger.Logger) (*Assembler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prices == nil {
		return nil, fmt.Errorf("assembler requires a price feed")
	}
	return &Assembler{prices: prices, solar: solar, load: load, cfg: cfg, log: log}, nil
}

// Assemble builds the timeline starting at the interval containing from.
func (a *Assembler) Assemble(ctx context.Context, from time.Time, initialSoC float64) (model.Timeline, error) {
	start := from.Truncate(model.IntervalDuration)
	n := a.cfg.HorizonHours * int(time.Hour/model.IntervalDuration)
	end := start.Add(time.Duration(n) * model.IntervalDuration)

	pricePts, err := a.prices.Prices(ctx, start, end)
	if err != nil {
		return model.Timeline{}, fmt.Errorf("price feed: %w", err)
	}
	priceAt := make(map[time.Time]PricePoint, len(pricePts))
	for _, p := range pricePts {
		priceAt[p.Timestamp.Truncate(model.IntervalDuration)] = p
	}

	solarAt, err := a.energyMap(ctx, a.solar, start, end)
	if err != nil {
		a.log.Warnf("solar forecast unavailable, assuming zero production: %v", err)
		solarAt = nil
	}
	loadAt, err := a.loadMap(ctx, start, end)
	if err != nil {
		a.log.Warnf("load forecast unavailable, using flat %0.2f kWh profile: %v", a.cfg.FlatLoadKWh, err)
		loadAt = nil
	}

	intervals := make([]model.Interval, n)
	var lastPrice PricePoint
	havePrice := false
	priceGaps, solarGaps, loadGaps := 0, 0, 0
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * model.IntervalDuration)
		iv := model.Interval{Index: i, Timestamp: ts}

		if p, ok := priceAt[ts]; ok {
			lastPrice, havePrice = p, true
			iv.BuyPrice, iv.SellPrice = p.Buy, p.Sell
		} else if havePrice {
			iv.BuyPrice, iv.SellPrice = lastPrice.Buy, lastPrice.Sell
			iv.Tags |= model.DataPriceMissing
			priceGaps++
		} else {
			return model.Timeline{}, fmt.Errorf("price feed has no data at or before %s", ts.Format(time.RFC3339))
		}

		if e, ok := solarAt[ts]; ok {
			iv.SolarKWh = e
		} else {
			iv.Tags |= model.DataSolarMissing
			solarGaps++
		}

		if e, ok := loadAt[ts]; ok {
			iv.LoadKWh = e
		} else {
			iv.LoadKWh = a.cfg.FlatLoadKWh
			iv.Tags |= model.DataLoadMissing
			loadGaps++
		}
		intervals[i] = iv
	}

	if priceGaps+solarGaps+loadGaps > 0 {
		a.log.Debugf("assembled %d intervals with fallbacks: %d price, %d solar, %d load",
			n, priceGaps, solarGaps, loadGaps)
	}
	return model.NewTimeline(intervals, initialSoC), nil
}

func (a *Assembler) energyMap(ctx context.Context, p SolarProvider, from, to time.Time) (map[time.Time]float64, error) {
	if p == nil {
		return nil, fmt.Errorf("no provider configured")
	}
	pts, err := p.Solar(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return indexEnergy(pts), nil
}

func (a *Assembler) loadMap(ctx context.Context, from, to time.Time) (map[time.Time]float64, error) {
	if a.load == nil {
		return nil, fmt.Errorf("no provider configured")
	}
	pts, err := a.load.Load(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return indexEnergy(pts), nil
}

func indexEnergy(pts []EnergyPoint) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(pts))
	for _, p := range pts {
		out[p.Timestamp.Truncate(model.IntervalDuration)] = p.KWh
	}
	return out
}
