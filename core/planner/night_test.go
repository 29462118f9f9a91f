package planner

import (
	"math"
	"testing"
	"time"

	"github.com/battsched/battsched/core/model"
)

func surplusTimeline(now time.Time, surplusKWh, sellPrice float64) model.Timeline {
	// 24h horizon starting at 22:00; tomorrow's midday intervals carry the
	// PV surplus.
	n := 96
	intervals := make([]model.Interval, n)
	perInterval := surplusKWh / 16 // surplus spread over 4 midday hours
	for i := range intervals {
		ts := now.Add(time.Duration(i) * model.IntervalDuration)
		iv := model.Interval{Index: i, Timestamp: ts, BuyPrice: 3, SellPrice: sellPrice, LoadKWh: 0.2}
		if ts.Day() != now.Day() && ts.Hour() >= 10 && ts.Hour() < 14 {
			iv.SolarKWh = iv.LoadKWh + perInterval
		}
		intervals[i] = iv
	}
	return model.NewTimeline(intervals, 5)
}

func TestNightTargetReservesHeadroom(t *testing.T) {
	now := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	params := testParams()
	cfg := Config{ExpectedEveningPrice: 6}
	// 4 kWh of tomorrow surplus, sellable at only 0.5: reserving headroom
	// wins, target drops to 100 - 40 = 60%.
	tl := surplusTimeline(now, 4, 0.5)
	target := NightTarget(tl, params, cfg, now)
	if math.Abs(target-60) > 1e-9 {
		t.Fatalf("target = %v, want 60", target)
	}
}

func TestNightTargetFullWhenExportPaysBetter(t *testing.T) {
	now := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	params := testParams()
	cfg := Config{ExpectedEveningPrice: 1}
	// Selling at 4 beats storing at round-trip 0.9 valued at 1.
	tl := surplusTimeline(now, 4, 4)
	if target := NightTarget(tl, params, cfg, now); target != 100 {
		t.Fatalf("target = %v, want 100", target)
	}
}

func TestNightTargetClampedToBand(t *testing.T) {
	now := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	params := testParams()
	cfg := Config{ExpectedEveningPrice: 10}
	// A huge surplus would push the target below 50%; the band holds.
	tl := surplusTimeline(now, 9, 0.1)
	if target := NightTarget(tl, params, cfg, now); target != 50 {
		t.Fatalf("target = %v, want clamp at 50", target)
	}
}

func TestNightTargetFullWithoutSurplus(t *testing.T) {
	now := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	tl := surplusTimeline(now, 0, 2)
	if target := NightTarget(tl, testParams(), Config{ExpectedEveningPrice: 6}, now); target != 100 {
		t.Fatalf("target = %v, want 100", target)
	}
}
