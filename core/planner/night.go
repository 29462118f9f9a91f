package planner

import (
	"time"

	"github.com/battsched/battsched/core/model"
)

// Night-target bounds: when reserving headroom for tomorrow's surplus the
// overnight target stays within this band.
const (
	nightTargetMinPct = 50
	nightTargetMaxPct = 95
)

// NightTarget decides the overnight target SoC in percent. Filling to 100%
// is not automatically best: headroom kept free for tomorrow's expected
// solar surplus is worth the surplus discounted by round-trip efficiency at
// the expected evening price, whereas a full battery forces that surplus to
// be exported. The larger value wins; a reserving target is clamped to
// [50%, 95%].
func NightTarget(tl model.Timeline, params model.BatteryParameters, cfg Config, now time.Time) float64 {
	surplus, avgSell := tomorrowSurplus(tl, now)
	if surplus <= 0 {
		return 100
	}
	reserve := surplus
	if usable := params.UsableCapacityKWh(); reserve > usable {
		reserve = usable
	}
	roundTrip := params.ChargeEfficiency * params.DischargeEfficiency
	reserveValue := reserve * roundTrip * cfg.ExpectedEveningPrice
	exportValue := reserve * avgSell
	if reserveValue <= exportValue {
		return 100
	}
	target := 100 - reserve/params.MaxCapacityKWh*100
	if target < nightTargetMinPct {
		target = nightTargetMinPct
	}
	if target > nightTargetMaxPct {
		target = nightTargetMaxPct
	}
	return target
}

// tomorrowSurplus sums the expected PV surplus of the next calendar day and
// the average sell price over its surplus intervals.
func tomorrowSurplus(tl model.Timeline, now time.Time) (float64, float64) {
	tomorrow := now.AddDate(0, 0, 1)
	y, m, d := tomorrow.Date()
	var surplus, sellSum float64
	var count int
	for i := 0; i < tl.Len(); i++ {
		iv := tl.Interval(i)
		iy, im, id := iv.Timestamp.Date()
		if iy != y || im != m || id != d {
			continue
		}
		if extra := iv.SolarKWh - iv.LoadKWh; extra > 0 {
			surplus += extra
			sellSum += iv.SellPrice
			count++
		}
	}
	if count == 0 {
		return surplus, 0
	}
	return surplus, sellSum / float64(count)
}
