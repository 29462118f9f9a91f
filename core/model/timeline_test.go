package model

import (
	"testing"
	"time"
)

var testStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func sampleTimeline(n int, initialSoC float64) Timeline {
	intervals := make([]Interval, n)
	for i := range intervals {
		intervals[i] = Interval{
			Index:     i,
			Timestamp: testStart.Add(time.Duration(i) * IntervalDuration),
			BuyPrice:  2,
			LoadKWh:   0.5,
		}
	}
	return NewTimeline(intervals, initialSoC)
}

func points(socs ...float64) []SimulationPoint {
	out := make([]SimulationPoint, len(socs))
	for i, s := range socs {
		out[i] = SimulationPoint{Mode: BatteryPriority, SoCAfterKWh: s, NetCost: 1}
	}
	return out
}

func TestTimelineAccessors(t *testing.T) {
	tl := sampleTimeline(4, 5)
	if tl.Len() != 4 {
		t.Fatalf("len = %d", tl.Len())
	}
	if tl.HasPoints() {
		t.Fatal("fresh timeline should have no points")
	}
	if !tl.Start().Equal(testStart) {
		t.Fatalf("start = %s", tl.Start())
	}
	if want := testStart.Add(4 * IntervalDuration); !tl.End().Equal(want) {
		t.Fatalf("end = %s, want %s", tl.End(), want)
	}
}

func TestIndexAt(t *testing.T) {
	tl := sampleTimeline(4, 5)
	if i := tl.IndexAt(testStart); i != 0 {
		t.Fatalf("start index = %d", i)
	}
	if i := tl.IndexAt(testStart.Add(20 * time.Minute)); i != 1 {
		t.Fatalf("mid index = %d", i)
	}
	if i := tl.IndexAt(testStart.Add(-time.Minute)); i != -1 {
		t.Fatalf("before-range index = %d", i)
	}
	if i := tl.IndexAt(testStart.Add(2 * time.Hour)); i != -1 {
		t.Fatalf("after-range index = %d", i)
	}
}

func TestReplaceSuffixSharesPrefix(t *testing.T) {
	tl := sampleTimeline(4, 5).WithPoints(points(4.5, 4.0, 3.5, 3.0))

	out := tl.ReplaceSuffix(2, points(4.2, 4.4))
	if out.Point(0).SoCAfterKWh != 4.5 || out.Point(1).SoCAfterKWh != 4.0 {
		t.Fatal("prefix points changed")
	}
	if out.Point(2).SoCAfterKWh != 4.2 || out.Point(3).SoCAfterKWh != 4.4 {
		t.Fatal("suffix points not replaced")
	}
	// The original must be untouched even though the prefix is shared.
	if tl.Point(2).SoCAfterKWh != 3.5 || tl.Point(3).SoCAfterKWh != 3.0 {
		t.Fatal("replace mutated the source timeline")
	}
}

func TestSoCBeforeAndFinal(t *testing.T) {
	tl := sampleTimeline(3, 5).WithPoints(points(4.5, 4.0, 3.5))
	if got := tl.SoCBefore(0); got != 5 {
		t.Fatalf("SoCBefore(0) = %v", got)
	}
	if got := tl.SoCBefore(2); got != 4.0 {
		t.Fatalf("SoCBefore(2) = %v", got)
	}
	if got := tl.FinalSoC(); got != 3.5 {
		t.Fatalf("FinalSoC = %v", got)
	}
}

func TestMinSoC(t *testing.T) {
	tl := sampleTimeline(3, 5).WithPoints(points(4.5, 3.2, 4.8))
	min, idx := tl.MinSoC()
	if min != 3.2 || idx != 1 {
		t.Fatalf("min = %v at %d", min, idx)
	}

	// Initial SoC below every simulated point reports index -1.
	low := sampleTimeline(2, 2).WithPoints(points(3, 4))
	min, idx = low.MinSoC()
	if min != 2 || idx != -1 {
		t.Fatalf("initial min = %v at %d", min, idx)
	}
}

func TestWithReasons(t *testing.T) {
	tl := sampleTimeline(2, 5).WithPoints(points(4.5, 4.0))
	out := tl.WithReasons([]ReasonTag{ReasonDeathValleyFix, ReasonNormal})
	if out.Point(0).Reason != ReasonDeathValleyFix {
		t.Fatalf("reason not applied: %v", out.Point(0).Reason)
	}
	if tl.Point(0).Reason != ReasonNormal {
		t.Fatal("WithReasons mutated the source timeline")
	}
}

func TestTotalCost(t *testing.T) {
	tl := sampleTimeline(3, 5).WithPoints(points(4.5, 4.0, 3.5))
	if got := tl.TotalCost(); got != 3 {
		t.Fatalf("total cost = %v", got)
	}
}
