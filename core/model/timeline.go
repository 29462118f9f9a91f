package model

import "time"

// Timeline pairs an ordered interval sequence with its simulated points.
// Timelines are value objects: operations return a new Timeline and never
// mutate the receiver, which makes atomic publication and what-if cloning
// safe without deep-copy bookkeeping. The prefix untouched by an operation
// is shared structurally via capped slices.
type Timeline struct {
	intervals []Interval
	points    []SimulationPoint
	// InitialSoC is the SoC in kWh before the first interval.
	InitialSoC float64
}

// NewTimeline builds a timeline from assembled intervals with no points yet.
func NewTimeline(intervals []Interval, initialSoC float64) Timeline {
	return Timeline{intervals: intervals, InitialSoC: initialSoC}
}

// Len returns the number of intervals.
func (t Timeline) Len() int { return len(t.intervals) }

// Interval returns the i-th interval.
func (t Timeline) Interval(i int) Interval { return t.intervals[i] }

// Intervals returns a copy of the interval sequence.
func (t Timeline) Intervals() []Interval {
	out := make([]Interval, len(t.intervals))
	copy(out, t.intervals)
	return out
}

// Point returns the i-th simulation point.
func (t Timeline) Point(i int) SimulationPoint { return t.points[i] }

// HasPoints reports whether the timeline has been simulated.
func (t Timeline) HasPoints() bool { return len(t.points) == len(t.intervals) && len(t.intervals) > 0 }

// Points returns a copy of the simulated points.
func (t Timeline) Points() []SimulationPoint {
	out := make([]SimulationPoint, len(t.points))
	copy(out, t.points)
	return out
}

// WithPoints returns a timeline carrying the given points. The slice is
// owned by the result afterwards.
func (t Timeline) WithPoints(points []SimulationPoint) Timeline {
	t.points = points
	return t
}

// ReplaceSuffix returns a timeline whose points from index i on are the
// given suffix. The prefix is shared with the receiver; the capped slice
// expression prevents appends from leaking into it.
func (t Timeline) ReplaceSuffix(i int, suffix []SimulationPoint) Timeline {
	t.points = append(t.points[:i:i], suffix...)
	return t
}

// WithReasons returns a timeline whose points carry the given reason tags.
// Entries beyond the reasons slice keep their current tag.
func (t Timeline) WithReasons(reasons []ReasonTag) Timeline {
	pts := make([]SimulationPoint, len(t.points))
	copy(pts, t.points)
	for i := range pts {
		if i < len(reasons) {
			pts[i].Reason = reasons[i]
		}
	}
	t.points = pts
	return t
}

// SoCBefore returns the SoC entering interval i.
func (t Timeline) SoCBefore(i int) float64 {
	if i == 0 {
		return t.InitialSoC
	}
	return t.points[i-1].SoCAfterKWh
}

// FinalSoC returns the SoC after the last interval.
func (t Timeline) FinalSoC() float64 {
	if len(t.points) == 0 {
		return t.InitialSoC
	}
	return t.points[len(t.points)-1].SoCAfterKWh
}

// MinSoC returns the minimum SoC reached over the horizon and its index.
// The index is -1 when the initial SoC is already the minimum.
func (t Timeline) MinSoC() (float64, int) {
	min := t.InitialSoC
	idx := -1
	for i, p := range t.points {
		if p.SoCAfterKWh < min {
			min = p.SoCAfterKWh
			idx = i
		}
	}
	return min, idx
}

// TotalCost sums the net cost of all points. Curtailment losses are
// reported separately and are not part of this figure.
func (t Timeline) TotalCost() float64 {
	var c float64
	for _, p := range t.points {
		c += p.NetCost
	}
	return c
}

// TotalCurtailed sums the curtailed PV energy over the horizon.
func (t Timeline) TotalCurtailed() float64 {
	var c float64
	for _, p := range t.points {
		c += p.CurtailedKWh
	}
	return c
}

// IndexAt returns the interval index covering ts, or -1 when outside the
// horizon.
func (t Timeline) IndexAt(ts time.Time) int {
	for i, iv := range t.intervals {
		if !ts.Before(iv.Timestamp) && ts.Before(iv.Timestamp.Add(IntervalDuration)) {
			return i
		}
	}
	return -1
}

// Start returns the timestamp of the first interval.
func (t Timeline) Start() time.Time {
	if len(t.intervals) == 0 {
		return time.Time{}
	}
	return t.intervals[0].Timestamp
}

// End returns the timestamp just past the last interval.
func (t Timeline) End() time.Time {
	if len(t.intervals) == 0 {
		return time.Time{}
	}
	return t.intervals[len(t.intervals)-1].Timestamp.Add(IntervalDuration)
}
