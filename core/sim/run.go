package sim

import "github.com/battsched/battsched/core/model"

// Run materializes the points of a timeline using one mode per interval.
// modes must have the same length as the timeline.
func (s *Simulator) Run(tl model.Timeline, modes []model.Mode) model.Timeline {
	points := make([]model.SimulationPoint, tl.Len())
	soc := tl.InitialSoC
	for i := 0; i < tl.Len(); i++ {
		points[i] = s.Simulate(modes[i], tl.Interval(i), soc)
		soc = points[i].SoCAfterKWh
	}
	return tl.WithPoints(points)
}

// RunFrom re-simulates the timeline from index i on, keeping earlier
// points. The returned timeline shares the untouched prefix.
func (s *Simulator) RunFrom(tl model.Timeline, modes []model.Mode, i int) model.Timeline {
	suffix := make([]model.SimulationPoint, 0, tl.Len()-i)
	soc := tl.SoCBefore(i)
	for t := i; t < tl.Len(); t++ {
		pt := s.Simulate(modes[t], tl.Interval(t), soc)
		soc = pt.SoCAfterKWh
		suffix = append(suffix, pt)
	}
	return tl.ReplaceSuffix(i, suffix)
}

// RunFixed simulates the whole timeline with one mode everywhere.
func (s *Simulator) RunFixed(tl model.Timeline, mode model.Mode) model.Timeline {
	modes := make([]model.Mode, tl.Len())
	for i := range modes {
		modes[i] = mode
	}
	return s.Run(tl, modes)
}

// Modes extracts the per-interval mode assignment of a simulated timeline.
func Modes(tl model.Timeline) []model.Mode {
	modes := make([]model.Mode, tl.Len())
	for i := range modes {
		modes[i] = tl.Point(i).Mode
	}
	return modes
}

// Violations scans a simulated timeline for points below the given floor.
func Violations(tl model.Timeline, floorKWh float64) []model.Violation {
	var out []model.Violation
	for i := 0; i < tl.Len(); i++ {
		p := tl.Point(i)
		if p.SoCAfterKWh < floorKWh-1e-9 {
			out = append(out, model.Violation{
				Timestamp: tl.Interval(i).Timestamp,
				Index:     i,
				SoCKWh:    p.SoCAfterKWh,
				LimitKWh:  floorKWh,
			})
		}
	}
	return out
}
