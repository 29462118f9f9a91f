package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOptimization forwards the event to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordOptimization(ev OptimizationEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordOptimization(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordPlannerRun forwards planner runs to sinks that record them.
func (m *MultiSink) RecordPlannerRun(ev PlannerEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PlannerRecorder); ok {
			if err := rec.RecordPlannerRun(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPlanEvent forwards plan lifecycle changes to sinks that record them.
func (m *MultiSink) RecordPlanEvent(ev PlanLifecycleEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PlanRecorder); ok {
			if err := rec.RecordPlanEvent(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTimeline forwards timeline snapshots to sinks that record them.
func (m *MultiSink) RecordTimeline(snap TimelineSnapshot) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TimelineRecorder); ok {
			if err := rec.RecordTimeline(snap); err != nil {
				return err
			}
		}
	}
	return nil
}
