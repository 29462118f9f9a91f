package metrics

import (
	"context"

	"github.com/battsched/battsched/core/events"
	coremetrics "github.com/battsched/battsched/core/metrics"
	"github.com/battsched/battsched/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// plan lifecycle events. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.PlanRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				pe, ok := ev.(events.PlanEvent)
				if !ok {
					continue
				}
				_ = rec.RecordPlanEvent(coremetrics.PlanLifecycleEvent{
					PlanID:    pe.Plan.ID,
					Requester: pe.Plan.Requester,
					Action:    string(pe.Action),
					EnergyKWh: pe.Plan.TotalEnergyKWh(),
					Cost:      pe.Plan.TotalCost(),
					Time:      pe.At,
				})
			}
		}
	}()
}
