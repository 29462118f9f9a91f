package mqtt

import (
	"context"

	"github.com/battsched/battsched/core/events"
	"github.com/battsched/battsched/core/logger"
	coremqtt "github.com/battsched/battsched/core/mqtt"
	"github.com/battsched/battsched/internal/eventbus"
)

// Announcer forwards plan and timeline events from the bus to MQTT topics.
type Announcer struct {
	pub           coremqtt.Publisher
	bus           eventbus.EventBus
	planTopic     string
	timelineTopic string
	log           logger.Logger
}

// NewAnnouncer wires an Announcer. Topics come from the client Config so a
// single source configures both connection and routing.
func NewAnnouncer(pub coremqtt.Publisher, bus eventbus.EventBus, cfg Config, log logger.Logger) *Announcer {
	cfg.SetDefaults()
	return &Announcer{
		pub:           pub,
		bus:           bus,
		planTopic:     cfg.PlanTopic,
		timelineTopic: cfg.TimelineTopic,
		log:           log,
	}
}

// Run consumes bus events until the context is canceled or the bus closes.
func (a *Announcer) Run(ctx context.Context) {
	sub := a.bus.Subscribe()
	defer a.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			a.handle(e)
		}
	}
}

func (a *Announcer) handle(e eventbus.Event) {
	switch ev := e.(type) {
	case events.PlanEvent:
		if err := a.pub.Publish(a.planTopic, ev); err != nil {
			a.log.Errorf("publish plan event: %v", err)
		}
	case events.TimelineEvent:
		if err := a.pub.Publish(a.timelineTopic, ev); err != nil {
			a.log.Errorf("publish timeline event: %v", err)
		}
	}
}
