// Package events defines the notification payloads published on the event
// bus when plans change state or the scheduling timeline is refreshed.
package events

import (
	"time"

	"github.com/battsched/battsched/core/model"
)

// PlanAction identifies the lifecycle change carried by a PlanEvent.
type PlanAction string

const (
	PlanCommitted PlanAction = "committed"
	PlanLocked    PlanAction = "locked"
	PlanRunning   PlanAction = "running"
	PlanCompleted PlanAction = "completed"
	PlanCancelled PlanAction = "cancelled"
	PlanConflict  PlanAction = "conflict"
)

// PlanEvent is published whenever the active charging plan changes state.
type PlanEvent struct {
	Action PlanAction
	Plan   model.ChargingPlan
	At     time.Time
}

// TimelineEvent is published after each scheduling cycle with a summary of
// the freshly published timeline.
type TimelineEvent struct {
	RefreshedAt time.Time
	Start       time.Time
	Intervals   int
	TotalCost   float64
	FinalSoCKWh float64
}
