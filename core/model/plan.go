package model

import "time"

// PlanMode distinguishes how a charging plan was requested.
type PlanMode int

const (
	// PlanEconomic lets the planner pick intervals under the price ceiling.
	PlanEconomic PlanMode = iota
	// PlanForced charges regardless of price to meet the deadline.
	PlanForced
)

func (m PlanMode) String() string {
	if m == PlanForced {
		return "forced"
	}
	return "economic"
}

// PlanStatus is the lifecycle state of a charging plan.
type PlanStatus int

const (
	PlanPlanned PlanStatus = iota
	PlanLocked
	PlanRunning
	PlanCompleted
	PlanCancelled
)

func (s PlanStatus) String() string {
	switch s {
	case PlanPlanned:
		return "planned"
	case PlanLocked:
		return "locked"
	case PlanRunning:
		return "running"
	case PlanCompleted:
		return "completed"
	case PlanCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether the status admits no further transitions.
func (s PlanStatus) Terminal() bool { return s == PlanCompleted || s == PlanCancelled }

// ChargingInterval is one committed grid-charge slot of a plan.
type ChargingInterval struct {
	Timestamp time.Time `json:"timestamp"`
	EnergyKWh float64   `json:"energy_kwh"`
	Price     float64   `json:"price"`
}

// TimeWindow is a half-open [Start, End) period.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether ts falls inside the window.
func (w TimeWindow) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// ChargingPlan is a committed "reach target SoC by deadline" request.
// Plans are immutable snapshots: lifecycle transitions produce a new value
// so concurrent readers always observe a consistent plan.
type ChargingPlan struct {
	ID                string             `json:"id"`
	Requester         string             `json:"requester"`
	Mode              PlanMode           `json:"mode"`
	TargetSoCPercent  float64            `json:"target_soc_percent"`
	Deadline          time.Time          `json:"deadline"`
	ChargingIntervals []ChargingInterval `json:"charging_intervals"`
	HoldingWindow     TimeWindow         `json:"holding_window"`
	Status            PlanStatus         `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
}

// FirstChargeAt returns the timestamp of the earliest charging interval.
func (p ChargingPlan) FirstChargeAt() time.Time {
	if len(p.ChargingIntervals) == 0 {
		return p.HoldingWindow.Start
	}
	first := p.ChargingIntervals[0].Timestamp
	for _, ci := range p.ChargingIntervals[1:] {
		if ci.Timestamp.Before(first) {
			first = ci.Timestamp
		}
	}
	return first
}

// TotalEnergyKWh sums the committed charging energy.
func (p ChargingPlan) TotalEnergyKWh() float64 {
	var e float64
	for _, ci := range p.ChargingIntervals {
		e += ci.EnergyKWh
	}
	return e
}

// TotalCost sums price*energy over the committed charging intervals.
func (p ChargingPlan) TotalCost() float64 {
	var c float64
	for _, ci := range p.ChargingIntervals {
		c += ci.EnergyKWh * ci.Price
	}
	return c
}

// WithStatus returns a copy of the plan in the given state.
func (p ChargingPlan) WithStatus(s PlanStatus) ChargingPlan {
	p.Status = s
	return p
}

// PlanConflict describes why a new request was rejected while another plan
// is active. It is data, not an error.
type PlanConflict struct {
	ActivePlanID       string     `json:"active_plan_id"`
	ActiveRequester    string     `json:"active_requester"`
	ActiveStatus       PlanStatus `json:"active_status"`
	ActiveHoldingEnd   time.Time  `json:"active_holding_end"`
	PredictedSoCKWh    float64    `json:"predicted_soc_kwh"`
	PredictedSoCPct    float64    `json:"predicted_soc_percent"`
	RequestedDeadline  time.Time  `json:"requested_deadline"`
	RequestedTargetPct float64    `json:"requested_target_percent"`
}

// PlanResultStatus classifies the outcome of a plan request.
type PlanResultStatus int

const (
	PlanResultOK PlanResultStatus = iota
	PlanResultPartial
	PlanResultConflict
)

func (s PlanResultStatus) String() string {
	switch s {
	case PlanResultOK:
		return "ok"
	case PlanResultPartial:
		return "partial"
	case PlanResultConflict:
		return "conflict"
	}
	return "unknown"
}

// PlanResult is the structured answer to a plan request. Infeasibility and
// conflicts are ordinary results, never errors.
type PlanResult struct {
	Feasible         bool             `json:"feasible"`
	Status           PlanResultStatus `json:"status"`
	Plan             *ChargingPlan    `json:"plan,omitempty"`
	AchievableSoCPct float64          `json:"achievable_soc_percent"`
	Conflict         *PlanConflict    `json:"conflict,omitempty"`
}

// Violation records a policy-floor breach found during simulation.
type Violation struct {
	Timestamp time.Time `json:"timestamp"`
	Index     int       `json:"index"`
	SoCKWh    float64   `json:"soc_kwh"`
	LimitKWh  float64   `json:"limit_kwh"`
}
