// Package plan implements the unified charging-plan manager: a single-slot
// lifecycle around "reach target SoC by deadline, then hold" requests from
// multiple subsystems, with structured conflict reporting.
package plan

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/battsched/battsched/core/events"
	"github.com/battsched/battsched/core/logger"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/core/sim"
	"github.com/battsched/battsched/internal/eventbus"
)

// Config tunes the plan manager.
type Config struct {
	// LockWindowMinutes is how long before the first charging interval a
	// PLANNED plan becomes LOCKED and can no longer be replanned.
	LockWindowMinutes int `json:"lock_window_minutes"`
	// MaxChargingPrice caps interval selection for economic requests.
	// Forced requests ignore it.
	MaxChargingPrice float64 `json:"max_charging_price"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.LockWindowMinutes == 0 {
		c.LockWindowMinutes = 60
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.LockWindowMinutes < 0 {
		return fmt.Errorf("lock_window_minutes must be >= 0, got %d", c.LockWindowMinutes)
	}
	return nil
}

func (c Config) lockWindow() time.Duration {
	return time.Duration(c.LockWindowMinutes) * time.Minute
}

// Request asks the manager to charge the battery to a target SoC by a
// deadline and hold it through the holding window.
type Request struct {
	Requester        string
	Mode             model.PlanMode
	TargetSoCPercent float64
	Deadline         time.Time
	HoldingDuration  time.Duration
}

// BaselineFunc returns the current simulated timeline. Interval selection
// only runs while no plan is active, so the timeline it sees carries no
// plan overlay; conflict prediction re-applies the active plan, which on
// an already-overlaid timeline reproduces the same points.
type BaselineFunc func() model.Timeline

// Manager owns the single active charging plan. It holds no lock of its
// own: every transition goes through the store's compare-and-swap commit,
// so concurrent writers can fail but never interleave.
type Manager struct {
	store    Store
	sim      *sim.Simulator
	cfg      Config
	baseline BaselineFunc
	bus      eventbus.EventBus
	log      logger.Logger
	now      func() time.Time
}

// NewManager wires a Manager. bus may be nil when no notifications are
// wanted.
func NewManager(store Store, s *sim.Simulator, cfg Config, baseline BaselineFunc, bus eventbus.EventBus, log logger.Logger) (*Manager, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || s == nil || baseline == nil {
		return nil, fmt.Errorf("plan manager requires store, simulator and baseline")
	}
	return &Manager{
		store:    store,
		sim:      s,
		cfg:      cfg,
		baseline: baseline,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}, nil
}

// Active returns the current plan, or nil.
func (m *Manager) Active() *model.ChargingPlan { return m.store.Get() }

// RequestPlan handles a charging-plan request. Infeasible targets and
// conflicts with the active plan come back as ordinary results; an error
// means the request itself was malformed.
func (m *Manager) RequestPlan(req Request) (model.PlanResult, error) {
	if err := m.validate(req); err != nil {
		return model.PlanResult{}, err
	}

	if active := m.store.Get(); active != nil && !active.Status.Terminal() {
		return m.conflict(active, req), nil
	}

	tl := m.baseline()
	params := m.sim.Params()
	targetKWh := params.SoCFromPercent(req.TargetSoCPercent)
	holding := model.TimeWindow{Start: req.Deadline, End: req.Deadline.Add(req.HoldingDuration)}

	intervals, achieved := m.selectIntervals(tl, req, targetKWh)
	achievedPct := params.SoCPercent(achieved)

	feasible := achieved+socEps >= targetKWh
	if !feasible {
		m.log.Warnf("plan request from %s infeasible: target %.1f%%, achievable %.1f%%",
			req.Requester, req.TargetSoCPercent, achievedPct)
		return model.PlanResult{
			Feasible:         false,
			Status:           model.PlanResultPartial,
			AchievableSoCPct: achievedPct,
			Plan: &model.ChargingPlan{
				Requester:         req.Requester,
				Mode:              req.Mode,
				TargetSoCPercent:  req.TargetSoCPercent,
				Deadline:          req.Deadline,
				ChargingIntervals: intervals,
				HoldingWindow:     holding,
			},
		}, nil
	}

	cp := model.ChargingPlan{
		ID:                uuid.NewString(),
		Requester:         req.Requester,
		Mode:              req.Mode,
		TargetSoCPercent:  req.TargetSoCPercent,
		Deadline:          req.Deadline,
		ChargingIntervals: intervals,
		HoldingWindow:     holding,
		Status:            model.PlanPlanned,
		CreatedAt:         m.now(),
	}
	if !m.store.Commit(&cp, nil) {
		// Lost the race to another writer between Get and Commit.
		if active := m.store.Get(); active != nil {
			return m.conflict(active, req), nil
		}
		return model.PlanResult{}, fmt.Errorf("plan store rejected commit")
	}
	m.log.Infof("plan %s committed for %s: %.1f%% by %s, %d charging intervals",
		cp.ID, cp.Requester, cp.TargetSoCPercent, cp.Deadline.Format(time.RFC3339), len(cp.ChargingIntervals))
	m.publish(events.PlanCommitted, cp)
	return model.PlanResult{
		Feasible:         true,
		Status:           model.PlanResultOK,
		Plan:             &cp,
		AchievableSoCPct: achievedPct,
	}, nil
}

// Cancel cancels the active plan. Only the requester that created it may
// cancel; a mismatch or a terminal plan returns false.
func (m *Manager) Cancel(requester string) bool {
	active := m.store.Get()
	if active == nil || active.Status.Terminal() {
		return false
	}
	if active.Requester != requester {
		m.log.Warnf("cancel of plan %s denied: owned by %s, requested by %s",
			active.ID, active.Requester, requester)
		return false
	}
	cancelled := active.WithStatus(model.PlanCancelled)
	if !m.store.Commit(&cancelled, active) {
		return false
	}
	m.log.Infof("plan %s cancelled by %s", active.ID, requester)
	m.publish(events.PlanCancelled, cancelled)
	return true
}

// Tick advances the plan lifecycle to the state implied by now. Calling it
// again with the same clock is a no-op.
func (m *Manager) Tick(now time.Time) {
	active := m.store.Get()
	if active == nil || active.Status.Terminal() {
		return
	}

	next := *active
	if next.Status == model.PlanPlanned && !now.Before(next.FirstChargeAt().Add(-m.cfg.lockWindow())) {
		next = next.WithStatus(model.PlanLocked)
	}
	if next.Status == model.PlanLocked && !now.Before(next.FirstChargeAt()) {
		next = next.WithStatus(model.PlanRunning)
	}
	if next.Status == model.PlanRunning && !now.Before(next.HoldingWindow.End) {
		next = next.WithStatus(model.PlanCompleted)
	}
	if next.Status == active.Status {
		return
	}

	if next.Status == model.PlanCompleted {
		// Completion frees the slot for the next request.
		if !m.store.Commit(nil, active) {
			return
		}
	} else if !m.store.Commit(&next, active) {
		return
	}
	m.log.Infof("plan %s is now %s", next.ID, next.Status)
	m.publish(actionFor(next.Status), next)
}

// Apply overlays the plan onto a simulated timeline: committed charging
// intervals run in AC charge mode, the holding window keeps the battery
// from discharging, and everything downstream is re-simulated.
func (m *Manager) Apply(tl model.Timeline, p *model.ChargingPlan) model.Timeline {
	if p == nil || tl.Len() == 0 {
		return tl
	}
	if !tl.HasPoints() {
		tl = m.sim.RunFixed(tl, model.BatteryPriority)
	}
	modes := sim.Modes(tl)
	reasons := make([]model.ReasonTag, tl.Len())
	for i := range reasons {
		reasons[i] = tl.Point(i).Reason
	}
	first := tl.Len()
	for _, ci := range p.ChargingIntervals {
		i := tl.IndexAt(ci.Timestamp)
		if i < 0 {
			continue
		}
		modes[i] = model.ACChargeHold
		reasons[i] = model.ReasonBalancingCharging
		if i < first {
			first = i
		}
	}
	for i := 0; i < tl.Len(); i++ {
		if p.HoldingWindow.Contains(tl.Interval(i).Timestamp) && modes[i] != model.ACChargeHold {
			modes[i] = model.GridSupplemented
			reasons[i] = model.ReasonBalancingHolding
			if i < first {
				first = i
			}
		}
	}
	if first == tl.Len() {
		return tl
	}
	out := m.sim.RunFrom(tl, modes, first)
	return out.WithReasons(reasons)
}

// PredictSoCAt simulates the baseline with the active plan applied and
// returns the expected SoC at ts.
func (m *Manager) PredictSoCAt(tl model.Timeline, p *model.ChargingPlan, ts time.Time) float64 {
	applied := m.Apply(tl, p)
	if applied.Len() == 0 || !applied.HasPoints() {
		return applied.SoCBefore(0)
	}
	i := applied.IndexAt(ts)
	switch {
	case i >= 0:
		return applied.SoCBefore(i)
	case ts.Before(applied.Start()):
		return applied.SoCBefore(0)
	default:
		return applied.FinalSoC()
	}
}

const socEps = 1e-9

func (m *Manager) validate(req Request) error {
	if req.Requester == "" {
		return fmt.Errorf("plan request requires a requester identity")
	}
	if req.TargetSoCPercent <= 0 || req.TargetSoCPercent > 100 {
		return fmt.Errorf("target SoC must be in (0, 100], got %.1f", req.TargetSoCPercent)
	}
	if req.HoldingDuration < 0 {
		return fmt.Errorf("holding duration must be >= 0, got %s", req.HoldingDuration)
	}
	if !req.Deadline.After(m.now()) {
		return fmt.Errorf("deadline %s is not in the future", req.Deadline.Format(time.RFC3339))
	}
	return nil
}

func (m *Manager) conflict(active *model.ChargingPlan, req Request) model.PlanResult {
	tl := m.baseline()
	predicted := m.PredictSoCAt(tl, active, req.Deadline)
	params := m.sim.Params()
	m.log.Warnf("plan request from %s conflicts with active plan %s (%s)",
		req.Requester, active.ID, active.Status)
	m.publish(events.PlanConflict, *active)
	return model.PlanResult{
		Feasible: false,
		Status:   model.PlanResultConflict,
		Conflict: &model.PlanConflict{
			ActivePlanID:       active.ID,
			ActiveRequester:    active.Requester,
			ActiveStatus:       active.Status,
			ActiveHoldingEnd:   active.HoldingWindow.End,
			PredictedSoCKWh:    predicted,
			PredictedSoCPct:    params.SoCPercent(predicted),
			RequestedDeadline:  req.Deadline,
			RequestedTargetPct: req.TargetSoCPercent,
		},
	}
}

// selectIntervals greedily fills the cheapest intervals before the deadline
// until the simulated SoC at the deadline reaches the target. It returns
// the committed intervals and the best SoC achieved.
func (m *Manager) selectIntervals(tl model.Timeline, req Request, targetKWh float64) ([]model.ChargingInterval, float64) {
	if tl.Len() == 0 {
		return nil, 0
	}
	var modes []model.Mode
	if tl.HasPoints() {
		modes = sim.Modes(tl)
	} else {
		modes = make([]model.Mode, tl.Len())
		for i := range modes {
			modes[i] = model.BatteryPriority
		}
	}
	base := m.sim.Run(tl, modes)

	achieved := socAt(base, req.Deadline)
	if achieved+socEps >= targetKWh {
		return nil, achieved
	}

	var candidates []int
	for i := 0; i < base.Len(); i++ {
		iv := base.Interval(i)
		if modes[i] == model.ACChargeHold {
			continue
		}
		if !iv.Timestamp.Before(req.Deadline) || iv.Timestamp.Before(m.now()) {
			continue
		}
		if req.Mode == model.PlanEconomic && m.cfg.MaxChargingPrice > 0 && iv.BuyPrice > m.cfg.MaxChargingPrice {
			continue
		}
		candidates = append(candidates, i)
	}
	sort.Slice(candidates, func(a, b int) bool {
		pa, pb := base.Interval(candidates[a]).BuyPrice, base.Interval(candidates[b]).BuyPrice
		if pa != pb {
			return pa < pb
		}
		return candidates[a] < candidates[b]
	})

	cur := base
	var picked []int
	for _, i := range candidates {
		prev := modes[i]
		modes[i] = model.ACChargeHold
		trial := m.sim.RunFrom(cur, modes, i)
		got := socAt(trial, req.Deadline)
		if got <= achieved+socEps {
			modes[i] = prev
			continue
		}
		cur, achieved = trial, got
		picked = append(picked, i)
		if achieved+socEps >= targetKWh {
			break
		}
	}

	sort.Ints(picked)
	intervals := make([]model.ChargingInterval, 0, len(picked))
	for _, i := range picked {
		iv := cur.Interval(i)
		intervals = append(intervals, model.ChargingInterval{
			Timestamp: iv.Timestamp,
			EnergyKWh: cur.Point(i).BatteryChargeKWh,
			Price:     iv.BuyPrice,
		})
	}
	return intervals, achieved
}

func socAt(tl model.Timeline, ts time.Time) float64 {
	if tl.Len() == 0 || !tl.HasPoints() {
		return 0
	}
	i := tl.IndexAt(ts)
	switch {
	case i >= 0:
		return tl.SoCBefore(i)
	case ts.Before(tl.Start()):
		return tl.SoCBefore(0)
	default:
		return tl.FinalSoC()
	}
}

func (m *Manager) publish(action events.PlanAction, cp model.ChargingPlan) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.PlanEvent{Action: action, Plan: cp, At: m.now()})
}

func actionFor(s model.PlanStatus) events.PlanAction {
	switch s {
	case model.PlanLocked:
		return events.PlanLocked
	case model.PlanRunning:
		return events.PlanRunning
	case model.PlanCompleted:
		return events.PlanCompleted
	case model.PlanCancelled:
		return events.PlanCancelled
	}
	return events.PlanCommitted
}
