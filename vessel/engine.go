package vessel

import "time"

// Engine owns the state of one run and advances it one tick at a time. It has
// no clock of its own; Simulator drives it from a ticker, tests drive it
// directly.
type Engine struct {
	plan      Plan
	snapToEnd bool
	state     State
}

// NewEngine creates an engine positioned on the plan's start point
func NewEngine(plan Plan, snapToEnd bool) (*Engine, error) {
	if !plan.Finite() {
		return nil, ErrDegeneratePlan
	}

	ticks := plan.Ticks
	if snapToEnd && ticks > 0 {
		ticks++
	}

	return &Engine{
		plan:      plan,
		snapToEnd: snapToEnd,
		state: State{
			Position:       plan.Start,
			HeadingDegrees: plan.HeadingDegrees,
			StepIndex:      0,
			TotalSteps:     plan.TotalSteps,
			Ticks:          ticks,
			Phase:          PhaseRunning,
		},
	}, nil
}

// Tick advances the run. It returns the update to emit and true, or false
// once every step has been emitted, at which point the run is completed.
func (e *Engine) Tick(now time.Time) (Update, bool) {
	if e.state.Phase != PhaseRunning {
		return Update{}, false
	}

	step := e.state.StepIndex
	var position Coordinate
	arrived := false

	switch {
	case step < e.plan.Ticks:
		position = e.plan.PositionAt(step)
	case e.snapToEnd && step == e.plan.Ticks && step > 0:
		position = e.plan.End
		arrived = true
	default:
		e.state.Phase = PhaseCompleted
		return Update{}, false
	}

	e.state.Position = position
	e.state.StepIndex++

	return Update{
		Step:           step,
		Position:       position,
		HeadingDegrees: e.plan.HeadingDegrees,
		CourseDegrees:  e.plan.CourseDegrees,
		SpeedKmH:       e.plan.SpeedKmH,
		Arrived:        arrived,
		Timestamp:      now,
	}, true
}

// Cancel ends the run early; further ticks emit nothing
func (e *Engine) Cancel() {
	if e.state.Phase == PhaseRunning {
		e.state.Phase = PhaseCancelled
	}
}

// State returns a copy of the current run state
func (e *Engine) State() State {
	return e.state
}

// Plan returns the plan the engine was built from
func (e *Engine) Plan() Plan {
	return e.plan
}

// Emitted returns the number of updates produced so far
func (e *Engine) Emitted() int {
	return e.state.StepIndex
}
