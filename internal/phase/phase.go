// Package phase implements the flight-phase classifier: an 8-state
// machine inferring coarse flight phase from telemetry (spec §4.1).
// The enum-with-String idiom is grounded on the teacher's
// failsafe.FlightMode/HealthStatus pattern.
package phase

import (
	"time"

	"github.com/flightcore/copilot/internal/flightdata"
)

// Phase is the coarse flight-state label.
type Phase int

const (
	Preflight Phase = iota
	Taxi
	Takeoff
	Climb
	Cruise
	Descent
	Approach
	Landing
)

// String renders the phase for logs and callbacks.
func (p Phase) String() string {
	names := []string{"PREFLIGHT", "TAXI", "TAKEOFF", "CLIMB", "CRUISE", "DESCENT", "APPROACH", "LANDING"}
	if int(p) < len(names) {
		return names[p]
	}
	return "UNKNOWN"
}

// ATCView is the read-only slice of ATC state the classifier needs.
// Implemented by *atc.Controller; held as a borrowed interface rather
// than an owning back-pointer (DESIGN NOTES' cyclic-ownership fix).
type ATCView interface {
	// Attached reports whether an ATC controller is wired in at all.
	Attached() bool
	// PhaseName returns the ATC controller's current state name.
	PhaseName() string
}

// Config holds the classifier's tunable inputs (spec §4.1).
type Config struct {
	TargetCruiseAltFt float64
	FieldElevationFt  float64
	DestDistNm        float64
}

// Classifier is the flight-phase state machine.
type Classifier struct {
	state      Phase
	enteredAt  time.Time
	overridden bool

	onChange func(old, new Phase)
}

// NewClassifier creates a classifier starting in PREFLIGHT.
func NewClassifier() *Classifier {
	return &Classifier{state: Preflight, enteredAt: time.Now()}
}

// OnPhaseChange registers the callback fired exactly when state
// changes (spec §4.1).
func (c *Classifier) OnPhaseChange(fn func(old, new Phase)) {
	c.onChange = fn
}

// State returns the current phase.
func (c *Classifier) State() Phase { return c.state }

// ForcePhase bypasses all transitions until AutoResume is called
// (manual override, spec §4.1).
func (c *Classifier) ForcePhase(p Phase) {
	c.overridden = true
	c.transition(p)
}

// AutoResume re-enables automatic transitions.
func (c *Classifier) AutoResume() {
	c.overridden = false
}

func (c *Classifier) transition(next Phase) {
	if next == c.state {
		return
	}
	old := c.state
	c.state = next
	c.enteredAt = time.Now()
	if c.onChange != nil {
		c.onChange(old, next)
	}
}

func (c *Classifier) phaseAge(now time.Time) time.Duration {
	return now.Sub(c.enteredAt)
}

// Update runs one tick of the classifier against the latest snapshot.
// It never errors (spec "phase never errors"): unknown/anomalous
// inputs simply leave the state unchanged.
func (c *Classifier) Update(snap flightdata.Snapshot, cfg Config, atcView ATCView, now time.Time) Phase {
	if c.overridden {
		return c.state
	}

	onGround := snap.OnGround()
	engineOn := snap.EngineRunning()
	age := c.phaseAge(now)

	// Catch-up at startup.
	if (c.state == Preflight || c.state == Taxi) && !onGround && snap.Position.AltAGL > 100 && snap.Motion.IAS > 30 {
		c.transition(catchUpPhase(snap, cfg))
		return c.state
	}

	// Ground reset: airborne-or-takeoff state with engine off and now
	// on ground reverts to PREFLIGHT, except LANDING runs its own
	// ground transition below.
	if onGround && !engineOn && isAirborneOrTakeoff(c.state) && c.state != Landing {
		c.transition(Preflight)
		return c.state
	}

	switch c.state {
	case Preflight:
		if (engineOn || snap.Config.ThrottlePct > 10) && onGround {
			c.transition(Taxi)
		}
	case Taxi:
		atcGatesTakeoff := !atcView.Attached() || atcView.PhaseName() == "INACTIVE" || atcView.PhaseName() == "CLEARED_TAKEOFF"
		if snap.Motion.GS > 25 && onGround && atcGatesTakeoff {
			c.transition(Takeoff)
		}
	case Takeoff:
		if !onGround && snap.Position.AltAGL > 500 {
			c.transition(Climb)
		}
	case Climb:
		if snap.Position.AltMSL >= cfg.TargetCruiseAltFt-200 {
			c.transition(Cruise)
		}
	case Cruise:
		tod := (snap.Position.AltMSL - cfg.FieldElevationFt) / 1000 * 3
		switch {
		case cfg.DestDistNm < tod && cfg.DestDistNm < 100:
			c.transition(Descent)
		case snap.Motion.VS < -300 && snap.Position.AltMSL < cfg.TargetCruiseAltFt-500 && age > 30*time.Second:
			c.transition(Descent)
		case snap.Position.AltMSL > cfg.TargetCruiseAltFt+500 && age > 5*time.Second:
			c.transition(Descent)
		}
	case Descent:
		approachEngaged := snap.Nav.ApproachMode
		if snap.Position.AltAGL < 2000 || (approachEngaged && snap.Position.AltAGL < 3000) {
			c.transition(Approach)
		}
	case Approach:
		if snap.Position.AltAGL < 200 && snap.Config.GearDown {
			c.transition(Landing)
		} else if snap.Position.AltMSL > cfg.TargetCruiseAltFt-500 && snap.Motion.VS > 300 {
			c.transition(Climb) // go-around
		}
	case Landing:
		if onGround && snap.Motion.GS < 30 {
			c.transition(Taxi)
		}
	}

	return c.state
}

func isAirborneOrTakeoff(p Phase) bool {
	switch p {
	case Takeoff, Climb, Cruise, Descent, Approach:
		return true
	default:
		return false
	}
}

func catchUpPhase(snap flightdata.Snapshot, cfg Config) Phase {
	switch {
	case snap.Position.AltAGL < 3000 && (snap.Nav.ApproachMode || snap.Position.AltAGL < 2000):
		return Approach
	case snap.Motion.VS > 300:
		return Climb
	case snap.Position.AltMSL >= cfg.TargetCruiseAltFt-200:
		return Cruise
	default:
		return Climb
	}
}
