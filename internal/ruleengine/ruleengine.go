// Package ruleengine is the per-phase control law: given the current
// flight phase, telemetry, and the ATC/envelope/terrain collaborators,
// it emits the command set that tracks the phase's objectives while
// respecting the flight envelope (spec §4.3).
//
// The per-phase dispatch and FlightCommand-shaped output are grounded
// on the teacher's internal/ai/decision_engine.go; the output itself
// uses the tagged-union queue.Command rather than the teacher's
// untyped command map. The protection-band ladder is grounded on the
// teacher's failsafe.EmergencySystem procedure-escalation idiom,
// repurposed from airframe-health procedures to envelope bands.
package ruleengine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flightcore/copilot/internal/envelope"
	"github.com/flightcore/copilot/internal/flightdata"
	"github.com/flightcore/copilot/internal/phase"
	"github.com/flightcore/copilot/internal/queue"
	"github.com/flightcore/copilot/internal/terrain"
)

// ATCView is the read-only slice of ATC state the rule engine needs:
// the ground controller's phase name (for TAXI hold-short gating) and
// the bearing to its next waypoint (lateral-nav fallback during
// TAXI). Implemented by *atc.Controller and held as a borrowed
// interface, never an owning back-pointer (DESIGN NOTES).
type ATCView interface {
	PhaseName() string
	NextWaypointBearing(lat, lon float64) (bearingDeg float64, ok bool)
}

const terrainCheckInterval = 2 * time.Second

// Engine evaluates the control law once per tick.
type Engine struct {
	profile      flightdata.Profile
	envCalc      *envelope.Calculator
	terrainGuard *terrain.Guard
	logger       *logrus.Entry

	rollBias         float64
	lastPitchDeg     float64
	lastTerrainCheck time.Time
	lastAutoStart    time.Time

	takeoff *takeoffState
}

// New builds an Engine bound to a profile and its derived envelope
// calculator and terrain guard.
func New(profile flightdata.Profile, envCalc *envelope.Calculator, terrainGrid terrain.Grid, logger *logrus.Entry) *Engine {
	return &Engine{
		profile:      profile,
		envCalc:      envCalc,
		terrainGuard: terrain.NewGuard(terrainGrid),
		logger:       logger,
	}
}

// ComputeEnvelope exposes the current dynamic flight envelope for
// callers building a live snapshot outside of Evaluate.
func (e *Engine) ComputeEnvelope(snap flightdata.Snapshot, fuel envelope.FuelState) envelope.Snapshot {
	return e.envCalc.Compute(snap, fuel)
}

// SetTakeoffHold gates a takeoff sub-phase transition for the tuner UI
// (spec §4.3.2's "phase-hold flag").
func (e *Engine) SetTakeoffHold(sp TakeoffSubPhase, held bool) {
	if e.takeoff == nil {
		e.takeoff = newTakeoffState()
	}
	e.takeoff.holds[sp] = held
}

// Evaluate runs one tick of the control law, returning the commands to
// enqueue. apEngaged reflects whether the autopilot master is
// currently on, used to decide whether protection bands must act
// directly on axes instead of via AP setpoints.
func (e *Engine) Evaluate(snap flightdata.Snapshot, ph phase.Phase, cfg phase.Config, atcView ATCView, fuel envelope.FuelState, apEngaged bool, now time.Time) []queue.Command {
	if ph != phase.Takeoff {
		e.takeoff = nil
	}

	var cmds []queue.Command
	switch ph {
	case phase.Preflight:
		cmds = e.evaluatePreflight(snap)
	case phase.Taxi:
		cmds = e.evaluateTaxi(snap, atcView, now)
	case phase.Takeoff:
		cmds = e.evaluateTakeoff(snap, now)
	case phase.Climb:
		cmds = e.evaluateClimb(snap, cfg, atcView)
	case phase.Cruise:
		cmds = e.evaluateCruise(snap, cfg, atcView)
	case phase.Descent:
		cmds = e.evaluateDescent(snap, cfg, atcView)
	case phase.Approach:
		cmds = e.evaluateApproach(snap)
	case phase.Landing:
		cmds = e.evaluateLanding(snap)
	}

	if airborneBandsApply(ph) {
		env := e.envCalc.Compute(snap, fuel)
		cmds = append(cmds, e.evaluateProtectionBands(snap, env, apEngaged)...)

		if now.Sub(e.lastTerrainCheck) >= terrainCheckInterval {
			e.lastTerrainCheck = now
			if alert := e.terrainGuard.Evaluate(snap, snap.TAWS); alert.Severity == terrain.SeverityWarning {
				cmds = append(cmds, queue.NewSetValue(queue.KindAPAltVarSet, alert.ClimbTargetFt, "terrain avoidance climb", queue.PriorityHigh))
			}
		}
	}

	e.updateRollBias(snap)
	return cmds
}

func airborneBandsApply(ph phase.Phase) bool {
	switch ph {
	case phase.Taxi, phase.Preflight, phase.Takeoff:
		return false
	default:
		return true
	}
}

func (e *Engine) updateRollBias(snap flightdata.Snapshot) {
	powerFactor := snap.Config.ThrottlePct / 100
	e.rollBias = e.rollBias*0.97 - snap.Attitude.BankDeg*0.02*powerFactor
	e.rollBias = clampf(e.rollBias, -20, 20)
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// angleDiff returns the shortest signed angular difference to - from,
// normalized to [-180, 180).
func angleDiff(from, to float64) float64 {
	d := to - from
	for d < -180 {
		d += 360
	}
	for d >= 180 {
		d -= 360
	}
	return d
}
