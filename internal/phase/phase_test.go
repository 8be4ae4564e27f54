package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightcore/copilot/internal/flightdata"
)

// stubATC stands in for the ATC controller, with a configurable
// attached flag and phase name.
type stubATC struct {
	attached bool
	name     string
}

func (s stubATC) Attached() bool    { return s.attached }
func (s stubATC) PhaseName() string { return s.name }

var noATC = stubATC{attached: false}

func groundedSnapshot() flightdata.Snapshot {
	return flightdata.Snapshot{
		Position: flightdata.Position{AltAGL: 0},
		Motion:   flightdata.Motion{VS: 0},
	}
}

// Invariant 1: the classifier's next state is a pure function of
// (previous state, current snapshot) — running Update twice from the
// same starting state with the same snapshot and time must agree.
func TestUpdateIsPureFunctionOfStateAndSnapshot(t *testing.T) {
	cfg := Config{TargetCruiseAltFt: 6500}
	snap := flightdata.Snapshot{
		Engine:   flightdata.Engine{Running: true},
		Config:   flightdata.Config{ThrottlePct: 50},
		Position: flightdata.Position{AltAGL: 0},
	}
	now := time.Now()

	c1 := NewClassifier()
	got1 := c1.Update(snap, cfg, noATC, now)

	c2 := NewClassifier()
	got2 := c2.Update(snap, cfg, noATC, now)

	assert.Equal(t, got1, got2)
}

func TestPreflightToTaxiOnEngineStart(t *testing.T) {
	c := NewClassifier()
	require.Equal(t, Preflight, c.State())

	snap := groundedSnapshot()
	snap.Engine.Running = true

	got := c.Update(snap, Config{}, noATC, time.Now())
	assert.Equal(t, Taxi, got)
}

func TestTaxiToTakeoffRequiresGroundSpeedAndATCClearance(t *testing.T) {
	c := NewClassifier()
	c.transition(Taxi)

	snap := groundedSnapshot()
	snap.Motion.GS = 30

	// ATC attached and holding short: no takeoff transition yet.
	got := c.Update(snap, Config{}, stubATC{attached: true, name: "HOLD_SHORT"}, time.Now())
	assert.Equal(t, Taxi, got)

	got = c.Update(snap, Config{}, stubATC{attached: true, name: "CLEARED_TAKEOFF"}, time.Now())
	assert.Equal(t, Takeoff, got)
}

func TestTakeoffToClimbAboveAGLThreshold(t *testing.T) {
	c := NewClassifier()
	c.transition(Takeoff)

	snap := flightdata.Snapshot{Position: flightdata.Position{AltAGL: 600}, Motion: flightdata.Motion{VS: 800}}
	got := c.Update(snap, Config{}, noATC, time.Now())
	assert.Equal(t, Climb, got)
}

func TestClimbToCruiseNearTargetAltitude(t *testing.T) {
	c := NewClassifier()
	c.transition(Climb)

	cfg := Config{TargetCruiseAltFt: 6500}
	snap := flightdata.Snapshot{Position: flightdata.Position{AltMSL: 6400, AltAGL: 6000}, Motion: flightdata.Motion{VS: 200}}
	got := c.Update(snap, cfg, noATC, time.Now())
	assert.Equal(t, Cruise, got)
}

func TestCruiseToDescentNearDestination(t *testing.T) {
	c := NewClassifier()
	c.transition(Cruise)

	cfg := Config{TargetCruiseAltFt: 6500, FieldElevationFt: 0, DestDistNm: 5}
	snap := flightdata.Snapshot{Position: flightdata.Position{AltMSL: 6500, AltAGL: 6500}}
	got := c.Update(snap, cfg, noATC, time.Now())
	assert.Equal(t, Descent, got)
}

func TestDescentToApproachBelowAGLFloor(t *testing.T) {
	c := NewClassifier()
	c.transition(Descent)

	snap := flightdata.Snapshot{Position: flightdata.Position{AltAGL: 1500}}
	got := c.Update(snap, Config{}, noATC, time.Now())
	assert.Equal(t, Approach, got)
}

func TestApproachToLandingGearDownLowAGL(t *testing.T) {
	c := NewClassifier()
	c.transition(Approach)

	snap := flightdata.Snapshot{
		Position: flightdata.Position{AltAGL: 150},
		Config:   flightdata.Config{GearDown: true},
	}
	got := c.Update(snap, Config{}, noATC, time.Now())
	assert.Equal(t, Landing, got)
}

func TestApproachGoAround(t *testing.T) {
	c := NewClassifier()
	c.transition(Approach)

	cfg := Config{TargetCruiseAltFt: 1000}
	snap := flightdata.Snapshot{Position: flightdata.Position{AltMSL: 2000}, Motion: flightdata.Motion{VS: 500}}
	got := c.Update(snap, cfg, noATC, time.Now())
	assert.Equal(t, Climb, got)
}

func TestLandingToTaxiOnRollout(t *testing.T) {
	c := NewClassifier()
	c.transition(Landing)

	snap := flightdata.Snapshot{Position: flightdata.Position{AltAGL: 0}, Motion: flightdata.Motion{GS: 15}}
	got := c.Update(snap, Config{}, noATC, time.Now())
	assert.Equal(t, Taxi, got)
}

func TestGroundResetFromAirborneWithEngineOff(t *testing.T) {
	c := NewClassifier()
	c.transition(Cruise)

	snap := flightdata.Snapshot{Position: flightdata.Position{AltAGL: 0}, Engine: flightdata.Engine{Running: false}}
	got := c.Update(snap, Config{}, noATC, time.Now())
	assert.Equal(t, Preflight, got)
}

func TestForcePhaseSuppressesTransitionsUntilAutoResume(t *testing.T) {
	c := NewClassifier()
	c.ForcePhase(Cruise)

	snap := groundedSnapshot()
	snap.Engine.Running = true

	got := c.Update(snap, Config{}, noATC, time.Now())
	assert.Equal(t, Cruise, got, "forced phase must not move while overridden")

	c.AutoResume()
	got = c.Update(snap, Config{}, noATC, time.Now())
	assert.Equal(t, Cruise, got, "cruise only resets to preflight on a ground reset, not an engine-start snapshot")
}

func TestOnPhaseChangeFiresExactlyOnTransition(t *testing.T) {
	c := NewClassifier()
	var fromSeen, toSeen Phase
	calls := 0
	c.OnPhaseChange(func(old, new Phase) {
		calls++
		fromSeen, toSeen = old, new
	})

	snap := groundedSnapshot()
	snap.Engine.Running = true
	c.Update(snap, Config{}, noATC, time.Now())

	require.Equal(t, 1, calls)
	assert.Equal(t, Preflight, fromSeen)
	assert.Equal(t, Taxi, toSeen)

	// A second Update with the same already-Taxi-qualifying snapshot must not re-fire.
	c.Update(snap, Config{}, noATC, time.Now())
	assert.Equal(t, 1, calls)
}

func TestPhaseStringUnknown(t *testing.T) {
	assert.Equal(t, "PREFLIGHT", Preflight.String())
	assert.Equal(t, "LANDING", Landing.String())
	assert.Equal(t, "UNKNOWN", Phase(99).String())
}
