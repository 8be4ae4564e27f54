package atc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightcore/copilot/internal/flightdata"
)

// stubPlanner returns a fixed three-waypoint route ending RUNWAY_HOLD,
// matching scenario S6's KPAE/16R taxi clearance.
type stubPlanner struct {
	route *flightdata.Route
	err   error
}

func (p stubPlanner) RequestRoute(icao, runway string, fromLat, fromLon float64) (*flightdata.Route, error) {
	return p.route, p.err
}

func threeWaypointRoute() *flightdata.Route {
	return &flightdata.Route{
		Taxiways: []string{"A", "B"},
		Waypoints: []flightdata.Waypoint{
			{Lat: 47.9060, Lon: -122.2820, Name: "ALPHA", Type: flightdata.WaypointTaxiway},
			{Lat: 47.9070, Lon: -122.2830, Name: "BRAVO", Type: flightdata.WaypointTaxiway},
			{Lat: 47.9080, Lon: -122.2840, Name: "RUNWAY 16R HOLD", Type: flightdata.WaypointRunwayHold},
		},
	}
}

// Scenario S6: requestTaxiClearance('KPAE','16R') drives PARKED ->
// TAXI_CLEARANCE_PENDING -> TAXIING -> HOLD_SHORT -> (5s) ->
// TAKEOFF_CLEARANCE_PENDING -> (2s) -> CLEARED_TAKEOFF.
func TestEndToEndTaxiClearanceScenarioS6(t *testing.T) {
	planner := stubPlanner{route: threeWaypointRoute()}
	c := NewController(planner, nil)

	c.RequestTaxiClearance("KPAE", "16R", 47.9050, -122.2810)
	require.Equal(t, Taxiing, c.Phase())
	require.NotNil(t, c.Route())

	now := time.Now()
	for _, wp := range c.route.Waypoints {
		snap := flightdata.Snapshot{Position: flightdata.Position{Lat: wp.Lat, Lon: wp.Lon}}
		c.UpdatePosition(snap, now)
		now = now.Add(time.Second)
	}
	assert.Equal(t, HoldShort, c.Phase())

	c.UpdatePosition(flightdata.Snapshot{}, now.Add(holdShortToReadyDelay))
	assert.Equal(t, TakeoffClearancePending, c.Phase())

	c.UpdatePosition(flightdata.Snapshot{}, now.Add(holdShortToReadyDelay+readyToClearedDelay))
	assert.Equal(t, ClearedTakeoff, c.Phase())

	c.UpdatePosition(flightdata.Snapshot{Position: flightdata.Position{AltAGL: 100}}, now.Add(holdShortToReadyDelay+readyToClearedDelay+time.Second))
	assert.Equal(t, Airborne, c.Phase())
}

func TestRequestTaxiClearanceDegradesToParkedOnPlannerError(t *testing.T) {
	planner := stubPlanner{err: assert.AnError}
	c := NewController(planner, nil)

	var lastText string
	var lastKind InstructionKind
	c.OnInstruction(func(text string, kind InstructionKind) {
		lastText, lastKind = text, kind
	})

	c.RequestTaxiClearance("KPAE", "16R", 47.9050, -122.2810)
	assert.Equal(t, Parked, c.Phase())
	assert.Equal(t, InstructionAdvisory, lastKind)
	assert.NotEmpty(t, lastText)
}

func TestRequestTaxiClearanceWithoutRunwayIsRejected(t *testing.T) {
	planner := stubPlanner{route: threeWaypointRoute()}
	c := NewController(planner, nil)

	c.RequestTaxiClearance("KPAE", "", 47.9050, -122.2810)
	assert.Equal(t, Inactive, c.Phase())
}

func TestAttachedReflectsPhase(t *testing.T) {
	c := NewController(stubPlanner{route: threeWaypointRoute()}, nil)
	assert.False(t, c.Attached())

	c.RequestTaxiClearance("KPAE", "16R", 47.9050, -122.2810)
	assert.True(t, c.Attached())
}

func TestNextWaypointBearing(t *testing.T) {
	c := NewController(stubPlanner{route: threeWaypointRoute()}, nil)
	c.RequestTaxiClearance("KPAE", "16R", 47.9050, -122.2810)

	bearing, ok := c.NextWaypointBearing(47.9050, -122.2810)
	require.True(t, ok)
	assert.GreaterOrEqual(t, bearing, 0.0)
	assert.Less(t, bearing, 360.0)
}

func TestNextWaypointBearingNoRoute(t *testing.T) {
	c := NewController(stubPlanner{}, nil)
	_, ok := c.NextWaypointBearing(0, 0)
	assert.False(t, ok)
}

func TestValidateReadback(t *testing.T) {
	valid, missing := ValidateReadback("taxi to runway 16 right via alpha bravo", "16R", []string{"A", "BRAVO"})
	assert.True(t, valid)
	assert.Empty(t, missing)

	valid, missing = ValidateReadback("taxi via alpha", "16R", []string{"A", "BRAVO"})
	assert.False(t, valid)
	assert.Contains(t, missing, "16R")
	assert.Contains(t, missing, "BRAVO")
}

func TestPhoneticRunway(t *testing.T) {
	assert.Equal(t, "16 RIGHT", PhoneticRunway("16R"))
	assert.Equal(t, "34 LEFT", PhoneticRunway("34L"))
	assert.Equal(t, "27 CENTER", PhoneticRunway("27C"))
	assert.Equal(t, "09", PhoneticRunway("09"))
}

func TestControllerPhaseString(t *testing.T) {
	assert.Equal(t, "HOLD_SHORT", HoldShort.String())
	assert.Equal(t, "UNKNOWN", ControllerPhase(99).String())
}
