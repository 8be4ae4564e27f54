// Package atc implements the ground-ATC controller: an 8-state taxi/
// clearance state machine gating takeoff on route progress (spec
// §4.2). The mode-ladder shape is grounded on the teacher's
// failsafe.EmergencySystem escalation idiom; waypoint/route types
// are grounded on its ai.Mission/ai.Waypoint structs.
package atc

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/sirupsen/logrus"

	"github.com/flightcore/copilot/internal/flightdata"
)

// ControllerPhase is the ATC ground-control state.
type ControllerPhase int

const (
	Inactive ControllerPhase = iota
	Parked
	TaxiClearancePending
	Taxiing
	HoldShort
	TakeoffClearancePending
	ClearedTakeoff
	Airborne
)

// String renders the phase name exactly as used by the classifier's
// ATC-gating check (spec §4.1's "ATC phase ∈ {INACTIVE,
// CLEARED_TAKEOFF}").
func (p ControllerPhase) String() string {
	names := []string{
		"INACTIVE", "PARKED", "TAXI_CLEARANCE_PENDING", "TAXIING",
		"HOLD_SHORT", "TAKEOFF_CLEARANCE_PENDING", "CLEARED_TAKEOFF", "AIRBORNE",
	}
	if int(p) < len(names) {
		return names[p]
	}
	return "UNKNOWN"
}

const (
	holdShortThresholdFt    = 100
	offRouteThresholdFt     = 500
	offRouteMinGS           = 2
	offRouteAdvisoryCooldown = 10 * time.Second
	holdShortToReadyDelay   = 5 * time.Second
	readyToClearedDelay     = 2 * time.Second
	takeoffAGLThreshold     = 50
	airborneCooldown        = 5 * time.Second
)

// Planner is the taxi-route planner external collaborator (spec §6).
type Planner interface {
	RequestRoute(icao, runway string, fromLat, fromLon float64) (*flightdata.Route, error)
}

// InstructionKind classifies an emitted ATC instruction for callback
// routing (spec §6 on_atc_instruction(text, kind)).
type InstructionKind string

const (
	InstructionClearance InstructionKind = "clearance"
	InstructionAdvisory  InstructionKind = "advisory"
	InstructionTransition InstructionKind = "transition"
)

// Controller is the ATC ground-control state machine.
type Controller struct {
	planner Planner
	logger  *logrus.Entry

	phase        ControllerPhase
	enteredAt    time.Time
	route        *flightdata.Route
	waypointIdx  int
	runway       string
	icao         string

	lastOffRouteAdvisory time.Time

	onInstruction func(text string, kind InstructionKind)
}

// NewController builds an ATC controller bound to a taxi planner.
func NewController(planner Planner, logger *logrus.Entry) *Controller {
	return &Controller{planner: planner, logger: logger, phase: Inactive, enteredAt: time.Now()}
}

// OnInstruction registers the phraseology callback.
func (c *Controller) OnInstruction(fn func(text string, kind InstructionKind)) {
	c.onInstruction = fn
}

// Attached implements phase.ATCView.
func (c *Controller) Attached() bool { return c.phase != Inactive }

// PhaseName implements phase.ATCView and ruleengine.ATCView.
func (c *Controller) PhaseName() string { return c.phase.String() }

// Phase returns the current ControllerPhase.
func (c *Controller) Phase() ControllerPhase { return c.phase }

// Route returns the currently active route, or nil.
func (c *Controller) Route() *flightdata.Route { return c.route }

func (c *Controller) transition(next ControllerPhase) {
	c.phase = next
	c.enteredAt = time.Now()
}

func (c *Controller) emit(text string, kind InstructionKind) {
	if c.logger != nil {
		c.logger.WithField("kind", kind).Info(text)
	}
	if c.onInstruction != nil {
		c.onInstruction(text, kind)
	}
}

// RequestTaxiClearance begins the taxi-clearance sequence (spec
// §4.2). Planner errors degrade gracefully to PARKED with an advisory
// rather than propagating an error (spec §7).
func (c *Controller) RequestTaxiClearance(icao, runway string, fromLat, fromLon float64) {
	if runway == "" {
		c.emit("unable, no runway specified", InstructionAdvisory)
		return
	}

	c.icao = icao
	c.runway = runway
	c.transition(TaxiClearancePending)

	route, err := c.planner.RequestRoute(icao, runway, fromLat, fromLon)
	if err != nil {
		c.transition(Parked)
		c.emit("unable to obtain taxi clearance, remaining parked", InstructionAdvisory)
		return
	}

	c.route = route
	c.waypointIdx = 0
	c.transition(Taxiing)
	c.emit(phraseTaxiClearance(runway, route), InstructionClearance)
}

// Deactivate clears the controller's route and returns it to
// INACTIVE (spec §3: "Routes are owned by the ATC controller and
// cleared on deactivate").
func (c *Controller) Deactivate() {
	c.route = nil
	c.waypointIdx = 0
	c.transition(Inactive)
}

// UpdatePosition advances route progress and drives the time-gated
// transitions (spec §4.2). Call once per tick while active.
func (c *Controller) UpdatePosition(snap flightdata.Snapshot, now time.Time) {
	switch c.phase {
	case Taxiing:
		c.advanceRoute(snap, now)
	case HoldShort:
		if now.Sub(c.enteredAt) >= holdShortToReadyDelay {
			c.transition(TakeoffClearancePending)
			c.emit("ready for departure", InstructionTransition)
		}
	case TakeoffClearancePending:
		if now.Sub(c.enteredAt) >= readyToClearedDelay {
			c.transition(ClearedTakeoff)
			c.emit(phraseClearedForTakeoff(c.runway), InstructionClearance)
		}
	case ClearedTakeoff:
		if snap.Position.AltAGL > takeoffAGLThreshold {
			c.transition(Airborne)
		}
	case Airborne:
		if now.Sub(c.enteredAt) >= airborneCooldown {
			c.Deactivate()
		}
	}
}

func (c *Controller) advanceRoute(snap flightdata.Snapshot, now time.Time) {
	if c.route == nil || c.waypointIdx >= len(c.route.Waypoints) {
		c.transition(HoldShort)
		return
	}

	wp := c.route.Waypoints[c.waypointIdx]
	distFt := distanceFt(snap.Position.Lat, snap.Position.Lon, wp.Lat, wp.Lon)

	if distFt < holdShortThresholdFt {
		isLast := c.waypointIdx == len(c.route.Waypoints)-1
		if wp.Type == flightdata.WaypointRunwayHold || isLast {
			c.transition(HoldShort)
			c.emit("holding short, ready to copy", InstructionTransition)
			return
		}
		c.waypointIdx++
		next := c.route.Waypoints[c.waypointIdx]
		c.emit("turn onto "+next.Name, InstructionTransition)
		return
	}

	if distFt > offRouteThresholdFt && snap.Motion.GS > offRouteMinGS {
		if now.Sub(c.lastOffRouteAdvisory) >= offRouteAdvisoryCooldown {
			c.lastOffRouteAdvisory = now
			c.emit("advisory, appear off assigned taxi route", InstructionAdvisory)
		}
	}
}

// NextWaypointBearing returns the bearing to the current target
// waypoint, used by the rule engine's lateral nav fallback (spec
// §4.3.4 priority 3). Returns ok=false when there is no active route.
func (c *Controller) NextWaypointBearing(lat, lon float64) (bearingDeg float64, ok bool) {
	if c.route == nil || c.waypointIdx >= len(c.route.Waypoints) {
		return 0, false
	}
	wp := c.route.Waypoints[c.waypointIdx]
	b := geo.Bearing(orb.Point{lon, lat}, orb.Point{wp.Lon, wp.Lat})
	return normalizeDeg(b), true
}

func distanceFt(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.Distance(orb.Point{lon1, lat1}, orb.Point{lon2, lat2}) * 3.28084
}

func normalizeDeg(d float64) float64 {
	for d < 0 {
		d += 360
	}
	for d >= 360 {
		d -= 360
	}
	return d
}

// ValidateReadback is the ASCII-uppercase containment check from spec
// §4.2: it verifies the readback text contains the runway ident and
// each cleared taxiway name. The runway ident is compared in its
// spoken phonetic form ("16R" -> "16 RIGHT") since pilots read back
// runways that way, not as the raw ident.
func ValidateReadback(readback, runway string, taxiways []string) (valid bool, missing []string) {
	upper := strings.ToUpper(readback)
	if !strings.Contains(upper, PhoneticRunway(runway)) {
		missing = append(missing, runway)
	}
	for _, tw := range taxiways {
		if !strings.Contains(upper, strings.ToUpper(tw)) {
			missing = append(missing, tw)
		}
	}
	return len(missing) == 0, missing
}

// PhoneticRunway renders a runway ident ("16R") in its standard
// spoken form ("16 RIGHT"), used by the phraseology helper and by
// ValidateReadback.
func PhoneticRunway(runway string) string {
	upper := strings.ToUpper(strings.TrimSpace(runway))
	if upper == "" {
		return ""
	}
	suffix := upper[len(upper)-1:]
	var word string
	switch suffix {
	case "L":
		word = "LEFT"
	case "R":
		word = "RIGHT"
	case "C":
		word = "CENTER"
	default:
		return upper
	}
	return upper[:len(upper)-1] + " " + word
}
