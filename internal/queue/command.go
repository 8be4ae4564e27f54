// Package queue implements the command queue: validation, safety
// clamping, dedup, rate limiting and routing of commands to the
// simulator bridge, honoring pilot overrides (spec §4.4).
//
// The per-kind channel/rate idiom is grounded on the teacher's
// actuators.MAVLinkController (buffered command channels dispatched
// by type). Rate limiting tracks per-kind last-send-time and a
// self-resetting drain timer directly, since the 50ms axis floor and
// 2s heartbeat log need the last-sent value alongside the timestamp —
// state a bare golang.org/x/time/rate limiter doesn't carry.
package queue

import "time"

// Family distinguishes the three command shapes from spec §3's data
// model, replacing the source's untyped-dictionary records with the
// tagged variant DESIGN NOTES calls for.
type Family int

const (
	FamilyToggle Family = iota
	FamilySetValue
	FamilyAxis
)

// Priority marks a command's execution priority.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// Kind is the logical (API-facing) command kind, translated to a wire
// event name by the translation table in wire.go.
type Kind string

// Axis kinds (spec §6).
const (
	KindAxisElevator Kind = "AXIS_ELEVATOR_SET"
	KindAxisRudder   Kind = "AXIS_RUDDER_SET"
	KindAxisAilerons Kind = "AXIS_AILERONS_SET"
	KindAxisMixture  Kind = "AXIS_MIXTURE_SET"
	KindAxisLeftBrake  Kind = "AXIS_LEFT_BRAKE_SET"
	KindAxisRightBrake Kind = "AXIS_RIGHT_BRAKE_SET"
	KindSteeringSet    Kind = "STEERING_SET"
)

// Toggle kinds.
const (
	KindAPMaster          Kind = "AP_MASTER"
	KindAPHdgHold         Kind = "AP_HDG_HOLD"
	KindAPAltHold         Kind = "AP_ALT_HOLD"
	KindAPVsHold          Kind = "AP_VS_HOLD"
	KindAPNav1Hold        Kind = "AP_NAV1_HOLD"
	KindAPAprHold         Kind = "AP_APR_HOLD"
	KindFlapsUp           Kind = "FLAPS_UP"
	KindFlapsDown         Kind = "FLAPS_DOWN"
	KindParkingBrakes     Kind = "PARKING_BRAKES"
	KindLandingLightsTgl  Kind = "LANDING_LIGHTS_TOGGLE"
	KindMixtureRich       Kind = "MIXTURE_RICH"
	KindMixtureLean       Kind = "MIXTURE_LEAN"
	KindToggleFltDirector Kind = "TOGGLE_FLIGHT_DIRECTOR"
	KindYawDamperToggle   Kind = "YAW_DAMPER_TOGGLE"
	KindAPBcHold          Kind = "AP_BC_HOLD"
	KindAPVnav            Kind = "AP_VNAV"
	KindQuickPreflight    Kind = "QUICK_PREFLIGHT"
	KindEngineAutoStart   Kind = "ENGINE_AUTO_START"
	KindElevTrimUp        Kind = "ELEV_TRIM_UP"
)

// Setpoint kinds.
const (
	KindAPAltVarSet    Kind = "AP_ALT_VAR_SET_ENGLISH"
	KindAPVsVarSet     Kind = "AP_VS_VAR_SET_ENGLISH"
	KindAPSpdVarSet    Kind = "AP_SPD_VAR_SET"
	KindHeadingBugSet  Kind = "HEADING_BUG_SET"
	KindThrottleSet    Kind = "THROTTLE_SET"
	KindMixtureSet     Kind = "MIXTURE_SET"
	KindPropPitchSet   Kind = "PROP_PITCH_SET"
	KindParkingBrakeSet Kind = "PARKING_BRAKE_SET"
)

// Axis in the sense of an override target (spec §6), distinct from
// the wire-level Axis family above.
type OverrideAxis string

const (
	AxisHDG      OverrideAxis = "HDG"
	AxisALT      OverrideAxis = "ALT"
	AxisVS       OverrideAxis = "VS"
	AxisSPD      OverrideAxis = "SPD"
	AxisNAV      OverrideAxis = "NAV"
	AxisAPR      OverrideAxis = "APR"
	AxisMaster   OverrideAxis = "MASTER"
	AxisThrottle OverrideAxis = "THROTTLE"
	AxisMixture  OverrideAxis = "MIXTURE"
	AxisElevator OverrideAxis = "ELEVATOR"
	AxisRudder   OverrideAxis = "RUDDER"
	AxisSteering OverrideAxis = "STEERING"
	AxisAilerons OverrideAxis = "AILERONS"
	AxisFlaps    OverrideAxis = "FLAPS"
	AxisBrakes   OverrideAxis = "BRAKES"
)

// kindToAxis maps a command kind to the override axis that suppresses
// it, per spec §3's "A pilot override on axis A suppresses all AI
// commands mapped to A."
var kindToAxis = map[Kind]OverrideAxis{
	KindAPHdgHold:      AxisHDG,
	KindHeadingBugSet:  AxisHDG,
	KindAPAltHold:      AxisALT,
	KindAPAltVarSet:    AxisALT,
	KindAPVsHold:       AxisVS,
	KindAPVsVarSet:     AxisVS,
	KindAPSpdVarSet:    AxisSPD,
	KindAPNav1Hold:     AxisNAV,
	KindAPAprHold:      AxisAPR,
	KindAPMaster:       AxisMaster,
	KindThrottleSet:    AxisThrottle,
	KindMixtureSet:     AxisMixture,
	KindMixtureRich:    AxisMixture,
	KindMixtureLean:    AxisMixture,
	KindAxisElevator:   AxisElevator,
	KindElevTrimUp:     AxisElevator,
	KindAxisRudder:     AxisRudder,
	KindSteeringSet:    AxisSteering,
	KindAxisAilerons:   AxisAilerons,
	KindFlapsUp:        AxisFlaps,
	KindFlapsDown:      AxisFlaps,
	KindAxisLeftBrake:  AxisBrakes,
	KindAxisRightBrake: AxisBrakes,
	KindParkingBrakeSet: AxisBrakes,
	KindParkingBrakes:  AxisBrakes,
}

// AxisFor returns the override axis a command kind maps to, if any.
func AxisFor(k Kind) (OverrideAxis, bool) {
	a, ok := kindToAxis[k]
	return a, ok
}

// familyOf classifies a kind into its command family.
func familyOf(k Kind) Family {
	switch k {
	case KindAxisElevator, KindAxisRudder, KindAxisAilerons, KindAxisMixture,
		KindAxisLeftBrake, KindAxisRightBrake, KindSteeringSet:
		return FamilyAxis
	case KindAPAltVarSet, KindAPVsVarSet, KindAPSpdVarSet, KindHeadingBugSet,
		KindThrottleSet, KindMixtureSet, KindPropPitchSet, KindParkingBrakeSet:
		return FamilySetValue
	default:
		return FamilyToggle
	}
}

// neverDeduped lists the kinds that always resend even when the value
// is unchanged (spec §4.4: "resend needed after bridge restart").
var neverDeduped = map[Kind]bool{
	KindThrottleSet: true,
	KindMixtureSet:  true,
	KindMixtureRich: true,
}

// Command is one queued instruction, using the tagged-variant shape
// DESIGN NOTES calls for instead of an untyped dict.
type Command struct {
	Kind        Kind
	Family      Family
	Value       float64
	BoolValue   bool
	HasValue    bool
	Description string
	Priority    Priority
	EnqueuedAt  time.Time
}

// NewToggle builds a toggle-family command.
func NewToggle(kind Kind, value bool, description string, priority Priority) Command {
	return Command{Kind: kind, Family: FamilyToggle, BoolValue: value, Description: description, Priority: priority, EnqueuedAt: time.Now()}
}

// NewSetValue builds a setpoint-family command.
func NewSetValue(kind Kind, value float64, description string, priority Priority) Command {
	return Command{Kind: kind, Family: FamilySetValue, Value: value, HasValue: true, Description: description, Priority: priority, EnqueuedAt: time.Now()}
}

// NewAxis builds an axis-family command.
func NewAxis(kind Kind, value float64, description string) Command {
	return Command{Kind: kind, Family: FamilyAxis, Value: value, HasValue: true, Description: description, Priority: PriorityNormal, EnqueuedAt: time.Now()}
}
