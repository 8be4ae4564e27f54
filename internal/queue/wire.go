package queue

// WireName is the event name (or base event name) sent to the
// simulator bridge. Every kind translates 1:1: the `_SET_ENGLISH`
// suffixes are already part of the Kind names, and legacy aliases are
// resolved to their canonical Kind by ResolveAlias (spec §6).
type WireName string

// wireNames is the fixed translation table from logical Kind to wire
// event name (spec §4.4 "execute").
var wireNames = map[Kind]WireName{
	KindAPMaster:          "AP_MASTER",
	KindAPHdgHold:         "AP_HDG_HOLD",
	KindAPAltHold:         "AP_ALT_HOLD",
	KindAPVsHold:          "AP_VS_HOLD",
	KindAPNav1Hold:        "AP_NAV1_HOLD",
	KindAPAprHold:         "AP_APR_HOLD",
	KindFlapsUp:           "FLAPS_UP",
	KindFlapsDown:         "FLAPS_DOWN",
	KindParkingBrakes:     "PARKING_BRAKES",
	KindLandingLightsTgl:  "LANDING_LIGHTS_TOGGLE",
	KindMixtureRich:       "MIXTURE_RICH",
	KindMixtureLean:       "MIXTURE_LEAN",
	KindToggleFltDirector: "TOGGLE_FLIGHT_DIRECTOR",
	KindYawDamperToggle:   "YAW_DAMPER_TOGGLE",
	KindAPBcHold:          "AP_BC_HOLD",
	KindAPVnav:            "AP_VNAV",
	KindQuickPreflight:    "QUICK_PREFLIGHT",
	KindEngineAutoStart:   "ENGINE_AUTO_START",
	KindElevTrimUp:        "ELEV_TRIM_UP",

	KindAPAltVarSet:     "AP_ALT_VAR_SET_ENGLISH",
	KindAPVsVarSet:      "AP_VS_VAR_SET_ENGLISH",
	KindAPSpdVarSet:     "AP_SPD_VAR_SET",
	KindHeadingBugSet:   "HEADING_BUG_SET",
	KindThrottleSet:     "THROTTLE_SET",
	KindMixtureSet:      "MIXTURE_SET",
	KindPropPitchSet:    "PROP_PITCH_SET",
	KindParkingBrakeSet: "PARKING_BRAKE_SET",

	KindAxisElevator:   "AXIS_ELEVATOR_SET",
	KindAxisRudder:     "AXIS_RUDDER_SET",
	KindAxisAilerons:   "AXIS_AILERONS_SET",
	KindAxisMixture:    "AXIS_MIXTURE_SET",
	KindSteeringSet:    "STEERING_SET",
	KindAxisLeftBrake:  "AXIS_LEFT_BRAKE_SET",
	KindAxisRightBrake: "AXIS_RIGHT_BRAKE_SET",
}

// apiAliases maps short/legacy API-facing names to their canonical
// Kind, per DESIGN NOTES: the source's two files disagreed on
// `AP_HDG_VAR_SET` vs `HEADING_BUG_SET`; HEADING_BUG_SET is
// canonical and AP_HDG_VAR_SET is kept only as an inbound alias.
var apiAliases = map[string]Kind{
	"AP_HDG_VAR_SET":      KindHeadingBugSet,
	"AP_PANEL_SPEED_HOLD": KindAPSpdVarSet,
}

// ResolveAlias translates a legacy/short API name to its canonical
// Kind, returning the input unchanged (cast to Kind) if it is not a
// known alias.
func ResolveAlias(name string) Kind {
	if k, ok := apiAliases[name]; ok {
		return k
	}
	return Kind(name)
}

// WireNameFor returns the outbound event name for a kind.
func WireNameFor(k Kind) WireName {
	if w, ok := wireNames[k]; ok {
		return w
	}
	return WireName(k)
}

// WireMessage is the payload sent to the bridge transport: either a
// bare toggle event, or a {command, value} pair for value-set and
// axis kinds.
type WireMessage struct {
	Command  WireName `json:"command"`
	Value    float64  `json:"value,omitempty"`
	HasValue bool     `json:"-"`
}

// BuildWireMessage renders a Command into its wire form (spec §6).
func BuildWireMessage(cmd Command) WireMessage {
	name := WireNameFor(cmd.Kind)
	switch cmd.Family {
	case FamilyToggle:
		return WireMessage{Command: name}
	default:
		return WireMessage{Command: name, Value: cmd.Value, HasValue: true}
	}
}
