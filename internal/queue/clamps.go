package queue

import "github.com/flightcore/copilot/internal/flightdata"

// ClampLimits bundles the profile-derived safety bounds validation
// clamps against (spec §4.4's "safety clamps" table).
type ClampLimits struct {
	MinVS, MaxVS   float64
	MaxAltFt       float64
	Vs1, Vno       float64
}

// LimitsFromProfile derives the clamp bounds from an aircraft profile.
func LimitsFromProfile(p flightdata.Profile) ClampLimits {
	maxAlt := p.Limits.CeilingFt
	if maxAlt < 45000 {
		maxAlt = 45000
	}
	if p.Limits.CeilingFt > maxAlt {
		maxAlt = p.Limits.CeilingFt
	}
	return ClampLimits{
		MinVS:    p.Limits.MinVS,
		MaxVS:    p.Limits.MaxVS,
		MaxAltFt: maxAlt,
		Vs1:      p.Speeds.Vs1,
		Vno:      p.Speeds.Vno,
	}
}

// clampResult is the outcome of validating and clamping one command.
type clampResult struct {
	value   float64
	clamped bool
}

func clampf(v, lo, hi float64) clampResult {
	if v < lo {
		return clampResult{lo, true}
	}
	if v > hi {
		return clampResult{hi, true}
	}
	return clampResult{v, false}
}

// applyClamp clamps a command's value according to its kind, per the
// table in spec §4.4. Toggle-family commands are never clamped.
func applyClamp(cmd Command, limits ClampLimits) (Command, bool) {
	var result clampResult
	switch cmd.Kind {
	case KindAPVsVarSet:
		result = clampf(cmd.Value, limits.MinVS, limits.MaxVS)
	case KindAPAltVarSet:
		result = clampf(cmd.Value, 0, limits.MaxAltFt)
	case KindAPSpdVarSet:
		lo := limits.Vs1
		if lo < 50 {
			lo = 50
		}
		hi := limits.Vno
		if hi > 250 {
			hi = 250
		}
		result = clampf(cmd.Value, lo, hi)
	case KindThrottleSet, KindMixtureSet:
		result = clampf(cmd.Value, 0, 100)
	case KindAxisElevator:
		result = clampf(cmd.Value, -80, 80)
	default:
		return cmd, false
	}

	cmd.Value = result.value
	if result.clamped {
		cmd.Description = cmd.Description + " (clamped)"
	}
	return cmd, result.clamped
}

// Validate checks a command against the safety clamp table and the
// family/kind consistency familyOf expects, returning the (possibly
// clamped) command and whether it passed validation. An inconsistent
// family/kind pairing is rejected outright (spec §7 "invalid command:
// dropped in validation").
func Validate(cmd Command, limits ClampLimits) (Command, bool) {
	if familyOf(cmd.Kind) != cmd.Family {
		return cmd, false
	}
	clamped, _ := applyClamp(cmd, limits)
	return clamped, true
}
