package ruleengine

import "github.com/flightcore/copilot/internal/flightdata"

const (
	pGainHigh = 1.8
	pGainLow  = 1.0
	dGain     = 0.4
	speedFloor = 0.5

	emergencyPitchMargin = 3.0
	emergencyPushGain    = 1.5
	emergencyWidenDefl   = 20.0
)

// targetPitch is the PD elevator controller with density and speed
// scheduling (spec §4.3.3). Sign convention: negative elevator = nose
// up. Returns the elevator command and the pitch sample to remember
// as lastPitchDeg for the next tick's D-term.
func targetPitch(pitchCurrent, pitchTarget, maxDefl, altMSL, ias, vrRef, agl, lastPitchDeg, dt, safetyMaxPitch float64) (elevator, newLastPitch float64) {
	dt = flightdata.Sanitize(dt)

	densityFactor := 1 + maxf(0, altMSL)/30000

	speedFactor := 1.0
	if !(ias <= vrRef || agl <= 200) {
		speedFactor = maxf(speedFloor, vrRef/ias)
	}

	effectiveMax := maxDefl * densityFactor * speedFactor

	gain := pGainLow
	if effectiveMax > 40 {
		gain = pGainHigh
	}

	pTerm := -(pitchTarget - pitchCurrent) * gain
	dTerm := (pitchCurrent - lastPitchDeg) / dt * dGain
	elevator = pTerm + dTerm

	threshold := safetyMaxPitch - emergencyPitchMargin
	if pitchCurrent > threshold {
		elevator += (pitchCurrent - threshold) * emergencyPushGain
		effectiveMax += emergencyWidenDefl
	}

	elevator = clampf(elevator, -effectiveMax, effectiveMax)
	return elevator, pitchCurrent
}

// pitchTargetForSpeed converts a speed error to a pitch target at
// 0.5°/kt, clamped to [-5, 15] degrees, with an optional climb-pitch
// floor for LIFTOFF/INITIAL_CLIMB.
func pitchTargetForSpeed(ias, targetIAS, minClimbPitch float64, floorActive bool) float64 {
	pt := (targetIAS - ias) * 0.5
	pt = clampf(pt, -5, 15)
	if floorActive && pt < minClimbPitch {
		pt = minClimbPitch
	}
	return pt
}

// targetBank is the adaptive-gain roll controller. Sign convention:
// positive aileron = roll left.
func targetBank(bankCurrent, bankTarget, maxDefl, rollBias float64, takeoffTorqueBias bool) float64 {
	err := bankTarget - bankCurrent
	gain := 2 + minf(absf(err)/15, 1)*2

	aileron := err * gain * -1
	aileron += rollBias
	if takeoffTorqueBias {
		aileron += 2 // fixed torque counter-bias against P-factor roll
	}
	return clampf(aileron, -maxDefl, maxDefl)
}

// bankToHeading converts a heading error into a bank target and
// delegates to targetBank.
func bankToHeading(headingCurrent, targetHdg, bankCurrent, maxBank, maxDefl, rollBias float64, takeoffTorqueBias bool) float64 {
	hdgErr := angleDiff(headingCurrent, targetHdg)
	bankTarget := clampf(-hdgErr*2, -maxBank, maxBank)
	return targetBank(bankCurrent, bankTarget, maxDefl, rollBias, takeoffTorqueBias)
}

// groundSteerResult bundles the rudder and differential-brake outputs
// of the ground-steering composite.
type groundSteerResult struct {
	Rudder     float64
	LeftBrake  float64
	RightBrake float64
}

// groundSteer is the rudder-and-brake composite used on the ground
// (spec §4.3.3). Gain scales inversely with ground speed; a fixed
// right-rudder bias counters P-factor above 50% throttle. Differential
// braking only engages for fine corrections (15-30° heading error)
// during ordinary taxi, never for large turns.
func groundSteer(headingCurrent, targetHdg, gs, throttlePct float64, highAuthority bool, brakingAllowed bool) groundSteerResult {
	hdgErr := angleDiff(headingCurrent, targetHdg)
	if absf(hdgErr) < 1 {
		hdgErr = 0
	}

	gain := 40.0 / maxf(gs, 5)
	maxDefl := 40.0
	if highAuthority || gs < 15 {
		maxDefl = 100
	}

	rudder := hdgErr * gain
	if throttlePct > 50 {
		rudder += 3
	}
	rudder = clampf(rudder, -maxDefl, maxDefl)

	result := groundSteerResult{Rudder: rudder}
	if brakingAllowed && absf(hdgErr) >= 15 && absf(hdgErr) <= 30 {
		brake := clampf((absf(hdgErr)-15)/15*40, 0, 40)
		if hdgErr > 0 {
			result.RightBrake = brake
		} else {
			result.LeftBrake = brake
		}
	}
	return result
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
