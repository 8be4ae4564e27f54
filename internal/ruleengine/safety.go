package ruleengine

import (
	"github.com/flightcore/copilot/internal/envelope"
	"github.com/flightcore/copilot/internal/flightdata"
	"github.com/flightcore/copilot/internal/queue"
)

const (
	bankCriticalDeg   = 45.0
	bankCriticalLowAlt = 30.0
	bankDangerDeg     = 35.0
	lowAltFt          = 1000.0
	tighten           = 10.0

	stallProtectMarginKt = 5.0
	stallWarnMarginKt    = 10.0
	overspeedMarginKt    = 5.0

	altDeviationFt = 200.0
)

// evaluateProtectionBands runs the envelope safety ladder (spec
// §4.3.5): BANK, STALL, OVERSPEED, PITCH and VS bands, using the
// *dynamic* envelope speeds rather than the static profile values. The
// ALT band is evaluateAltDeviation, which CRUISE runs separately. When
// the AP isn't managing bank and the aircraft is below 1000 ft AGL, the
// bank-critical threshold drops from 45° to 30°, and the bank-danger
// and pitch limits tighten by 10°; the VS band does not tighten.
func (e *Engine) evaluateProtectionBands(snap flightdata.Snapshot, env envelope.Snapshot, apManagingBank bool) []queue.Command {
	var cmds []queue.Command

	tightened := !apManagingBank && snap.Position.AltAGL < lowAltFt
	bank := absf(snap.Attitude.BankDeg)

	bankCritical := bankCriticalDeg
	if tightened {
		bankCritical = bankCriticalLowAlt
	}
	bankDanger := bankDangerDeg
	if tightened {
		bankDanger -= tighten
	}

	switch {
	case bank > bankCritical:
		cmds = append(cmds,
			queue.NewSetValue(queue.KindHeadingBugSet, snap.Attitude.HeadingDeg, "bank critical: recommand current heading", queue.PriorityHigh),
			queue.NewToggle(queue.KindAPHdgHold, true, "bank critical: engage HDG hold", queue.PriorityHigh),
		)
		if !apManagingBank {
			aileron := targetBank(snap.Attitude.BankDeg, 0, 30, e.rollBias, false) * 0.8
			cmds = append(cmds, queue.NewAxis(queue.KindAxisAilerons, aileron, "bank critical: opposite aileron"))
		}
	case bank > bankDanger:
		excess := bank - bankDanger
		nudge := excess / 2
		if snap.Attitude.BankDeg < 0 {
			nudge = -nudge
		}
		cmds = append(cmds, queue.NewSetValue(queue.KindHeadingBugSet, normalizeDeg(snap.Attitude.HeadingDeg-nudge), "bank danger: nudge heading back", queue.PriorityHigh))
	}

	switch {
	case snap.Motion.IAS < env.ActiveStallSpeed+stallProtectMarginKt:
		vsCmd := -500.0
		if snap.Motion.IAS >= env.ActiveStallSpeed {
			vsCmd = -200
		}
		cmds = append(cmds, queue.NewSetValue(queue.KindThrottleSet, 100, "stall protect: full power", queue.PriorityHigh))
		cmds = append(cmds, queue.NewSetValue(queue.KindAPVsVarSet, vsCmd, "stall protect: reduce pitch", queue.PriorityHigh))
		cmds = append(cmds, queue.NewToggle(queue.KindAPVsHold, true, "stall protect: engage VS hold", queue.PriorityHigh))
		if bank > 20 {
			cmds = append(cmds, queue.NewToggle(queue.KindAPHdgHold, true, "stall protect: wings level", queue.PriorityHigh))
		}
	case snap.Motion.IAS < env.ActiveStallSpeed+stallWarnMarginKt:
		cmds = append(cmds, queue.NewSetValue(queue.KindAPVsVarSet, 0, "stall warn: reduce descent", queue.PriorityNormal))
		if bank > 25 {
			cmds = append(cmds, queue.NewSetValue(queue.KindHeadingBugSet, snap.Attitude.HeadingDeg, "stall warn: shallow turn", queue.PriorityNormal))
		}
	}

	if snap.Motion.IAS > e.profile.Speeds.Vne-overspeedMarginKt {
		cmds = append(cmds,
			queue.NewSetValue(queue.KindThrottleSet, 50, "overspeed: reduce power", queue.PriorityHigh),
			queue.NewSetValue(queue.KindAPVsVarSet, -200, "overspeed: reduce descent rate", queue.PriorityHigh),
		)
	} else if snap.Motion.IAS > e.profile.Speeds.Vno && snap.Motion.VS >= 0 {
		reduced := clampf(snap.Config.ThrottlePct-10, 0, 100)
		cmds = append(cmds, queue.NewSetValue(queue.KindThrottleSet, reduced, "Vno exceeded: reduce power", queue.PriorityNormal))
	}

	maxPitchUp := e.profile.Limits.MaxPitchUpDeg
	maxPitchDown := e.profile.Limits.MaxPitchDownDeg
	if tightened {
		maxPitchUp -= tighten
		maxPitchDown -= tighten
	}
	if snap.Attitude.PitchDeg > maxPitchUp || snap.Attitude.PitchDeg < -maxPitchDown {
		cmds = append(cmds, queue.NewSetValue(queue.KindAPVsVarSet, 0, "pitch limit: command level", queue.PriorityHigh))
	}

	if snap.Motion.VS < e.profile.Limits.MinVS-200 || snap.Motion.VS > e.profile.Limits.MaxVS+200 {
		clamped := clampf(snap.Motion.VS, e.profile.Limits.MinVS, e.profile.Limits.MaxVS)
		cmds = append(cmds, queue.NewSetValue(queue.KindAPVsVarSet, clamped, "VS limit: clamp setpoint", queue.PriorityHigh))
	}

	return cmds
}

// evaluateAltDeviation is called by CRUISE to hold altitude within
// tolerance (spec §4.3.5's ALT deviation band, cruise-only).
func evaluateAltDeviation(snap flightdata.Snapshot, targetAltFt float64) []queue.Command {
	dev := snap.Position.AltMSL - targetAltFt
	if absf(dev) <= altDeviationFt {
		return nil
	}
	correction := -300.0
	if dev < 0 {
		correction = 300
	}
	return []queue.Command{queue.NewSetValue(queue.KindAPVsVarSet, correction, "altitude deviation correction", queue.PriorityNormal)}
}
