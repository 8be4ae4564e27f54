package ruleengine

import (
	"github.com/flightcore/copilot/internal/flightdata"
	"github.com/flightcore/copilot/internal/queue"
	"github.com/flightcore/copilot/internal/wind"
)

// navEngageXtrkNm is the cross-track threshold below which NAV mode
// may engage (spec §4.3.4).
const navEngageXtrkNm = 2.0

// lateralNavHeading derives the heading command to fly when not in
// APR/NAV mode, per the priority chain in spec §4.3.4:
//  1. active flight-plan waypoint bearing,
//  2. external CDI intercept,
//  3. direct-to waypoint bearing fallback.
// navEligible reports whether NAV mode itself may be engaged instead
// of a heading-bug/HDG-hold command.
func (e *Engine) lateralNavHeading(snap flightdata.Snapshot, atcView ATCView) (headingDeg float64, navEligible bool) {
	nav := snap.Nav

	navEligible = nav.CDISource != flightdata.CDINone && nav.ToFrom == flightdata.ToFromTO && absf(nav.CrossTrackNm) < navEngageXtrkNm
	if navEligible {
		return 0, true
	}

	if nav.ActiveWaypointIdent != "" {
		return nav.ActiveWaypointBearingDeg, false
	}

	if nav.CDISource != flightdata.CDINone {
		return cdiInterceptHeading(nav), false
	}

	if atcView != nil {
		if brg, ok := atcView.NextWaypointBearing(snap.Position.Lat, snap.Position.Lon); ok {
			return brg, false
		}
	}

	return snap.Attitude.HeadingDeg, false
}

// cdiInterceptHeading computes an intercept heading from an external
// CDI's desired track and cross-track error (spec §4.3.4): 0°
// correction inside 0.1nm, linear 10-30° up to 1nm, 30° beyond,
// opposing the cross-track error's sign.
func cdiInterceptHeading(nav flightdata.NavSnapshot) float64 {
	xtrk := absf(nav.CrossTrackNm)
	var correction float64
	switch {
	case xtrk < 0.1:
		correction = 0
	case xtrk < 0.3:
		correction = 10
	case xtrk < 1.0:
		correction = 10 + (xtrk-0.3)/(1.0-0.3)*20
	default:
		correction = 30
	}
	if nav.CrossTrackNm > 0 {
		correction = -correction // right of course: correct left
	}
	return normalizeDeg(nav.DesiredTrackDeg + correction)
}

// headingCommand builds the AP commands to fly a target heading: with
// wind-triangle correction when TAS exceeds 50kt and wind exceeds 1kt.
func headingCommand(snap flightdata.Snapshot, targetHeading float64) []queue.Command {
	heading := targetHeading
	if snap.Motion.IAS > 50 && snap.Environment.WindKt > 1 {
		corr := wind.Correct(targetHeading, snap.Motion.IAS, snap.Environment.WindDirDeg, snap.Environment.WindKt)
		heading = corr.HeadingDeg
	}
	return []queue.Command{
		queue.NewSetValue(queue.KindHeadingBugSet, heading, "heading bug", queue.PriorityNormal),
		queue.NewToggle(queue.KindAPHdgHold, true, "HDG hold", queue.PriorityNormal),
	}
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
