package ruleengine

import (
	"time"

	"github.com/flightcore/copilot/internal/flightdata"
	"github.com/flightcore/copilot/internal/phase"
	"github.com/flightcore/copilot/internal/queue"
)

const autoStartInterval = 8 * time.Second

func (e *Engine) evaluatePreflight(snap flightdata.Snapshot) []queue.Command {
	cmds := []queue.Command{
		queue.NewToggle(queue.KindAPMaster, false, "AP disengaged", queue.PriorityHigh),
		queue.NewToggle(queue.KindMixtureRich, true, "mixture rich", queue.PriorityNormal),
		queue.NewSetValue(queue.KindParkingBrakeSet, 0, "release parking brake", queue.PriorityNormal),
		queue.NewSetValue(queue.KindThrottleSet, 20, "idle-up throttle", queue.PriorityNormal),
	}
	if snap.Motion.GS > 2 {
		steer := groundSteer(snap.Attitude.HeadingDeg, snap.Attitude.HeadingDeg, snap.Motion.GS, snap.Config.ThrottlePct, false, true)
		cmds = append(cmds, queue.NewAxis(queue.KindAxisRudder, steer.Rudder, "ground steer to runway heading"))
	}
	return cmds
}

func (e *Engine) evaluateTaxi(snap flightdata.Snapshot, atcView ATCView, now time.Time) []queue.Command {
	cmds := []queue.Command{
		queue.NewToggle(queue.KindAPMaster, false, "AP disengaged", queue.PriorityHigh),
	}

	holdingShort := atcView != nil && atcView.PhaseName() == "HOLD_SHORT"
	if holdingShort {
		cmds = append(cmds, queue.NewSetValue(queue.KindThrottleSet, 0, "hold short: zero throttle", queue.PriorityNormal))
		if snap.Motion.GS < 1 {
			cmds = append(cmds, queue.NewSetValue(queue.KindParkingBrakeSet, 100, "hold short: set parking brake", queue.PriorityNormal))
		}
	} else {
		targetHdg := snap.Attitude.HeadingDeg
		if atcView != nil {
			if brg, ok := atcView.NextWaypointBearing(snap.Position.Lat, snap.Position.Lon); ok {
				targetHdg = brg
			}
		}
		steer := groundSteer(snap.Attitude.HeadingDeg, targetHdg, snap.Motion.GS, snap.Config.ThrottlePct, false, true)
		cmds = append(cmds, queue.NewAxis(queue.KindAxisRudder, steer.Rudder, "steer to taxi waypoint"))
		if steer.LeftBrake > 0 {
			cmds = append(cmds, queue.NewAxis(queue.KindAxisLeftBrake, steer.LeftBrake, "taxi fine correction"))
		}
		if steer.RightBrake > 0 {
			cmds = append(cmds, queue.NewAxis(queue.KindAxisRightBrake, steer.RightBrake, "taxi fine correction"))
		}

		hdgErr := absf(angleDiff(snap.Attitude.HeadingDeg, targetHdg))
		throttle := 35.0
		switch {
		case hdgErr > 20:
			throttle = 15
		case snap.Motion.GS < 12:
			throttle = 45
		case snap.Motion.GS > 25:
			throttle = 10
		}
		cmds = append(cmds, queue.NewSetValue(queue.KindThrottleSet, throttle, "taxi speed control", queue.PriorityNormal))
	}

	if snap.Engine.RPM < 500 && now.Sub(e.lastAutoStart) >= autoStartInterval {
		e.lastAutoStart = now
		cmds = append(cmds, queue.NewToggle(queue.KindEngineAutoStart, true, "auto-start engine", queue.PriorityNormal))
	}

	return cmds
}

func (e *Engine) evaluateClimb(snap flightdata.Snapshot, cfg phase.Config, atcView ATCView) []queue.Command {
	cmds := []queue.Command{
		queue.NewSetValue(queue.KindThrottleSet, 100, "climb power", queue.PriorityNormal),
		queue.NewToggle(queue.KindAPHdgHold, true, "HDG hold", queue.PriorityNormal),
		queue.NewToggle(queue.KindAPVsHold, true, "VS hold", queue.PriorityNormal),
		queue.NewSetValue(queue.KindAPAltVarSet, cfg.TargetCruiseAltFt, "target cruise altitude", queue.PriorityNormal),
	}

	stallMargin := snap.Motion.IAS - e.profile.FlapStallBasis(snap.Config.FlapsIndex)
	vsCmd := e.profile.Rates.ClimbFpm
	if stallMargin < 15 {
		vsCmd = e.profile.Rates.ClimbFpm * maxf(0.3, stallMargin/15)
	}
	cmds = append(cmds, queue.NewSetValue(queue.KindAPVsVarSet, vsCmd, "climb rate adapted to stall margin", queue.PriorityNormal))

	cmds = append(cmds, e.lateralNavCommands(snap, atcView)...)
	return cmds
}

func (e *Engine) evaluateCruise(snap flightdata.Snapshot, cfg phase.Config, atcView ATCView) []queue.Command {
	cmds := []queue.Command{
		queue.NewToggle(queue.KindAPAltHold, true, "ALT hold at cruise", queue.PriorityNormal),
		queue.NewSetValue(queue.KindAPAltVarSet, cfg.TargetCruiseAltFt, "cruise altitude", queue.PriorityNormal),
		queue.NewSetValue(queue.KindAPSpdVarSet, e.profile.Speeds.Vcruise, "cruise speed", queue.PriorityNormal),
	}

	speedError := e.profile.Speeds.Vcruise - snap.Motion.IAS
	throttle := clampf(70+speedError*1.5, 70, 100)
	cmds = append(cmds, queue.NewSetValue(queue.KindThrottleSet, throttle, "cruise throttle by speed error", queue.PriorityNormal))

	cmds = append(cmds, evaluateAltDeviation(snap, cfg.TargetCruiseAltFt)...)
	cmds = append(cmds, e.lateralNavCommands(snap, atcView)...)
	return cmds
}

func (e *Engine) evaluateDescent(snap flightdata.Snapshot, cfg phase.Config, atcView ATCView) []queue.Command {
	cmds := []queue.Command{
		queue.NewToggle(queue.KindAPAltHold, false, "ALT hold disengaged", queue.PriorityNormal),
		queue.NewToggle(queue.KindAPVsHold, true, "VS hold", queue.PriorityNormal),
		queue.NewSetValue(queue.KindAPVsVarSet, -e.profile.Rates.DescentFpm, "profile descent rate", queue.PriorityNormal),
	}

	speedExcess := snap.Motion.IAS - e.profile.PhaseSpeeds.Descent
	throttle := clampf(50-speedExcess*2, 20, 70)
	cmds = append(cmds, queue.NewSetValue(queue.KindThrottleSet, throttle, "descent throttle inverse to speed excess", queue.PriorityNormal))

	cmds = append(cmds, e.lateralNavCommands(snap, atcView)...)
	return cmds
}

func (e *Engine) evaluateApproach(snap flightdata.Snapshot) []queue.Command {
	var cmds []queue.Command

	targetFlaps := 1
	switch {
	case snap.Position.AltAGL < 400:
		targetFlaps = 3
	case snap.Position.AltAGL < 800:
		targetFlaps = 2
	}
	switch {
	case snap.Config.FlapsIndex < targetFlaps:
		cmds = append(cmds, queue.NewToggle(queue.KindFlapsDown, true, "extend flaps", queue.PriorityNormal))
	case snap.Config.FlapsIndex > targetFlaps:
		cmds = append(cmds, queue.NewToggle(queue.KindFlapsUp, true, "retract flaps to gate", queue.PriorityNormal))
	}

	if snap.Nav.ApproachMode && snap.Nav.ApproachHasGlideslope {
		cmds = append(cmds, queue.NewToggle(queue.KindAPAprHold, true, "engage APR", queue.PriorityNormal))
	} else {
		cmds = append(cmds, headingCommand(snap, snap.Nav.ActiveWaypointBearingDeg)...)
	}

	throttle := 40.0
	stallMargin := snap.Motion.IAS - e.profile.FlapStallBasis(snap.Config.FlapsIndex)
	if stallMargin < 10 {
		throttle = 60
	}
	if snap.Motion.IAS > e.profile.Speeds.Vfe-5 {
		throttle = 25
	}
	cmds = append(cmds, queue.NewSetValue(queue.KindThrottleSet, throttle, "approach throttle", queue.PriorityNormal))

	return cmds
}

func (e *Engine) evaluateLanding(snap flightdata.Snapshot) []queue.Command {
	var cmds []queue.Command

	if !snap.OnGround() {
		agl := snap.Position.AltAGL
		var vsCmd float64
		switch {
		case agl > 100:
			vsCmd = -300
		case agl > 50:
			vsCmd = -200
		case agl > 20:
			vsCmd = -100
		default:
			vsCmd = -50 // flare
		}
		cmds = append(cmds, queue.NewSetValue(queue.KindAPVsVarSet, vsCmd, "landing descent ladder", queue.PriorityNormal))

		if agl < 20 {
			cmds = append(cmds,
				queue.NewToggle(queue.KindAPMaster, false, "AP disengaged for flare", queue.PriorityHigh),
				queue.NewAxis(queue.KindAxisElevator, -15, "flare: nose-up elevator"),
			)
		}
		return cmds
	}

	cmds = append(cmds,
		queue.NewAxis(queue.KindAxisElevator, 0, "center elevator"),
		queue.NewAxis(queue.KindAxisAilerons, 0, "center ailerons"),
		queue.NewAxis(queue.KindAxisRudder, 0, "center rudder"),
		queue.NewToggle(queue.KindFlapsUp, true, "retract flaps", queue.PriorityNormal),
	)
	if snap.Motion.GS > 5 && snap.Motion.GS < 40 {
		cmds = append(cmds,
			queue.NewAxis(queue.KindAxisLeftBrake, 30, "rollout braking"),
			queue.NewAxis(queue.KindAxisRightBrake, 30, "rollout braking"),
		)
	}
	return cmds
}

// lateralNavCommands resolves the priority chain and either engages
// NAV mode or commands a heading bug with HDG hold.
func (e *Engine) lateralNavCommands(snap flightdata.Snapshot, atcView ATCView) []queue.Command {
	heading, navEligible := e.lateralNavHeading(snap, atcView)
	if navEligible {
		return []queue.Command{queue.NewToggle(queue.KindAPNav1Hold, true, "engage NAV mode", queue.PriorityNormal)}
	}
	return headingCommand(snap, heading)
}
