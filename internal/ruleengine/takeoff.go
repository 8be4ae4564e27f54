package ruleengine

import (
	"time"

	"github.com/flightcore/copilot/internal/flightdata"
	"github.com/flightcore/copilot/internal/queue"
)

// TakeoffSubPhase is one state of the takeoff ground-roll-to-departure
// machine (spec §4.3.2).
type TakeoffSubPhase int

const (
	BeforeRoll TakeoffSubPhase = iota
	Roll
	Rotate
	Liftoff
	InitialClimb
	Departure
)

// String renders the sub-phase for logs.
func (s TakeoffSubPhase) String() string {
	names := []string{"BEFORE_ROLL", "ROLL", "ROTATE", "LIFTOFF", "INITIAL_CLIMB", "DEPARTURE"}
	if int(s) < len(names) {
		return names[s]
	}
	return "UNKNOWN"
}

const (
	rotateElevatorStart = -3.0
	rotateElevatorFloor = -8.0
	rotateRampPerSecond = 2.0
	liftoffPitchTarget  = 7.5
	minClimbPitch       = 5.0
)

type takeoffState struct {
	subPhase TakeoffSubPhase

	enteredAt time.Time
	lastTick  time.Time

	runwayHeadingDeg float64
	rotateElevator   float64

	holds map[TakeoffSubPhase]bool
}

func newTakeoffState() *takeoffState {
	return &takeoffState{rotateElevator: rotateElevatorStart, holds: make(map[TakeoffSubPhase]bool)}
}

func (t *takeoffState) advance(to TakeoffSubPhase, now time.Time) {
	t.subPhase = to
	t.enteredAt = now
}

func (e *Engine) evaluateTakeoff(snap flightdata.Snapshot, now time.Time) []queue.Command {
	if e.takeoff == nil {
		e.takeoff = newTakeoffState()
		e.takeoff.enteredAt = now
		e.takeoff.lastTick = now
		e.takeoff.runwayHeadingDeg = snap.Attitude.HeadingDeg
	}
	ts := e.takeoff
	dt := flightdata.Sanitize(now.Sub(ts.lastTick).Seconds())
	ts.lastTick = now
	held := ts.holds[ts.subPhase]

	var cmds []queue.Command

	switch ts.subPhase {
	case BeforeRoll:
		cmds = append(cmds,
			queue.NewAxis(queue.KindAxisElevator, 0, "center elevator"),
			queue.NewAxis(queue.KindAxisAilerons, 0, "center ailerons"),
			queue.NewAxis(queue.KindAxisRudder, 0, "center rudder"),
			queue.NewToggle(queue.KindMixtureRich, true, "mixture rich for takeoff", queue.PriorityNormal),
			queue.NewSetValue(queue.KindParkingBrakeSet, 0, "release parking brake", queue.PriorityHigh),
		)
		if !snap.Config.ParkingBrake && !held {
			ts.advance(Roll, now)
		}

	case Roll:
		steer := groundSteer(snap.Attitude.HeadingDeg, ts.runwayHeadingDeg, snap.Motion.GS, snap.Config.ThrottlePct, true, false)
		aileron := targetBank(snap.Attitude.BankDeg, 0, 30, e.rollBias, true)
		cmds = append(cmds,
			queue.NewSetValue(queue.KindThrottleSet, 100, "full power", queue.PriorityHigh),
			queue.NewAxis(queue.KindAxisRudder, steer.Rudder, "ground steer to runway heading"),
			queue.NewAxis(queue.KindAxisElevator, 0, "elevator neutral"),
			queue.NewAxis(queue.KindAxisAilerons, aileron, "wings level"),
		)
		if snap.Motion.IAS >= e.profile.Speeds.Vr && !held {
			ts.advance(Rotate, now)
		}

	case Rotate:
		ts.rotateElevator = clampf(ts.rotateElevator-rotateRampPerSecond*dt, rotateElevatorFloor, rotateElevatorStart)
		aileron := targetBank(snap.Attitude.BankDeg, 0, 30, e.rollBias, true)
		cmds = append(cmds,
			queue.NewSetValue(queue.KindThrottleSet, 100, "full power", queue.PriorityHigh),
			queue.NewAxis(queue.KindAxisElevator, ts.rotateElevator, "progressive rotation"),
			queue.NewAxis(queue.KindAxisAilerons, aileron, "wings level"),
		)
		if !snap.OnGround() && !held {
			ts.advance(Liftoff, now)
		}

	case Liftoff:
		elevator, last := targetPitch(snap.Attitude.PitchDeg, liftoffPitchTarget, 80, snap.Position.AltMSL, snap.Motion.IAS, e.profile.Speeds.Vr, snap.Position.AltAGL, e.lastPitchDeg, dt, e.profile.Limits.MaxPitchUpDeg)
		e.lastPitchDeg = last
		aileron := targetBank(snap.Attitude.BankDeg, 0, 30, e.rollBias, true)
		cmds = append(cmds,
			queue.NewSetValue(queue.KindThrottleSet, 100, "full power", queue.PriorityHigh),
			queue.NewAxis(queue.KindAxisElevator, elevator, "hold liftoff pitch"),
			queue.NewAxis(queue.KindAxisAilerons, aileron, "wings level"),
		)
		if snap.Motion.IAS < e.profile.Speeds.Vs1+8 {
			cmds = append(cmds, queue.NewSetValue(queue.KindThrottleSet, 100, "stall protection: full power", queue.PriorityHigh))
		}
		if snap.Motion.VS > 100 && snap.Position.AltAGL > 200 && !held {
			ts.advance(InitialClimb, now)
		}

	case InitialClimb:
		pitchTarget := pitchTargetForSpeed(snap.Motion.IAS, e.profile.Speeds.Vy, minClimbPitch, true)
		elevator, last := targetPitch(snap.Attitude.PitchDeg, pitchTarget, 80, snap.Position.AltMSL, snap.Motion.IAS, e.profile.Speeds.Vr, snap.Position.AltAGL, e.lastPitchDeg, dt, e.profile.Limits.MaxPitchUpDeg)
		e.lastPitchDeg = last
		cmds = append(cmds,
			queue.NewSetValue(queue.KindThrottleSet, 100, "full power", queue.PriorityHigh),
			queue.NewAxis(queue.KindAxisElevator, elevator, "climb pitch for Vy"),
		)

		if snap.Motion.IAS >= e.profile.Speeds.Vs1+15 && snap.Position.AltAGL > 500 {
			cmds = append(cmds,
				queue.NewSetValue(queue.KindHeadingBugSet, snap.Attitude.HeadingDeg, "capture heading on AP engage", queue.PriorityNormal),
				queue.NewToggle(queue.KindAPHdgHold, true, "engage HDG hold", queue.PriorityNormal),
				queue.NewToggle(queue.KindAPVsHold, true, "engage VS hold", queue.PriorityNormal),
				queue.NewToggle(queue.KindAPMaster, true, "engage autopilot", queue.PriorityHigh),
			)
			if !held {
				ts.advance(Departure, now)
			}
		}

	case Departure:
		cmds = append(cmds,
			queue.NewToggle(queue.KindFlapsUp, true, "retract flaps", queue.PriorityNormal),
			queue.NewSetValue(queue.KindAPSpdVarSet, e.profile.Speeds.Vy, "climb speed Vy", queue.PriorityNormal),
			queue.NewToggle(queue.KindLandingLightsTgl, false, "landing lights off", queue.PriorityNormal),
		)
	}

	return cmds
}
