// Package supervisor owns per-tick orchestration (spec §4.5): feed
// telemetry through the phase classifier, the ATC controller, and the
// rule engine, reset the queue's dedup state on phase change, and
// build the immutable live snapshot consumers pull from.
//
// Surfacing the queue's fault counters in the live snapshot is grounded
// on the teacher's internal/redundancy/fault_tolerance.go counters. The
// process lifecycle (initialize/start/shutdown) lives in cmd/autopilotd,
// not in this package.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flightcore/copilot/internal/atc"
	"github.com/flightcore/copilot/internal/envelope"
	"github.com/flightcore/copilot/internal/flightdata"
	"github.com/flightcore/copilot/internal/phase"
	"github.com/flightcore/copilot/internal/queue"
	"github.com/flightcore/copilot/internal/ruleengine"
	"github.com/flightcore/copilot/pkg/utils"
)

// LiveSnapshot is the immutable, pull-only projection of the latest
// tick handed to UI/HTTP consumers (DESIGN NOTES' "mutable live
// snapshot" resolution): produced once per tick by buildSnapshot and
// never mutated afterward.
type LiveSnapshot struct {
	Timestamp int64 `json:"timestamp"`

	Phase     string `json:"phase"`
	ATCPhase  string `json:"atcPhase"`
	Attached  bool   `json:"atcAttached"`

	Position flightdata.Position `json:"position"`
	Attitude flightdata.Attitude `json:"attitude"`
	Motion   flightdata.Motion   `json:"motion"`

	Envelope envelope.Snapshot `json:"envelope"`

	QueueLength      int                   `json:"queueLength"`
	ActiveOverrides  []queue.ActiveOverride `json:"activeOverrides"`
	Counters         queue.Counters        `json:"counters"`
}

// Supervisor drives one copilot instance: classifier, ATC, rule
// engine and command queue wired together each tick.
type Supervisor struct {
	classifier *phase.Classifier
	atcCtrl    *atc.Controller
	engine     *ruleengine.Engine
	cmdQueue   *queue.Queue
	logger     *logrus.Entry

	cfg  phase.Config
	fuel envelope.FuelState

	apEngaged bool
	lastTick  time.Time
	lastSnap  LiveSnapshot

	onPhaseChange func(old, new phase.Phase)
}

// New builds a Supervisor from its already-constructed collaborators.
func New(classifier *phase.Classifier, atcCtrl *atc.Controller, engine *ruleengine.Engine, cmdQueue *queue.Queue, cfg phase.Config, fuel envelope.FuelState, logger *logrus.Entry) *Supervisor {
	if logger == nil {
		logger = utils.WithComponent(nil, "supervisor")
	}
	s := &Supervisor{
		classifier: classifier,
		atcCtrl:    atcCtrl,
		engine:     engine,
		cmdQueue:   cmdQueue,
		cfg:        cfg,
		fuel:       fuel,
		logger:     logger,
	}
	classifier.OnPhaseChange(func(old, new phase.Phase) {
		if s.onPhaseChange != nil {
			s.onPhaseChange(old, new)
		}
	})
	return s
}

// OnPhaseChange registers the phase-transition callback (spec §6
// on_phase_change).
func (s *Supervisor) OnPhaseChange(fn func(old, new phase.Phase)) {
	s.onPhaseChange = fn
}

// SetCruiseConfig updates the classifier/rule-engine's navigation
// config (target cruise altitude, field elevation, destination
// distance), read fresh from flight-plan state each tick by the
// caller.
func (s *Supervisor) SetCruiseConfig(cfg phase.Config) {
	s.cfg = cfg
}

// RequestTaxiClearance begins ATC ground handling.
func (s *Supervisor) RequestTaxiClearance(icao, runway string, fromLat, fromLon float64) {
	s.atcCtrl.RequestTaxiClearance(icao, runway, fromLat, fromLon)
}

// RegisterOverride forwards a pilot override registration to the
// queue.
func (s *Supervisor) RegisterOverride(axis queue.OverrideAxis, duration time.Duration) {
	s.cmdQueue.RegisterOverride(axis, duration)
}

// LatestSnapshot returns the most recently built live snapshot.
func (s *Supervisor) LatestSnapshot() LiveSnapshot {
	return s.lastSnap
}

// Tick runs one orchestration cycle (spec §4.5), never panicking: a
// recovered panic is logged and absorbed, and the previous live
// snapshot is returned with an error, matching spec §7's "the
// supervisor never throws." Fuel burn, the tick timestamp and the
// classifier update made before the panic are kept.
func (s *Supervisor) Tick(ctx context.Context, snap flightdata.Snapshot) (out LiveSnapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				utils.WithPhase(s.logger, s.lastSnap.Phase).WithField("panic", fmt.Sprint(r)).Error("recovered from tick panic")
			}
			err = fmt.Errorf("tick panic: %v", r)
			out = s.lastSnap
		}
	}()

	now := time.Now()
	dt := flightdata.Sanitize(now.Sub(s.lastTick).Seconds())
	if s.lastTick.IsZero() {
		dt = 0.05
	}
	s.lastTick = now
	s.fuel.Burn(dt)

	before := s.classifier.State()
	newPhase := s.classifier.Update(snap, s.cfg, s.atcCtrl, now)
	phaseChanged := newPhase != before

	if s.atcCtrl.Attached() {
		s.atcCtrl.UpdatePosition(snap, now)
	}

	cmds := s.engine.Evaluate(snap, newPhase, s.cfg, s.atcCtrl, s.fuel, s.apEngaged, now)

	if phaseChanged {
		s.cmdQueue.Reset()
	}
	for _, cmd := range cmds {
		s.cmdQueue.Enqueue(ctx, cmd)
		if cmd.Kind == queue.KindAPMaster {
			s.apEngaged = cmd.BoolValue
		}
	}

	s.lastSnap = s.buildSnapshot(snap, newPhase, now)
	return s.lastSnap, nil
}

func (s *Supervisor) buildSnapshot(snap flightdata.Snapshot, ph phase.Phase, now time.Time) LiveSnapshot {
	env := s.engine.ComputeEnvelope(snap, s.fuel)
	return LiveSnapshot{
		Timestamp:       now.UnixNano(),
		Phase:           ph.String(),
		ATCPhase:        s.atcCtrl.PhaseName(),
		Attached:        s.atcCtrl.Attached(),
		Position:        snap.Position,
		Attitude:        snap.Attitude,
		Motion:          snap.Motion,
		Envelope:        env,
		QueueLength:     s.cmdQueue.Len(),
		ActiveOverrides: s.cmdQueue.GetActiveOverrides(),
		Counters:        s.cmdQueue.Counters(),
	}
}
