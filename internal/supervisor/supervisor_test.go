package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightcore/copilot/internal/atc"
	"github.com/flightcore/copilot/internal/bridge"
	"github.com/flightcore/copilot/internal/envelope"
	"github.com/flightcore/copilot/internal/flightdata"
	"github.com/flightcore/copilot/internal/phase"
	"github.com/flightcore/copilot/internal/queue"
	"github.com/flightcore/copilot/internal/ruleengine"
)

type noPlanner struct{}

func (noPlanner) RequestRoute(icao, runway string, fromLat, fromLon float64) (*flightdata.Route, error) {
	return nil, assert.AnError
}

func testProfile() flightdata.Profile {
	return flightdata.Profile{
		ID:     "C172",
		Speeds: flightdata.Speeds{Vs0: 40, Vs1: 53, Vr: 55, Vy: 74, Vno: 129, Vne: 163, Vcruise: 110},
		Weight: flightdata.Weight{EmptyLb: 1680, MaxGrossLb: 2550, DefaultPayloadLb: 340},
		Rates:  flightdata.Rates{ClimbFpm: 700, DescentFpm: 500},
		Limits: flightdata.Limits{MaxBankDeg: 45, MaxPitchUpDeg: 20, MaxPitchDownDeg: 15, MaxVS: 1500, MinVS: -1500},
	}
}

func newTestSupervisor(transport *bridge.MockTransport) *Supervisor {
	profile := testProfile()
	classifier := phase.NewClassifier()
	atcCtrl := atc.NewController(noPlanner{}, nil)
	engine := ruleengine.New(profile, envelope.NewCalculator(profile), nil, nil)
	limits := queue.ClampLimits{MinVS: -1500, MaxVS: 1500, MaxAltFt: 45000, Vs1: 53, Vno: 129}
	q := queue.New(transport, limits, queue.Config{}, nil)

	return New(classifier, atcCtrl, engine, q, phase.Config{TargetCruiseAltFt: 6500}, envelope.FuelState{FuelOnBoardLb: 530, BurnRateLbPerHr: 72}, nil)
}

func TestTickBuildsLiveSnapshotReflectingPhase(t *testing.T) {
	transport := &bridge.MockTransport{}
	s := newTestSupervisor(transport)

	snap := flightdata.Snapshot{
		Engine:   flightdata.Engine{Running: true},
		Position: flightdata.Position{AltAGL: 0},
	}

	out, err := s.Tick(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, "TAXI", out.Phase)
	assert.Equal(t, s.LatestSnapshot(), out)
}

func TestTickAdvancesPhaseFromPreflightToTaxi(t *testing.T) {
	transport := &bridge.MockTransport{}
	s := newTestSupervisor(transport)

	grounded := flightdata.Snapshot{Position: flightdata.Position{AltAGL: 0}}
	_, err := s.Tick(context.Background(), grounded)
	require.NoError(t, err)

	taxiing := flightdata.Snapshot{Engine: flightdata.Engine{Running: true}, Position: flightdata.Position{AltAGL: 0}}
	out, err := s.Tick(context.Background(), taxiing)
	require.NoError(t, err)
	assert.Equal(t, "TAXI", out.Phase)
}

func TestTickFiresOnPhaseChangeCallback(t *testing.T) {
	transport := &bridge.MockTransport{}
	s := newTestSupervisor(transport)

	var transitions [][2]string
	s.OnPhaseChange(func(old, new phase.Phase) {
		transitions = append(transitions, [2]string{old.String(), new.String()})
	})

	grounded := flightdata.Snapshot{Position: flightdata.Position{AltAGL: 0}}
	_, err := s.Tick(context.Background(), grounded)
	require.NoError(t, err)

	taxiing := flightdata.Snapshot{Engine: flightdata.Engine{Running: true}, Position: flightdata.Position{AltAGL: 0}}
	_, err = s.Tick(context.Background(), taxiing)
	require.NoError(t, err)

	require.Len(t, transitions, 1)
	assert.Equal(t, [2]string{"PREFLIGHT", "TAXI"}, transitions[0])
}

func TestTickTracksAPEngagedFromEmittedCommands(t *testing.T) {
	transport := &bridge.MockTransport{}
	s := newTestSupervisor(transport)

	cruising := flightdata.Snapshot{
		Engine:   flightdata.Engine{Running: true},
		Position: flightdata.Position{AltMSL: 6500, AltAGL: 6500},
		Motion:   flightdata.Motion{IAS: 110},
	}
	s.classifier.ForcePhase(phase.Cruise)

	_, err := s.Tick(context.Background(), cruising)
	require.NoError(t, err)
	assert.False(t, s.apEngaged, "AP_MASTER is never toggled true from CRUISE, only engaged during takeoff's InitialClimb sub-phase")
}

func TestTickRecoversFromPanicWithoutCorruptingState(t *testing.T) {
	transport := &bridge.MockTransport{}
	s := newTestSupervisor(transport)

	first, err := s.Tick(context.Background(), flightdata.Snapshot{Position: flightdata.Position{AltAGL: 0}})
	require.NoError(t, err)

	s.engine = nil // guarantees the next Tick panics inside Evaluate
	out, err := s.Tick(context.Background(), flightdata.Snapshot{})
	assert.Error(t, err)
	assert.Equal(t, first, out, "a recovered panic must leave the prior snapshot untouched")
}

func TestSetCruiseConfigUpdatesTargetAltitude(t *testing.T) {
	transport := &bridge.MockTransport{}
	s := newTestSupervisor(transport)

	s.SetCruiseConfig(phase.Config{TargetCruiseAltFt: 8000})
	assert.Equal(t, 8000.0, s.cfg.TargetCruiseAltFt)
}

func TestRegisterOverrideForwardsToQueue(t *testing.T) {
	transport := &bridge.MockTransport{}
	s := newTestSupervisor(transport)

	s.RegisterOverride(queue.AxisALT, 10*time.Second)
	overrides := s.cmdQueue.GetActiveOverrides()
	require.Len(t, overrides, 1)
	assert.Equal(t, queue.AxisALT, overrides[0].Axis)
}
