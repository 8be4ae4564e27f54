package flightdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshotWireAndToSnapshot(t *testing.T) {
	data := []byte(`{
		"position": {"lat": 47.9, "lon": -122.28, "altMsl": 1200, "altAgl": 1000},
		"attitude": {"pitch": 3, "bank": -5, "heading": 160},
		"motion": {"ias": 95, "gs": 98, "vs": 400},
		"environment": {"windDir": 270, "windKt": 10, "oat": 15},
		"config": {"flapsIndex": 1, "gearDown": true, "parkingBrake": false, "throttlePct": 65},
		"engine": {"rpm": 2300, "running": true},
		"nav": {
			"cdi": {"source": "GPS", "dtk": 90, "xtrk": 0.2, "toFrom": "TO", "gsValid": true},
			"activeWaypoint": {"ident": "ALPHA", "bearing": 88, "distNm": 4.2},
			"approach": {"mode": false, "hasGlideslope": false},
			"destDistNm": 12.5
		},
		"taws": 1,
		"rawOnGround": false
	}`)

	w, err := DecodeSnapshotWire(data)
	require.NoError(t, err)

	now := time.Now()
	snap := w.ToSnapshot(now)

	assert.Equal(t, now, snap.Timestamp)
	assert.Equal(t, 47.9, snap.Position.Lat)
	assert.Equal(t, 1000.0, snap.Position.AltAGL)
	assert.Equal(t, -5.0, snap.Attitude.BankDeg)
	assert.Equal(t, 95.0, snap.Motion.IAS)
	assert.Equal(t, 10.0, snap.Environment.WindKt)
	assert.Equal(t, 1, snap.Config.FlapsIndex)
	assert.True(t, snap.Config.GearDown)
	assert.True(t, snap.Engine.Running)
	assert.Equal(t, CDIGPS, snap.Nav.CDISource)
	assert.Equal(t, ToFromTO, snap.Nav.ToFrom)
	assert.Equal(t, "ALPHA", snap.Nav.ActiveWaypointIdent)
	assert.Equal(t, 12.5, snap.Nav.DestDistNm)
	assert.Equal(t, TAWSCaution, snap.TAWS)
}

func TestDecodeSnapshotWireRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeSnapshotWire([]byte(`{not json`))
	assert.Error(t, err)
}

func TestDecodeSnapshotWireDefaultsMissingFieldsToZeroValues(t *testing.T) {
	w, err := DecodeSnapshotWire([]byte(`{}`))
	require.NoError(t, err)

	snap := w.ToSnapshot(time.Now())
	assert.Equal(t, 0.0, snap.Position.Lat)
	assert.Equal(t, CDINone, snap.Nav.CDISource)
	assert.Equal(t, ToFromUnknown, snap.Nav.ToFrom)
	assert.Equal(t, TAWSNone, snap.TAWS)
}

func TestParseToFromAcceptsStringAndNumericForms(t *testing.T) {
	assert.Equal(t, ToFromTO, ParseToFrom("TO"))
	assert.Equal(t, ToFromTO, ParseToFrom("1"))
	assert.Equal(t, ToFromTO, ParseToFrom(float64(1)))
	assert.Equal(t, ToFromTO, ParseToFrom(1))
	assert.Equal(t, ToFromFROM, ParseToFrom("FROM"))
	assert.Equal(t, ToFromFROM, ParseToFrom(float64(2)))
	assert.Equal(t, ToFromUnknown, ParseToFrom("garbage"))
	assert.Equal(t, ToFromUnknown, ParseToFrom(nil))
}

func TestSanitizeClampsNaNAndOutOfRangeDt(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	assert.Equal(t, 0.05, Sanitize(nan))
	assert.Equal(t, 0.05, Sanitize(0.0))
	assert.Equal(t, 0.05, Sanitize(0.01))
	assert.Equal(t, 1.0, Sanitize(5.0))
	assert.Equal(t, 0.5, Sanitize(0.5))
}

func TestOnGroundHeuristic(t *testing.T) {
	grounded := Snapshot{RawOnGround: true, Position: Position{AltAGL: 10}}
	assert.True(t, grounded.OnGround())

	lowAndSlow := Snapshot{Position: Position{AltAGL: 5}, Motion: Motion{VS: 50}}
	assert.True(t, lowAndSlow.OnGround())

	airborne := Snapshot{RawOnGround: false, Position: Position{AltAGL: 500}, Motion: Motion{VS: 800}}
	assert.False(t, airborne.OnGround())

	untrustedRawFlagHighAGL := Snapshot{RawOnGround: true, Position: Position{AltAGL: 500}}
	assert.False(t, untrustedRawFlagHighAGL.OnGround(), "raw ground flag alone above 50ft AGL must not be trusted")
}

func TestEngineRunningHeuristic(t *testing.T) {
	assert.True(t, Snapshot{Engine: Engine{Running: true}}.EngineRunning())
	assert.True(t, Snapshot{Engine: Engine{RPM: 600}}.EngineRunning())
	assert.False(t, Snapshot{Engine: Engine{RPM: 200}}.EngineRunning())
}
