package terrain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightcore/copilot/internal/flightdata"
)

func TestEvaluateNilGridFallsBackToExternalTAWS(t *testing.T) {
	g := NewGuard(nil)
	alert := g.Evaluate(flightdata.Snapshot{}, flightdata.TAWSWarning)
	assert.Equal(t, SeverityWarning, alert.Severity)

	alert = g.Evaluate(flightdata.Snapshot{}, flightdata.TAWSNone)
	assert.Equal(t, SeverityNone, alert.Severity)
}

func TestEvaluateWarningWhenClearanceBelowThreshold(t *testing.T) {
	grid := ConstantGrid{ElevFt: 5000}
	g := NewGuard(grid)

	snap := flightdata.Snapshot{
		Position: flightdata.Position{Lat: 47.5, Lon: -121.0, AltMSL: 5200},
		Attitude: flightdata.Attitude{HeadingDeg: 90},
		Motion:   flightdata.Motion{GS: 100, VS: 0},
	}
	alert := g.Evaluate(snap, flightdata.TAWSNone)

	assert.Equal(t, SeverityWarning, alert.Severity)
	assert.Greater(t, alert.ClimbTargetFt, 5000.0)
	require.Len(t, alert.Points, 3)
}

func TestEvaluateNoneWithComfortableClearance(t *testing.T) {
	grid := ConstantGrid{ElevFt: 500}
	g := NewGuard(grid)

	snap := flightdata.Snapshot{
		Position: flightdata.Position{Lat: 47.5, Lon: -121.0, AltMSL: 6000},
		Attitude: flightdata.Attitude{HeadingDeg: 0},
		Motion:   flightdata.Motion{GS: 100, VS: 0},
	}
	alert := g.Evaluate(snap, flightdata.TAWSNone)
	assert.Equal(t, SeverityNone, alert.Severity)
}

func TestEvaluateExternalTAWSEscalatesOverComputedSeverity(t *testing.T) {
	grid := ConstantGrid{ElevFt: 500}
	g := NewGuard(grid)

	snap := flightdata.Snapshot{
		Position: flightdata.Position{Lat: 47.5, Lon: -121.0, AltMSL: 6000},
		Motion:   flightdata.Motion{GS: 100},
	}
	alert := g.Evaluate(snap, flightdata.TAWSWarning)
	assert.Equal(t, SeverityWarning, alert.Severity, "an external TAWS warning must escalate even a clear computed reading")
}

func TestEvaluateUsesMinimumGroundSpeedFloorToAvoidDivideByZero(t *testing.T) {
	grid := ConstantGrid{ElevFt: 0}
	g := NewGuard(grid)

	snap := flightdata.Snapshot{
		Position: flightdata.Position{Lat: 47.5, Lon: -121.0, AltMSL: 3000},
		Motion:   flightdata.Motion{GS: 0, VS: -1000},
	}
	assert.NotPanics(t, func() {
		g.Evaluate(snap, flightdata.TAWSNone)
	})
}

func TestLatLonGridReturnsFallbackOutsideBounds(t *testing.T) {
	grid := NewLatLonGrid([][]float64{{100, 200}, {300, 400}}, 47.0, -122.0, 0.1, 0.1, -9999)

	assert.Equal(t, 100.0, grid.ElevationFt(47.0, -122.0))
	assert.Equal(t, 300.0, grid.ElevationFt(47.15, -121.95))
	assert.Equal(t, -9999.0, grid.ElevationFt(0, 0))
}

func TestLoadLatLonGridCSVRasterizesSamplesAndIgnoresMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terrain.csv")
	content := "# lat,lon,elevation_ft\n47.0,-122.0,500\n47.1,-121.9,1500\nmalformed,line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	grid, err := LoadLatLonGridCSV(path, 0.05, 0.05, -1)
	require.NoError(t, err)

	assert.Equal(t, 500.0, grid.ElevationFt(47.0, -122.0))
	assert.Equal(t, 1500.0, grid.ElevationFt(47.1, -121.9))
}

func TestLoadLatLonGridCSVEmptyFileYieldsAllFallbackGrid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("# no data\n"), 0o644))

	grid, err := LoadLatLonGridCSV(path, 0.1, 0.1, -42)
	require.NoError(t, err)
	assert.Equal(t, -42.0, grid.ElevationFt(0, 0))
}

func TestLoadLatLonGridCSVMissingFileErrors(t *testing.T) {
	_, err := LoadLatLonGridCSV(filepath.Join(t.TempDir(), "missing.csv"), 0.1, 0.1, 0)
	assert.Error(t, err)
}

func TestDistanceFtMatchesKnownSeparation(t *testing.T) {
	a := orb.Point{-122.0, 47.0}
	b := orb.Point{-122.0, 47.01}
	ft := DistanceFt(a, b)
	assert.InDelta(t, 3620, ft, 200, "~0.01deg of latitude is roughly 3620ft")
}
