// Package terrain implements the look-ahead terrain clearance guard
// (spec §4.3.6). Severity escalation (CAUTION/WARNING, merged with an
// external TAWS reading by max severity) is grounded on the teacher's
// `failsafe.EmergencySystem` enum-with-escalation idiom, repurposed
// from airframe-health states to terrain-clearance states.
package terrain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/flightcore/copilot/internal/flightdata"
)

// Severity is the terrain-guard alert level.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityCaution
	SeverityWarning
)

// String renders the severity for logs and phraseology.
func (s Severity) String() string {
	switch s {
	case SeverityCaution:
		return "CAUTION"
	case SeverityWarning:
		return "WARNING"
	default:
		return "NONE"
	}
}

// Grid abstracts the terrain elevation grid, injected rather than a
// package-level singleton so tests can stub it (DESIGN NOTES).
type Grid interface {
	ElevationFt(lat, lon float64) float64
}

// LookAheadPoint is one projected sample along the current heading.
type LookAheadPoint struct {
	DistanceNm      float64
	PredictedAltFt  float64
	TerrainFt       float64
	ClearanceFt     float64
}

// Alert is the terrain guard's tick output.
type Alert struct {
	Severity        Severity
	WorstClearance  float64
	ClimbTargetFt   float64 // only meaningful when Severity == Warning
	Points          []LookAheadPoint
}

const (
	warningClearanceFt = 500
	cautionClearanceFt = 1500
	climbBufferFt      = 1500
)

var lookAheadDistancesNm = []float64{2, 5, 10}

// Guard projects ahead along the current heading and compares
// predicted altitude to terrain elevation.
type Guard struct {
	grid Grid
}

// NewGuard builds a Guard bound to a terrain grid.
func NewGuard(grid Grid) *Guard {
	return &Guard{grid: grid}
}

// Evaluate projects 2/5/10 nm ahead of the current position along the
// current heading, predicting altitude from current VS and GS, and
// returns the worst-case alert, merged with the external TAWS reading
// by max severity.
func (g *Guard) Evaluate(snap flightdata.Snapshot, externalTAWS flightdata.TAWSLevel) Alert {
	if g.grid == nil {
		return Alert{Severity: fromTAWS(externalTAWS)}
	}

	origin := orb.Point{snap.Position.Lon, snap.Position.Lat}
	bearingRad := snap.Attitude.HeadingDeg * math.Pi / 180

	gsKt := snap.Motion.GS
	if gsKt < 1 {
		gsKt = 1
	}

	points := make([]LookAheadPoint, 0, len(lookAheadDistancesNm))
	worst := Alert{Severity: SeverityNone, WorstClearance: 1e9}

	for _, distNm := range lookAheadDistancesNm {
		dest := destinationPoint(origin, bearingRad, distNm)
		terrainFt := g.grid.ElevationFt(dest[1], dest[0])

		etaHours := distNm / gsKt
		predictedAlt := snap.Position.AltMSL + snap.Motion.VS*(etaHours*60)

		clearance := predictedAlt - terrainFt
		points = append(points, LookAheadPoint{
			DistanceNm:     distNm,
			PredictedAltFt: predictedAlt,
			TerrainFt:      terrainFt,
			ClearanceFt:    clearance,
		})

		if clearance < worst.WorstClearance {
			worst.WorstClearance = clearance
		}
	}

	worst.Points = points
	switch {
	case worst.WorstClearance < warningClearanceFt:
		worst.Severity = SeverityWarning
		worst.ClimbTargetFt = maxf(worst.ClimbTargetFt, highestTerrain(points)+climbBufferFt)
	case worst.WorstClearance < cautionClearanceFt:
		worst.Severity = SeverityCaution
	default:
		worst.Severity = SeverityNone
	}

	if ext := fromTAWS(externalTAWS); ext > worst.Severity {
		worst.Severity = ext
	}

	return worst
}

func fromTAWS(level flightdata.TAWSLevel) Severity {
	switch level {
	case flightdata.TAWSWarning:
		return SeverityWarning
	case flightdata.TAWSCaution:
		return SeverityCaution
	default:
		return SeverityNone
	}
}

func highestTerrain(points []LookAheadPoint) float64 {
	highest := 0.0
	for _, p := range points {
		if p.TerrainFt > highest {
			highest = p.TerrainFt
		}
	}
	return highest
}

// destinationPoint projects a point distNm nautical miles along
// bearingRad from origin using great-circle geometry.
func destinationPoint(origin orb.Point, bearingRad, distNm float64) orb.Point {
	const earthRadiusNm = 3440.065
	latRad := origin[1] * math.Pi / 180
	lonRad := origin[0] * math.Pi / 180
	angularDist := distNm / earthRadiusNm

	newLat := math.Asin(math.Sin(latRad)*math.Cos(angularDist) + math.Cos(latRad)*math.Sin(angularDist)*math.Cos(bearingRad))
	newLon := lonRad + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angularDist)*math.Cos(latRad),
		math.Cos(angularDist)-math.Sin(latRad)*math.Sin(newLat),
	)

	return orb.Point{newLon * 180 / math.Pi, newLat * 180 / math.Pi}
}

// DistanceFt wraps orb/geo's distance for callers that want terrain
// clearance helper math in feet rather than meters.
func DistanceFt(a, b orb.Point) float64 {
	return geo.Distance(a, b) * 3.28084
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
