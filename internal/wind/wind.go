// Package wind computes heading corrections for a desired track given
// a wind vector, and flags turbulence from vertical-speed variance.
package wind

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Correction is the result of a wind-triangle solve (spec §4.3.4).
type Correction struct {
	HeadingDeg    float64 // heading to fly to make good the desired track
	CrosswindKt   float64 // positive = from the right
	HeadwindKt    float64 // positive = headwind
}

// Correct solves the wind triangle: given a desired ground track,
// true airspeed and wind vector, returns the heading to fly. Mirrors
// spec §7 S7: dtk=090, TAS=120, wind 360/20 -> heading ~099.6.
func Correct(desiredTrackDeg, tasKt, windDirDeg, windKt float64) Correction {
	if tasKt <= 0 {
		return Correction{HeadingDeg: desiredTrackDeg}
	}

	trackRad := desiredTrackDeg * math.Pi / 180
	windFromRad := windDirDeg * math.Pi / 180

	// Angle between the wind (blowing FROM windDirDeg) and the track.
	windAngle := trackRad - windFromRad

	crosswind := windKt * math.Sin(windAngle)
	headwind := windKt * math.Cos(windAngle)

	// Wind correction angle via the classic sine-rule approximation.
	wca := math.Asin(clamp(crosswind/tasKt, -1, 1)) * 180 / math.Pi

	heading := desiredTrackDeg + wca
	heading = normalizeDeg(heading)

	return Correction{
		HeadingDeg:  heading,
		CrosswindKt: crosswind,
		HeadwindKt:  headwind,
	}
}

// GroundTrack is the inverse: given a flown heading, TAS and wind,
// returns the resulting ground track. Used by the round-trip test in
// testable property 8 (spec §8 S7): the ground track from the
// computed heading must equal the original desired track.
func GroundTrack(headingDeg, tasKt, windDirDeg, windKt float64) float64 {
	headingRad := headingDeg * math.Pi / 180
	windDirRad := windDirDeg * math.Pi / 180

	// Aircraft velocity vector (north, east) plus wind vector. The wind
	// vector points toward windDirDeg, the same convention Correct's
	// crosswind term and heading solution use, so flying Correct's
	// heading reproduces the desired track.
	acN := tasKt * math.Cos(headingRad)
	acE := tasKt * math.Sin(headingRad)
	windN := windKt * math.Cos(windDirRad)
	windE := windKt * math.Sin(windDirRad)

	gsN := acN + windN
	gsE := acE + windE

	track := math.Atan2(gsE, gsN) * 180 / math.Pi
	return normalizeDeg(track)
}

// TurbulenceDetector flags turbulence from the variance of recent
// vertical-speed samples. Grounded on the pack's reliance on
// `gonum.org/v1/gonum` for onboard statistics: a single rolling
// variance is what's actually needed here, not a full state
// estimator (the teacher's Kalman filter was dropped for that reason
// — see DESIGN.md).
type TurbulenceDetector struct {
	window []float64
	size   int
}

// NewTurbulenceDetector creates a detector with the given sample
// window (a 10-sample window at a 1 Hz tick covers ~10s of history).
func NewTurbulenceDetector(windowSize int) *TurbulenceDetector {
	if windowSize < 2 {
		windowSize = 10
	}
	return &TurbulenceDetector{size: windowSize}
}

// Observe records a vertical-speed sample (fpm).
func (t *TurbulenceDetector) Observe(vsFpm float64) {
	t.window = append(t.window, vsFpm)
	if len(t.window) > t.size {
		t.window = t.window[len(t.window)-t.size:]
	}
}

// Variance returns the sample variance of the current window, or 0
// if not enough samples have been collected yet.
func (t *TurbulenceDetector) Variance() float64 {
	if len(t.window) < 2 {
		return 0
	}
	_, variance := stat.MeanVariance(t.window, nil)
	return variance
}

// IsTurbulent reports whether the current VS variance exceeds the
// given threshold (fpm²).
func (t *TurbulenceDetector) IsTurbulent(thresholdFpmSq float64) bool {
	return t.Variance() > thresholdFpmSq
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
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
