package wind

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Scenario S7: DTK 090, TAS 120kt, wind 360/20kt -> heading ~099.6,
// crosswind +20kt (from the right), headwind 0.
func TestCorrectScenarioS7(t *testing.T) {
	c := Correct(90, 120, 360, 20)

	assert.InDelta(t, 99.6, c.HeadingDeg, 0.1)
	assert.InDelta(t, 20, c.CrosswindKt, 0.01)
	assert.InDelta(t, 0, c.HeadwindKt, 0.01)
}

// Invariant 8 (round-trip): flying the corrected heading through the
// same wind reproduces the original desired track.
func TestGroundTrackRoundTripsScenarioS7(t *testing.T) {
	c := Correct(90, 120, 360, 20)
	track := GroundTrack(c.HeadingDeg, 120, 360, 20)
	assert.InDelta(t, 90, track, 0.5)
}

// compute_intercept_heading(dtk, 0, 'TO') == dtk mod 360: with no wind,
// the corrected heading is exactly the desired track.
func TestCorrectWithNoWindReturnsTrackUnchanged(t *testing.T) {
	for _, dtk := range []float64{0, 45, 90, 180, 270, 359} {
		c := Correct(dtk, 100, 270, 0)
		assert.InDelta(t, dtk, c.HeadingDeg, 1e-9)
	}
}

func TestCorrectZeroAirspeedReturnsTrack(t *testing.T) {
	c := Correct(123, 0, 45, 30)
	assert.Equal(t, 123.0, c.HeadingDeg)
}

func TestCorrectDirectHeadwind(t *testing.T) {
	c := Correct(0, 100, 0, 20)
	assert.InDelta(t, 0, c.HeadingDeg, 0.01)
	assert.InDelta(t, 20, c.HeadwindKt, 0.01)
	assert.InDelta(t, 0, c.CrosswindKt, 0.01)
}

func TestTurbulenceDetectorVarianceAndThreshold(t *testing.T) {
	d := NewTurbulenceDetector(5)
	assert.Equal(t, 0.0, d.Variance(), "fewer than 2 samples reports zero variance")

	for _, v := range []float64{0, 0, 0, 0, 0} {
		d.Observe(v)
	}
	assert.Equal(t, 0.0, d.Variance())
	assert.False(t, d.IsTurbulent(1))

	for _, v := range []float64{500, -500, 600, -600, 700} {
		d.Observe(v)
	}
	assert.Greater(t, d.Variance(), 0.0)
	assert.True(t, d.IsTurbulent(1000))
}

func TestTurbulenceDetectorWindowBounded(t *testing.T) {
	d := NewTurbulenceDetector(3)
	for i := 0; i < 10; i++ {
		d.Observe(float64(i))
	}
	assert.Len(t, d.window, 3)
}
