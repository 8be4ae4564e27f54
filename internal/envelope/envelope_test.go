package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flightcore/copilot/internal/flightdata"
)

func testProfile() flightdata.Profile {
	return flightdata.Profile{
		Speeds: flightdata.Speeds{Vs0: 40, Vs1: 53, Va: 99, Vno: 129, Vne: 163},
		Weight: flightdata.Weight{EmptyLb: 1680, MaxGrossLb: 2550, DefaultPayloadLb: 340},
	}
}

func TestComputeLevelFlightMatchesStaticSpeeds(t *testing.T) {
	calc := NewCalculator(testProfile())
	fuel := FuelState{FuelOnBoardLb: 530} // empty + payload + fuel == max gross
	snap := flightdata.Snapshot{Motion: flightdata.Motion{IAS: 100}}

	env := calc.Compute(snap, fuel)
	assert.InDelta(t, 2550, env.EstimatedWeightLb, 0.01)
	assert.InDelta(t, 1.0, env.LoadFactor, 0.001)
	assert.InDelta(t, 53, env.DynamicVs1, 0.01)
	assert.InDelta(t, 53, env.ActiveStallSpeed, 0.01, "clean config uses Vs1")
}

func TestComputeFlapsExtendedUsesVs0(t *testing.T) {
	calc := NewCalculator(testProfile())
	fuel := FuelState{FuelOnBoardLb: 530}
	snap := flightdata.Snapshot{Config: flightdata.Config{FlapsIndex: 2}}

	env := calc.Compute(snap, fuel)
	assert.InDelta(t, 40, env.ActiveStallSpeed, 0.01)
}

func TestComputeLighterWeightLowersDynamicStallSpeed(t *testing.T) {
	calc := NewCalculator(testProfile())
	light := calc.Compute(flightdata.Snapshot{}, FuelState{FuelOnBoardLb: 0})
	heavy := calc.Compute(flightdata.Snapshot{}, FuelState{FuelOnBoardLb: 530})

	assert.Less(t, light.DynamicVs1, heavy.DynamicVs1)
}

func TestComputeBankIncreasesLoadFactorAndStallSpeed(t *testing.T) {
	calc := NewCalculator(testProfile())
	fuel := FuelState{FuelOnBoardLb: 530}

	level := calc.Compute(flightdata.Snapshot{}, fuel)
	banked := calc.Compute(flightdata.Snapshot{Attitude: flightdata.Attitude{BankDeg: 60}}, fuel)

	assert.Greater(t, banked.LoadFactor, level.LoadFactor)
	assert.Greater(t, banked.DynamicVs1, level.DynamicVs1)
}

// Invariant 7: the dynamic active stall speed is always >= 0 and >=
// Vs_ref * sqrt(Wmin/Wmax) for any valid weight.
func TestDynamicStallSpeedRespectsMinimumFloor(t *testing.T) {
	profile := testProfile()
	calc := NewCalculator(profile)

	minWeight := profile.Weight.EmptyLb
	floor := calc.MinimumStallSpeed(minWeight)

	for _, fuelLb := range []float64{0, 50, 200, 530, 1000} {
		env := calc.Compute(flightdata.Snapshot{}, FuelState{FuelOnBoardLb: fuelLb})
		assert.GreaterOrEqual(t, env.ActiveStallSpeed, 0.0)
		assert.GreaterOrEqual(t, env.ActiveStallSpeed+1e-6, floor, "stall speed must not fall below the min-weight floor")
	}
}

func TestMinimumStallSpeedZeroMaxGrossIsZero(t *testing.T) {
	calc := NewCalculator(flightdata.Profile{})
	assert.Equal(t, 0.0, calc.MinimumStallSpeed(1000))
}

func TestFuelBurnFloorsAtZero(t *testing.T) {
	f := FuelState{FuelOnBoardLb: 10, BurnRateLbPerHr: 3600} // 1 lb/s
	f.Burn(5) // would burn 5 lb
	assert.InDelta(t, 5, f.FuelOnBoardLb, 0.001)

	f.Burn(100) // would go deeply negative
	assert.Equal(t, 0.0, f.FuelOnBoardLb)
}

func TestComputeIsPureFunctionOfInputs(t *testing.T) {
	calc := NewCalculator(testProfile())
	snap := flightdata.Snapshot{Motion: flightdata.Motion{IAS: 80}, Attitude: flightdata.Attitude{BankDeg: 20}}
	fuel := FuelState{FuelOnBoardLb: 300}

	a := calc.Compute(snap, fuel)
	b := calc.Compute(snap, fuel)
	assert.Equal(t, a, b)
}

func TestNearVerticalBankTreatedAsMaximalLoad(t *testing.T) {
	calc := NewCalculator(testProfile())
	env := calc.Compute(flightdata.Snapshot{Attitude: flightdata.Attitude{BankDeg: 89.9}}, FuelState{FuelOnBoardLb: 530})
	assert.Equal(t, 100.0, env.LoadFactor)
}
