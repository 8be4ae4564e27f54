// Package envelope computes the dynamic flight envelope — the
// weight-, bank- and configuration-adjusted stall and maneuvering
// speeds the rule engine's safety bands are measured against.
//
// Weight estimation is grounded on the reserve-fraction math used
// elsewhere in the pack for endurance tracking, repurposed here from
// "fraction of energy remaining" to "current gross weight given fuel
// burned since engine start."
package envelope

import (
	"math"

	"github.com/flightcore/copilot/internal/flightdata"
)

// Snapshot is the derived, per-tick flight envelope (spec §3).
type Snapshot struct {
	EstimatedWeightLb float64
	LoadFactor        float64
	DynamicVs1        float64
	DynamicVs0        float64
	ActiveStallSpeed  float64
	DynamicVa         float64
	StallMarginKt     float64
	OverspeedMarginKt float64
}

// FuelState tracks fuel burned since engine start, used to estimate
// current gross weight. Grounded on the pack's energy-reserve
// accounting idiom (fraction-remaining bookkeeping), applied here to
// avgas burn rather than battery state-of-charge.
type FuelState struct {
	FuelOnBoardLb   float64
	BurnRateLbPerHr float64
}

// Burn advances fuel state by dt seconds at the current burn rate,
// floored at zero (an aircraft cannot carry negative fuel).
func (f *FuelState) Burn(dt float64) {
	burned := f.BurnRateLbPerHr * (dt / 3600.0)
	f.FuelOnBoardLb -= burned
	if f.FuelOnBoardLb < 0 {
		f.FuelOnBoardLb = 0
	}
}

// Calculator derives the envelope snapshot from current telemetry and
// a static profile. It holds no cross-tick state of its own — the
// envelope snapshot is a pure function of the current tick, per spec
// §3's "no cross-tick fusion" invariant. Fuel state is owned by the
// caller (the supervisor ticks it forward) and passed in explicitly.
type Calculator struct {
	profile flightdata.Profile
}

// NewCalculator builds a Calculator bound to a profile. Replacing the
// profile requires constructing a new Calculator (spec §5: profile
// replacement resets affected subsystems atomically).
func NewCalculator(profile flightdata.Profile) *Calculator {
	return &Calculator{profile: profile}
}

// Compute derives the envelope snapshot for the current tick.
func (c *Calculator) Compute(snap flightdata.Snapshot, fuel FuelState) Snapshot {
	weight := c.profile.Weight.EmptyLb + c.profile.Weight.DefaultPayloadLb + fuel.FuelOnBoardLb
	if weight <= 0 {
		weight = c.profile.Weight.EmptyLb
	}
	maxGross := c.profile.Weight.MaxGrossLb
	if maxGross <= 0 {
		maxGross = weight
	}

	bankRad := snap.Attitude.BankDeg * math.Pi / 180
	loadFactor := 1.0
	if cosB := math.Cos(bankRad); cosB > 0.01 {
		loadFactor = 1.0 / cosB
	} else {
		loadFactor = 100 // near-vertical bank: treat as maximal load
	}

	weightRatio := weight / maxGross
	if weightRatio < 0 {
		weightRatio = 0
	}

	dynVs1 := c.profile.Speeds.Vs1 * math.Sqrt(weightRatio) * math.Sqrt(loadFactor)
	dynVs0 := c.profile.Speeds.Vs0 * math.Sqrt(weightRatio) * math.Sqrt(loadFactor)
	dynVa := c.profile.Speeds.Va * math.Sqrt(weightRatio)

	activeStall := dynVs1
	if snap.Config.FlapsIndex > 0 {
		activeStall = dynVs0
	}
	if activeStall < 0 {
		activeStall = 0
	}

	stallMargin := snap.Motion.IAS - activeStall
	overspeedMargin := c.profile.Speeds.Vne - snap.Motion.IAS

	return Snapshot{
		EstimatedWeightLb: weight,
		LoadFactor:        loadFactor,
		DynamicVs1:        dynVs1,
		DynamicVs0:        dynVs0,
		ActiveStallSpeed:  activeStall,
		DynamicVa:         dynVa,
		StallMarginKt:     stallMargin,
		OverspeedMarginKt: overspeedMargin,
	}
}

// MinimumStallSpeed returns the floor implied by testable property 7:
// Vs_active must be >= Vs_ref * sqrt(Wmin/Wmax) for any valid weight.
func (c *Calculator) MinimumStallSpeed(minWeightLb float64) float64 {
	maxGross := c.profile.Weight.MaxGrossLb
	if maxGross <= 0 {
		return 0
	}
	ratio := minWeightLb / maxGross
	if ratio < 0 {
		ratio = 0
	}
	return c.profile.Speeds.Vs1 * math.Sqrt(ratio)
}
