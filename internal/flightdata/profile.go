package flightdata

// Speeds holds the reference speeds from the aircraft's performance book.
type Speeds struct {
	Vs0     float64 `yaml:"vs0"` // stall, landing config
	Vs1     float64 `yaml:"vs1"` // stall, clean
	Va      float64 `yaml:"va"`  // maneuvering
	Vno     float64 `yaml:"vno"` // max structural cruise
	Vne     float64 `yaml:"vne"` // never-exceed
	Vr      float64 `yaml:"vr"`  // rotation
	Vy      float64 `yaml:"vy"`  // best rate of climb
	Vcruise float64 `yaml:"vcruise"`
	Vfe     float64 `yaml:"vfe"`  // max flap extended
	Vapp    float64 `yaml:"vapp"` // approach reference
}

// Weight holds the airframe's weight/fuel parameters.
type Weight struct {
	EmptyLb          float64 `yaml:"empty_lb"`
	MaxGrossLb       float64 `yaml:"max_gross_lb"`
	FuelLbPerGal     float64 `yaml:"fuel_lb_per_gal"`
	DefaultPayloadLb float64 `yaml:"default_payload_lb"`
}

// Rates holds nominal climb/descent performance.
type Rates struct {
	ClimbFpm   float64 `yaml:"climb_fpm"`
	DescentFpm float64 `yaml:"descent_fpm"`
}

// PhaseSpeeds holds the per-phase target speeds used by the rule engine.
type PhaseSpeeds struct {
	Taxi     float64 `yaml:"taxi"`
	Climb    float64 `yaml:"climb"`
	Cruise   float64 `yaml:"cruise"`
	Descent  float64 `yaml:"descent"`
	Approach float64 `yaml:"approach"`
}

// Limits holds the safety envelope's static bounds.
type Limits struct {
	MaxBankDeg      float64 `yaml:"max_bank_deg"`
	MaxPitchUpDeg   float64 `yaml:"max_pitch_up_deg"`
	MaxPitchDownDeg float64 `yaml:"max_pitch_down_deg"`
	MaxVS           float64 `yaml:"max_vs"`
	MinVS           float64 `yaml:"min_vs"`
	CeilingFt       float64 `yaml:"ceiling_ft"`
}

// Takeoff holds takeoff-geometry parameters.
type Takeoff struct {
	InitialClimbAGL float64 `yaml:"initial_climb_agl"`
	FlapRetractAGL  float64 `yaml:"flap_retract_agl"`
}

// Profile is the static, per-aircraft-type configuration (spec §3).
type Profile struct {
	ID          string      `yaml:"id"` // type designator, e.g. "C172"
	Speeds      Speeds      `yaml:"speeds"`
	Weight      Weight      `yaml:"weight"`
	Rates       Rates       `yaml:"rates"`
	PhaseSpeeds PhaseSpeeds `yaml:"phase_speeds"`
	Limits      Limits      `yaml:"limits"`
	Takeoff     Takeoff     `yaml:"takeoff"`
}

// FlapStallBasis picks the flap-dependent stall-speed basis: flaps
// extended beyond index 0 use Vs0 (landing config), clean uses Vs1.
func (p Profile) FlapStallBasis(flapsIndex int) float64 {
	if flapsIndex > 0 {
		return p.Speeds.Vs0
	}
	return p.Speeds.Vs1
}
