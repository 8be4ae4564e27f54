package flightdata

import (
	"encoding/json"
	"time"
)

// SnapshotWire is the JSON wire shape for one inbound telemetry tick
// (spec §3's telemetry snapshot plus §6's nav-state inbound object).
// Decoded separately from Snapshot so Snapshot itself stays a plain
// value type with no marshaling concerns of its own.
type SnapshotWire struct {
	Position struct {
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
		AltMSL float64 `json:"altMsl"`
		AltAGL float64 `json:"altAgl"`
	} `json:"position"`

	Attitude struct {
		PitchDeg   float64 `json:"pitch"`
		BankDeg    float64 `json:"bank"`
		HeadingDeg float64 `json:"heading"`
	} `json:"attitude"`

	Motion struct {
		IAS float64 `json:"ias"`
		GS  float64 `json:"gs"`
		VS  float64 `json:"vs"`
	} `json:"motion"`

	Environment struct {
		WindDirDeg float64 `json:"windDir"`
		WindKt     float64 `json:"windKt"`
		OATProxy   float64 `json:"oat"`
	} `json:"environment"`

	Config struct {
		FlapsIndex   int     `json:"flapsIndex"`
		GearDown     bool    `json:"gearDown"`
		ParkingBrake bool    `json:"parkingBrake"`
		ThrottlePct  float64 `json:"throttlePct"`
	} `json:"config"`

	Engine struct {
		RPM     float64 `json:"rpm"`
		Running bool    `json:"running"`
	} `json:"engine"`

	Nav NavWire `json:"nav"`

	TAWS        int  `json:"taws"`
	RawOnGround bool `json:"rawOnGround"`
}

// NavWire is the loosely-typed nav-state inbound object from spec §6:
// `{ cdi: {source, dtk, xtrk, toFrom, gsValid}, activeWaypoint:
// {ident, bearing, distNm}, approach: {mode, hasGlideslope},
// destDistNm }`. toFrom accepts either its string or numeric wire
// form, so it is decoded into a raw interface{} and normalized by
// ParseToFrom.
type NavWire struct {
	CDI struct {
		Source  string      `json:"source"`
		DTK     float64     `json:"dtk"`
		XTrk    float64     `json:"xtrk"`
		ToFrom  interface{} `json:"toFrom"`
		GSValid bool        `json:"gsValid"`
	} `json:"cdi"`

	ActiveWaypoint struct {
		Ident   string  `json:"ident"`
		Bearing float64 `json:"bearing"`
		DistNm  float64 `json:"distNm"`
	} `json:"activeWaypoint"`

	Approach struct {
		Mode          bool `json:"mode"`
		HasGlideslope bool `json:"hasGlideslope"`
	} `json:"approach"`

	DestDistNm float64 `json:"destDistNm"`
}

// DecodeSnapshotWire parses one JSON telemetry tick.
func DecodeSnapshotWire(data []byte) (SnapshotWire, error) {
	var w SnapshotWire
	err := json.Unmarshal(data, &w)
	return w, err
}

// ToSnapshot converts the wire shape into the internal Snapshot value,
// stamping the given timestamp (the wire payload carries none of its
// own — the receiver's arrival time is authoritative per spec §5's
// "flight data snapshot is copied once per tick").
func (w SnapshotWire) ToSnapshot(now time.Time) Snapshot {
	return Snapshot{
		Timestamp: now,
		Position: Position{
			Lat:    w.Position.Lat,
			Lon:    w.Position.Lon,
			AltMSL: w.Position.AltMSL,
			AltAGL: w.Position.AltAGL,
		},
		Attitude: Attitude{
			PitchDeg:   w.Attitude.PitchDeg,
			BankDeg:    w.Attitude.BankDeg,
			HeadingDeg: w.Attitude.HeadingDeg,
		},
		Motion: Motion{
			IAS: w.Motion.IAS,
			GS:  w.Motion.GS,
			VS:  w.Motion.VS,
		},
		Environment: Environment{
			WindDirDeg: w.Environment.WindDirDeg,
			WindKt:     w.Environment.WindKt,
			OATProxy:   w.Environment.OATProxy,
		},
		Config: Config{
			FlapsIndex:   w.Config.FlapsIndex,
			GearDown:     w.Config.GearDown,
			ParkingBrake: w.Config.ParkingBrake,
			ThrottlePct:  w.Config.ThrottlePct,
		},
		Engine: Engine{
			RPM:     w.Engine.RPM,
			Running: w.Engine.Running,
		},
		Nav:         w.Nav.ToNavSnapshot(),
		TAWS:        TAWSLevel(w.TAWS),
		RawOnGround: w.RawOnGround,
	}
}

// ToNavSnapshot converts the loosely-typed wire nav object into the
// internal NavSnapshot, resolving toFrom via ParseToFrom.
func (n NavWire) ToNavSnapshot() NavSnapshot {
	return NavSnapshot{
		CDISource:                CDISource(n.CDI.Source),
		DesiredTrackDeg:          n.CDI.DTK,
		CrossTrackNm:             n.CDI.XTrk,
		ToFrom:                   ParseToFrom(n.CDI.ToFrom),
		GSValid:                  n.CDI.GSValid,
		ActiveWaypointIdent:      n.ActiveWaypoint.Ident,
		ActiveWaypointBearingDeg: n.ActiveWaypoint.Bearing,
		ActiveWaypointDistNm:     n.ActiveWaypoint.DistNm,
		ApproachMode:             n.Approach.Mode,
		ApproachHasGlideslope:    n.Approach.HasGlideslope,
		DestDistNm:               n.DestDistNm,
	}
}
