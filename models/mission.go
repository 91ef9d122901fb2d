package models

import "time"

// MissionKind selects capability requirements and cost multipliers.
type MissionKind string

const (
	MissionDelivery    MissionKind = "delivery"
	MissionSurvey      MissionKind = "survey"
	MissionCartography MissionKind = "cartography"
	MissionInspection  MissionKind = "inspection"
	MissionTest        MissionKind = "test"
)

// Valid reports whether k is a known mission kind.
func (k MissionKind) Valid() bool {
	switch k {
	case MissionDelivery, MissionSurvey, MissionCartography, MissionInspection, MissionTest:
		return true
	}
	return false
}

// RequiredCapability returns the capability class a drone needs to fly k.
// The second result is false when any class will do.
func (k MissionKind) RequiredCapability() (Capability, bool) {
	switch k {
	case MissionDelivery:
		return CapabilityTransport, true
	case MissionSurvey, MissionCartography, MissionInspection:
		return CapabilitySurvey, true
	default:
		return "", false
	}
}

type MissionStatus string

const (
	MissionInProgress MissionStatus = "in_progress"
	MissionFinished   MissionStatus = "finished"
)

// Mission is a single flight of one drone over one route for a bounded duration.
// RequestID links the mission to the delivery request that launched it.
type Mission struct {
	ID          int64         `db:"id" json:"id"`
	DroneID     int64         `db:"drone_id" json:"drone_id"`
	StartLat    float64       `db:"start_lat" json:"start_lat"`
	StartLng    float64       `db:"start_lng" json:"start_lng"`
	EndLat      float64       `db:"end_lat" json:"end_lat"`
	EndLng      float64       `db:"end_lng" json:"end_lng"`
	Kind        MissionKind   `db:"kind" json:"kind"`
	Status      MissionStatus `db:"status" json:"status"`
	StartedAt   time.Time     `db:"started_at" json:"started_at"`
	DurationMin int           `db:"duration_min" json:"duration_min"`
	DistanceKm  float64       `db:"distance_km" json:"distance_km"`
	Cost        float64       `db:"cost" json:"cost"`
	RequestID   *int64        `db:"request_id" json:"request_id,omitempty"`
}

// EndsAt is the instant the mission stops being live.
func (m *Mission) EndsAt() time.Time {
	return m.StartedAt.Add(time.Duration(m.DurationMin) * time.Minute)
}
