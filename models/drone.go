package models

import "time"

// DroneStatus is the last stored status of a drone. The effective status also
// depends on live missions and open tickets and is resolved by internal/lifecycle.
type DroneStatus string

const (
	DroneStatusActive      DroneStatus = "active"
	DroneStatusMaintenance DroneStatus = "maintenance"
	DroneStatusInactive    DroneStatus = "inactive"
)

// Capability is the closed set of airframe classes.
type Capability string

const (
	CapabilityTransport Capability = "transport"
	CapabilitySurvey    Capability = "survey"
)

// Valid reports whether c is a known capability class.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityTransport, CapabilitySurvey:
		return true
	}
	return false
}

// Drone represents one airframe of the fleet.
type Drone struct {
	ID                int64       `db:"id" json:"id"`
	Model             string      `db:"model" json:"model"`
	Capability        Capability  `db:"capability" json:"capability"`
	PayloadCapacityKg float64     `db:"payload_kg" json:"payload_capacity_kg"`
	AutonomyMin       int         `db:"autonomy_min" json:"autonomy_min"`
	Status            DroneStatus `db:"status" json:"status"`
	LastCheckAt       *time.Time  `db:"last_check_at" json:"last_check_at,omitempty"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
}

// DroneState is everything needed to derive a drone's effective status:
// the drone itself, its in_progress mission if any, its open ticket if any
// and the assigned request currently reserving it if any.
type DroneState struct {
	Drone       Drone
	LiveMission *Mission
	OpenTicket  *MaintenanceTicket
	ReservedBy  *int64
}
