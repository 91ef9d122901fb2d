package grpcserver

import (
	"droneFleetManagement/internal/fleet"
	"droneFleetManagement/internal/geo"
	"droneFleetManagement/models"
)

type Empty struct{}

type DroneRef struct {
	DroneID int64 `json:"drone_id"`
}

type RequestRef struct {
	RequestID int64 `json:"request_id"`
}

type TicketRef struct {
	TicketID int64 `json:"ticket_id"`
}

type DroneList struct {
	Drones []fleet.DroneView `json:"drones"`
}

// MissionHistoryMsg asks for a drone's flight log. Limit 0 means 20.
type MissionHistoryMsg struct {
	DroneID int64 `json:"drone_id"`
	Limit   int   `json:"limit"`
}

type MissionList struct {
	Missions []models.Mission `json:"missions"`
}

// SubmitRequestMsg is an operator's delivery request. The operator is the
// authenticated caller.
type SubmitRequestMsg struct {
	Start    geo.Point `json:"start"`
	End      geo.Point `json:"end"`
	WeightKg float64   `json:"weight_kg"`
	Notes    string    `json:"notes"`
}

type RequestList struct {
	Requests []models.DeliveryRequest `json:"requests"`
}

// AcceptMsg assigns a request. DroneID 0 lets the matcher choose.
type AcceptMsg struct {
	RequestID int64 `json:"request_id"`
	DroneID   int64 `json:"drone_id"`
}

// LaunchMsg starts an assigned request. DurationMin 0 means estimate it.
type LaunchMsg struct {
	RequestID   int64 `json:"request_id"`
	DurationMin int   `json:"duration_min"`
}

type OpenTicketMsg struct {
	DroneID int64  `json:"drone_id"`
	Problem string `json:"problem"`
}

type CompleteTicketMsg struct {
	TicketID   int64  `json:"ticket_id"`
	RepairType string `json:"repair_type"`
	Notes      string `json:"notes"`
}

type TicketList struct {
	Tickets []models.MaintenanceTicket `json:"tickets"`
}
