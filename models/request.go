package models

import "time"

// RequestStatus represents the progress of a delivery request.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestAssigned   RequestStatus = "assigned"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestRejected   RequestStatus = "rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestRejected
}

// DeliveryRequest is an operator's ask for a delivery flight, approved or
// rejected by an administrator. DroneID is set once the request is assigned.
type DeliveryRequest struct {
	ID         int64         `db:"id" json:"id"`
	OperatorID int64         `db:"operator_id" json:"operator_id"`
	StartLat   float64       `db:"start_lat" json:"start_lat"`
	StartLng   float64       `db:"start_lng" json:"start_lng"`
	EndLat     float64       `db:"end_lat" json:"end_lat"`
	EndLng     float64       `db:"end_lng" json:"end_lng"`
	WeightKg   float64       `db:"weight_kg" json:"weight_kg"`
	Notes      string        `db:"notes" json:"notes"`
	Status     RequestStatus `db:"status" json:"status"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	DroneID    *int64        `db:"drone_id" json:"drone_id,omitempty"`
}
