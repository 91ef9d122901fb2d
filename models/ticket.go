package models

import "time"

type TicketStatus string

const (
	TicketOpen    TicketStatus = "open"
	TicketInLucru TicketStatus = "in_lucru"
	TicketClosed  TicketStatus = "closed"
)

const (
	TicketTypeRepair = "repair"

	// RepairTypePending is the placeholder repair type until a technician closes the ticket.
	RepairTypePending = "awaiting diagnosis"
)

// MaintenanceTicket tracks one repair episode. While a ticket is open or
// in_lucru the drone is held out of the idle pool.
type MaintenanceTicket struct {
	ID         int64        `db:"id" json:"id"`
	DroneID    int64        `db:"drone_id" json:"drone_id"`
	Problem    string       `db:"problem" json:"problem"`
	TicketType string       `db:"ticket_type" json:"ticket_type"`
	RepairType string       `db:"repair_type" json:"repair_type"`
	Status     TicketStatus `db:"status" json:"status"`
	Notes      string       `db:"notes" json:"notes"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	ClosedAt   *time.Time   `db:"closed_at" json:"closed_at,omitempty"`
}

// Live reports whether the ticket still holds its drone.
func (t *MaintenanceTicket) Live() bool {
	return t.Status == TicketOpen || t.Status == TicketInLucru
}
