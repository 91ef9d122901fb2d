package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"droneFleetManagement/models"
)

const ticketColumns = `id, drone_id, problem, ticket_type, repair_type, status, notes, created_at, closed_at`

type TicketRepository struct {
	db DBTX
}

func NewTicketRepository(db DBTX) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create inserts a ticket in 'open'. A second live ticket for the same drone
// yields ErrConflict.
func (r *TicketRepository) Create(ctx context.Context, t *models.MaintenanceTicket) (*models.MaintenanceTicket, error) {
	if t == nil {
		return nil, errors.New("ticket is nil")
	}
	if t.Status == "" {
		t.Status = models.TicketOpen
	}
	if t.TicketType == "" {
		t.TicketType = models.TicketTypeRepair
	}
	if t.RepairType == "" {
		t.RepairType = models.RepairTypePending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO maintenance_tickets (drone_id, problem, ticket_type, repair_type, status, notes, created_at) VALUES (?,?,?,?,?,?,?)`,
		t.DroneID, t.Problem, t.TicketType, t.RepairType, string(t.Status), t.Notes, toMillis(t.CreatedAt))
	if err != nil {
		return nil, conflict(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	t.ID = id
	return t, nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*models.MaintenanceTicket, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM maintenance_tickets WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// GetLiveByDrone returns the open or in_lucru ticket of a drone, if any.
func (r *TicketRepository) GetLiveByDrone(ctx context.Context, droneID int64) (*models.MaintenanceTicket, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM maintenance_tickets WHERE drone_id = ? AND status IN ('open', 'in_lucru')`, droneID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// ListLive returns open and in_lucru tickets, oldest first.
func (r *TicketRepository) ListLive(ctx context.Context) ([]models.MaintenanceTicket, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+ticketColumns+` FROM maintenance_tickets WHERE status IN ('open', 'in_lucru') ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.MaintenanceTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// StartWork moves an open ticket to in_lucru. It reports false otherwise.
func (r *TicketRepository) StartWork(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE maintenance_tickets SET status = 'in_lucru' WHERE id = ? AND status = 'open'`, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// Close records the repair and closes an open or in_lucru ticket.
// It reports false when the ticket was already closed.
func (r *TicketRepository) Close(ctx context.Context, id int64, repairType, notes string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE maintenance_tickets SET status = 'closed', repair_type = ?, notes = ?, closed_at = ? WHERE id = ? AND status IN ('open', 'in_lucru')`,
		repairType, notes, toMillis(at), id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *TicketRepository) CountLive(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM maintenance_tickets WHERE status IN ('open', 'in_lucru')`).Scan(&n)
	return n, err
}

func scanTicket(s rowScanner) (*models.MaintenanceTicket, error) {
	var t models.MaintenanceTicket
	var status string
	var created int64
	var closed sql.NullInt64
	if err := s.Scan(&t.ID, &t.DroneID, &t.Problem, &t.TicketType, &t.RepairType, &status, &t.Notes, &created, &closed); err != nil {
		return nil, err
	}
	t.Status = models.TicketStatus(status)
	t.CreatedAt = fromMillis(created)
	t.ClosedAt = timePtr(closed)
	return &t, nil
}
