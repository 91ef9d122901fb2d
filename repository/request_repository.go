package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"droneFleetManagement/models"
)

const requestColumns = `id, operator_id, start_lat, start_lng, end_lat, end_lng, weight_kg, notes, status, created_at, drone_id`

// RequestRepository stores delivery requests. Status changes are conditional
// updates on the expected prior status so a lost race is visible to the caller.
type RequestRepository struct {
	db DBTX
}

func NewRequestRepository(db DBTX) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request. Status defaults to 'pending' if empty.
func (r *RequestRepository) Create(ctx context.Context, req *models.DeliveryRequest) (*models.DeliveryRequest, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO delivery_requests (operator_id, start_lat, start_lng, end_lat, end_lng, weight_kg, notes, status, created_at, drone_id) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		req.OperatorID, req.StartLat, req.StartLng, req.EndLat, req.EndLng, req.WeightKg, req.Notes, string(req.Status), toMillis(req.CreatedAt), nullInt64(req.DroneID))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	req.ID = id
	return req, nil
}

// GetByID fetches a request by its ID.
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*models.DeliveryRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := scanRequest(r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM delivery_requests WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}

// ListByStatus returns requests in the given status, oldest first.
func (r *RequestRepository) ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.DeliveryRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+requestColumns+` FROM delivery_requests WHERE status = ? ORDER BY created_at ASC, id ASC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequestRows(rows)
}

// ListByOperator returns an operator's requests, newest first, optionally
// restricted to the given statuses.
func (r *RequestRepository) ListByOperator(ctx context.Context, operatorID int64, statuses ...models.RequestStatus) ([]models.DeliveryRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT ` + requestColumns + ` FROM delivery_requests WHERE operator_id = ?`
	args := []any{operatorID}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, s := range statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		query += " AND status IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequestRows(rows)
}

// GetAssignedByDrone returns the assigned request reserving the drone, if any.
func (r *RequestRepository) GetAssignedByDrone(ctx context.Context, droneID int64) (*models.DeliveryRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := scanRequest(r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM delivery_requests WHERE drone_id = ? AND status = 'assigned'`, droneID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}

// Reservations maps drone id to the assigned request reserving it.
func (r *RequestRepository) Reservations(ctx context.Context) (map[int64]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT drone_id, id FROM delivery_requests WHERE status = 'assigned' AND drone_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]int64{}
	for rows.Next() {
		var droneID, id int64
		if err := rows.Scan(&droneID, &id); err != nil {
			return nil, err
		}
		out[droneID] = id
	}
	return out, rows.Err()
}

// Assign moves a pending request to assigned and records the drone.
// It reports false when the request was not pending.
func (r *RequestRepository) Assign(ctx context.Context, id, droneID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE delivery_requests SET status = 'assigned', drone_id = ? WHERE id = ? AND status = 'pending'`, droneID, id)
	if err != nil {
		return false, conflict(err)
	}
	return affected(res)
}

// Transition moves a request from one status to another. It reports false
// when the request was not in the expected status.
func (r *RequestRepository) Transition(ctx context.Context, id int64, from, to models.RequestStatus) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE delivery_requests SET status = ? WHERE id = ? AND status = ?`, string(to), id, string(from))
	if err != nil {
		return false, err
	}
	return affected(res)
}

// ReleaseDrone returns assigned requests of a removed drone to the pending queue.
func (r *RequestRepository) ReleaseDrone(ctx context.Context, droneID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE delivery_requests SET status = 'pending', drone_id = NULL WHERE drone_id = ? AND status = 'assigned'`, droneID)
	return err
}

func scanRequest(s rowScanner) (*models.DeliveryRequest, error) {
	var req models.DeliveryRequest
	var status string
	var created int64
	var droneID sql.NullInt64
	if err := s.Scan(&req.ID, &req.OperatorID, &req.StartLat, &req.StartLng, &req.EndLat, &req.EndLng, &req.WeightKg, &req.Notes, &status, &created, &droneID); err != nil {
		return nil, err
	}
	req.Status = models.RequestStatus(status)
	req.CreatedAt = fromMillis(created)
	req.DroneID = int64Ptr(droneID)
	return &req, nil
}

func scanRequestRows(rows *sql.Rows) ([]models.DeliveryRequest, error) {
	var out []models.DeliveryRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
