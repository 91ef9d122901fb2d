package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"droneFleetManagement/models"
)

const droneColumns = `id, model, capability, payload_kg, autonomy_min, status, last_check_at, created_at`

type DroneRepository struct {
	db DBTX
}

func NewDroneRepository(db DBTX) *DroneRepository {
	return &DroneRepository{db: db}
}

// Create inserts a new drone. Status defaults to 'active' if empty.
func (r *DroneRepository) Create(ctx context.Context, d *models.Drone) (*models.Drone, error) {
	if d == nil {
		return nil, errors.New("drone is nil")
	}
	if d.Status == "" {
		d.Status = models.DroneStatusActive
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO drones (model, capability, payload_kg, autonomy_min, status, last_check_at, created_at) VALUES (?,?,?,?,?,?,?)`,
		d.Model, string(d.Capability), d.PayloadCapacityKg, d.AutonomyMin, string(d.Status), nullMillis(d.LastCheckAt), toMillis(d.CreatedAt))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	d.ID = id
	return d, nil
}

func (r *DroneRepository) GetByID(ctx context.Context, id int64) (*models.Drone, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	d, err := scanDrone(r.db.QueryRowContext(ctx, `SELECT `+droneColumns+` FROM drones WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// List returns the whole roster ordered by id asc.
func (r *DroneRepository) List(ctx context.Context) ([]models.Drone, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+droneColumns+` FROM drones ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDroneRows(rows)
}

func (r *DroneRepository) UpdateStatus(ctx context.Context, id int64, status models.DroneStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE drones SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// MarkChecked returns the drone to service and stamps its last check.
func (r *DroneRepository) MarkChecked(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE drones SET status = ?, last_check_at = ? WHERE id = ?`,
		string(models.DroneStatusActive), toMillis(at), id)
	return err
}

// Reactivate writes the stored status back to 'active' unless the drone is
// retired or still held by a live ticket.
func (r *DroneRepository) Reactivate(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `
UPDATE drones SET status = 'active'
WHERE id = ?
  AND status <> 'inactive'
  AND NOT EXISTS (
        SELECT 1 FROM maintenance_tickets t
        WHERE t.drone_id = drones.id AND t.status IN ('open', 'in_lucru')
      )`, id)
	return err
}

func (r *DroneRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `DELETE FROM drones WHERE id = ?`, id)
	return err
}

// ListDronesAdminParams contains filters and pagination for admin listings.
type ListDronesAdminParams struct {
	Status        *models.DroneStatus
	Capability    *models.Capability
	ModelContains *string
	PageSize      int
	AfterID       int64
}

// ListAdmin returns drones matching filters ordered by id asc with keyset pagination by id.
func (r *DroneRepository) ListAdmin(ctx context.Context, p ListDronesAdminParams) ([]models.Drone, error) {
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	where := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if p.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.Capability != nil {
		where = append(where, "capability = ?")
		args = append(args, string(*p.Capability))
	}
	if p.ModelContains != nil && strings.TrimSpace(*p.ModelContains) != "" {
		where = append(where, "model LIKE ?")
		args = append(args, "%"+strings.TrimSpace(*p.ModelContains)+"%")
	}
	if p.AfterID > 0 {
		where = append(where, "id > ?")
		args = append(args, p.AfterID)
	}

	query := "SELECT " + droneColumns + " FROM drones"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC LIMIT ?"
	args = append(args, p.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDroneRows(rows)
}

func scanDrone(s rowScanner) (*models.Drone, error) {
	var d models.Drone
	var capability, status string
	var lastCheck sql.NullInt64
	var created int64
	if err := s.Scan(&d.ID, &d.Model, &capability, &d.PayloadCapacityKg, &d.AutonomyMin, &status, &lastCheck, &created); err != nil {
		return nil, err
	}
	d.Capability = models.Capability(capability)
	d.Status = models.DroneStatus(status)
	d.LastCheckAt = timePtr(lastCheck)
	d.CreatedAt = fromMillis(created)
	return &d, nil
}

func scanDroneRows(rows *sql.Rows) ([]models.Drone, error) {
	var out []models.Drone
	for rows.Next() {
		d, err := scanDrone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
