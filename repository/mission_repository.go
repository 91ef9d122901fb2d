package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"droneFleetManagement/models"
)

const missionColumns = `id, drone_id, start_lat, start_lng, end_lat, end_lng, kind, status, started_at, duration_min, distance_km, cost, request_id`

type MissionRepository struct {
	db DBTX
}

func NewMissionRepository(db DBTX) *MissionRepository {
	return &MissionRepository{db: db}
}

// Create inserts a mission. Status defaults to 'in_progress'. A second live
// mission for the same drone yields ErrConflict.
func (r *MissionRepository) Create(ctx context.Context, m *models.Mission) (*models.Mission, error) {
	if m == nil {
		return nil, errors.New("mission is nil")
	}
	if m.Status == "" {
		m.Status = models.MissionInProgress
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO missions (drone_id, start_lat, start_lng, end_lat, end_lng, kind, status, started_at, duration_min, distance_km, cost, request_id) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.DroneID, m.StartLat, m.StartLng, m.EndLat, m.EndLng, string(m.Kind), string(m.Status), toMillis(m.StartedAt), m.DurationMin, m.DistanceKm, m.Cost, nullInt64(m.RequestID))
	if err != nil {
		return nil, conflict(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	m.ID = id
	return m, nil
}

func (r *MissionRepository) GetByID(ctx context.Context, id int64) (*models.Mission, error) {
	return r.getOne(ctx, `SELECT `+missionColumns+` FROM missions WHERE id = ?`, id)
}

// GetLiveByDrone returns the drone's in_progress mission, expired or not.
func (r *MissionRepository) GetLiveByDrone(ctx context.Context, droneID int64) (*models.Mission, error) {
	return r.getOne(ctx, `SELECT `+missionColumns+` FROM missions WHERE drone_id = ? AND status = 'in_progress'`, droneID)
}

func (r *MissionRepository) getOne(ctx context.Context, query string, arg any) (*models.Mission, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	m, err := scanMission(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// ListLive returns all in_progress missions ordered by drone id.
func (r *MissionRepository) ListLive(ctx context.Context) ([]models.Mission, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE status = 'in_progress' ORDER BY drone_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMissionRows(rows)
}

// ListByDrone returns the most recent missions of a drone, newest first.
func (r *MissionRepository) ListByDrone(ctx context.Context, droneID int64, limit int) ([]models.Mission, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE drone_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`, droneID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMissionRows(rows)
}

// Finish moves an in_progress mission to finished. It reports false when the
// mission was already finished.
func (r *MissionRepository) Finish(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE missions SET status = 'finished' WHERE id = ? AND status = 'in_progress'`, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func scanMission(s rowScanner) (*models.Mission, error) {
	var m models.Mission
	var kind, status string
	var started int64
	var requestID sql.NullInt64
	if err := s.Scan(&m.ID, &m.DroneID, &m.StartLat, &m.StartLng, &m.EndLat, &m.EndLng, &kind, &status, &started, &m.DurationMin, &m.DistanceKm, &m.Cost, &requestID); err != nil {
		return nil, err
	}
	m.Kind = models.MissionKind(kind)
	m.Status = models.MissionStatus(status)
	m.StartedAt = fromMillis(started)
	m.RequestID = int64Ptr(requestID)
	return &m, nil
}

func scanMissionRows(rows *sql.Rows) ([]models.Mission, error) {
	var out []models.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
