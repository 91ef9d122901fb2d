package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"droneFleetManagement/models"
)

// Store bundles the repositories and implements the multi-record writes of
// the fleet engine, each in a single transaction.
type Store struct {
	db       *sql.DB // nil when bound to a transaction
	Users    *UserRepository
	Drones   *DroneRepository
	Missions *MissionRepository
	Requests *RequestRepository
	Tickets  *TicketRepository
}

func NewStore(db *sql.DB) *Store {
	s := bind(db)
	s.db = db
	return s
}

func bind(q DBTX) *Store {
	return &Store{
		Users:    NewUserRepository(q),
		Drones:   NewDroneRepository(q),
		Missions: NewMissionRepository(q),
		Requests: NewRequestRepository(q),
		Tickets:  NewTicketRepository(q),
	}
}

// WithTx runs fn against repositories bound to one transaction. Called on a
// store that is already transactional, fn simply joins it.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(bind(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Roster reads every drone with its live mission, live ticket and reservation
// in one read transaction, ordered by drone id.
func (s *Store) Roster(ctx context.Context) ([]models.DroneState, error) {
	var out []models.DroneState
	err := s.WithTx(ctx, func(tx *Store) error {
		drones, err := tx.Drones.List(ctx)
		if err != nil {
			return err
		}
		missions, err := tx.Missions.ListLive(ctx)
		if err != nil {
			return err
		}
		tickets, err := tx.Tickets.ListLive(ctx)
		if err != nil {
			return err
		}
		reservations, err := tx.Requests.Reservations(ctx)
		if err != nil {
			return err
		}
		byDroneMission := make(map[int64]*models.Mission, len(missions))
		for i := range missions {
			byDroneMission[missions[i].DroneID] = &missions[i]
		}
		byDroneTicket := make(map[int64]*models.MaintenanceTicket, len(tickets))
		for i := range tickets {
			byDroneTicket[tickets[i].DroneID] = &tickets[i]
		}
		out = make([]models.DroneState, 0, len(drones))
		for _, d := range drones {
			st := models.DroneState{Drone: d, LiveMission: byDroneMission[d.ID], OpenTicket: byDroneTicket[d.ID]}
			if reqID, ok := reservations[d.ID]; ok {
				st.ReservedBy = &reqID
			}
			out = append(out, st)
		}
		return nil
	})
	return out, err
}

// DroneState reads one drone with its live records. It returns nil, nil when
// the drone does not exist.
func (s *Store) DroneState(ctx context.Context, droneID int64) (*models.DroneState, error) {
	var st *models.DroneState
	err := s.WithTx(ctx, func(tx *Store) error {
		d, err := tx.Drones.GetByID(ctx, droneID)
		if err != nil || d == nil {
			return err
		}
		m, err := tx.Missions.GetLiveByDrone(ctx, droneID)
		if err != nil {
			return err
		}
		t, err := tx.Tickets.GetLiveByDrone(ctx, droneID)
		if err != nil {
			return err
		}
		req, err := tx.Requests.GetAssignedByDrone(ctx, droneID)
		if err != nil {
			return err
		}
		st = &models.DroneState{Drone: *d, LiveMission: m, OpenTicket: t}
		if req != nil {
			st.ReservedBy = &req.ID
		}
		return nil
	})
	return st, err
}

// FinishMission persists the expiry of a mission: the mission becomes
// finished, its delivery request completed, and the drone's stored status is
// written back to active. It reports false when another reader got there first.
func (s *Store) FinishMission(ctx context.Context, m *models.Mission) (bool, error) {
	var changed bool
	err := s.WithTx(ctx, func(tx *Store) error {
		ok, err := tx.Missions.Finish(ctx, m.ID)
		if err != nil || !ok {
			return err
		}
		changed = true
		if m.RequestID != nil {
			if _, err := tx.Requests.Transition(ctx, *m.RequestID, models.RequestInProgress, models.RequestCompleted); err != nil {
				return err
			}
		}
		return tx.Drones.Reactivate(ctx, m.DroneID)
	})
	return changed, err
}

// CommitMission inserts a live mission. When the mission carries a request
// the request moves from assigned to in_progress in the same transaction.
func (s *Store) CommitMission(ctx context.Context, m *models.Mission) (*models.Mission, error) {
	err := s.WithTx(ctx, func(tx *Store) error {
		if m.RequestID != nil {
			ok, err := tx.Requests.Transition(ctx, *m.RequestID, models.RequestAssigned, models.RequestInProgress)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: request %d is not assigned", ErrConflict, *m.RequestID)
			}
		}
		_, err := tx.Missions.Create(ctx, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// AddDrone registers a drone in service and stamps its first check.
func (s *Store) AddDrone(ctx context.Context, d *models.Drone) (*models.Drone, error) {
	return s.Drones.Create(ctx, d)
}

// RemoveDrone deletes a drone and its missions and tickets. Requests it was
// reserved for go back to pending.
func (s *Store) RemoveDrone(ctx context.Context, droneID int64) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if err := tx.Requests.ReleaseDrone(ctx, droneID); err != nil {
			return err
		}
		return tx.Drones.Delete(ctx, droneID)
	})
}

// ListMissions is a drone's flight log, newest first.
func (s *Store) ListMissions(ctx context.Context, droneID int64, limit int) ([]models.Mission, error) {
	return s.Missions.ListByDrone(ctx, droneID, limit)
}

// SearchDrones is the filtered, paginated registry listing.
func (s *Store) SearchDrones(ctx context.Context, p ListDronesAdminParams) ([]models.Drone, error) {
	return s.Drones.ListAdmin(ctx, p)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.Users.GetByID(ctx, id)
}

func (s *Store) CreateRequest(ctx context.Context, req *models.DeliveryRequest) (*models.DeliveryRequest, error) {
	return s.Requests.Create(ctx, req)
}

func (s *Store) GetRequest(ctx context.Context, id int64) (*models.DeliveryRequest, error) {
	return s.Requests.GetByID(ctx, id)
}

func (s *Store) ListRequestsByStatus(ctx context.Context, status models.RequestStatus) ([]models.DeliveryRequest, error) {
	return s.Requests.ListByStatus(ctx, status)
}

func (s *Store) ListOperatorRequests(ctx context.Context, operatorID int64, statuses ...models.RequestStatus) ([]models.DeliveryRequest, error) {
	return s.Requests.ListByOperator(ctx, operatorID, statuses...)
}

func (s *Store) AssignRequest(ctx context.Context, id, droneID int64) (bool, error) {
	return s.Requests.Assign(ctx, id, droneID)
}

func (s *Store) RejectRequest(ctx context.Context, id int64) (bool, error) {
	return s.Requests.Transition(ctx, id, models.RequestPending, models.RequestRejected)
}

// OpenTicket creates the ticket and sets the drone's stored status to
// maintenance together.
func (s *Store) OpenTicket(ctx context.Context, t *models.MaintenanceTicket) (*models.MaintenanceTicket, error) {
	err := s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.Tickets.Create(ctx, t); err != nil {
			return err
		}
		return tx.Drones.UpdateStatus(ctx, t.DroneID, models.DroneStatusMaintenance)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) GetTicket(ctx context.Context, id int64) (*models.MaintenanceTicket, error) {
	return s.Tickets.GetByID(ctx, id)
}

func (s *Store) StartTicket(ctx context.Context, id int64) (bool, error) {
	return s.Tickets.StartWork(ctx, id)
}

// CloseTicket closes a live ticket and returns its drone to service.
func (s *Store) CloseTicket(ctx context.Context, id int64, repairType, notes string, at time.Time) (bool, error) {
	var closed bool
	err := s.WithTx(ctx, func(tx *Store) error {
		t, err := tx.Tickets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return nil
		}
		ok, err := tx.Tickets.Close(ctx, id, repairType, notes, at)
		if err != nil || !ok {
			return err
		}
		closed = true
		return tx.Drones.MarkChecked(ctx, t.DroneID, at)
	})
	return closed, err
}

func (s *Store) ListLiveTickets(ctx context.Context) ([]models.MaintenanceTicket, error) {
	return s.Tickets.ListLive(ctx)
}

// IsConflict reports whether err came from a violated one-live-record rule.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
