package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"droneFleetManagement/internal/lifecycle"
	"droneFleetManagement/models"
	"droneFleetManagement/repository"
)

// EffectiveStatus resolves one drone. This is a read with a side effect: an
// expired mission is persisted as finished before the status is returned.
func (e *Engine) EffectiveStatus(ctx context.Context, droneID int64) (lifecycle.Status, error) {
	_, status, err := e.resolveDrone(ctx, droneID)
	return status, err
}

// DroneView pairs a drone with its effective status.
type DroneView struct {
	Drone  models.Drone     `json:"drone"`
	Status lifecycle.Status `json:"status"`
}

// ListDrones returns the roster with effective statuses, ordered by id.
func (e *Engine) ListDrones(ctx context.Context) ([]DroneView, error) {
	roster, statuses, _, err := e.resolveRoster(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DroneView, len(roster))
	for i := range roster {
		out[i] = DroneView{Drone: roster[i].Drone, Status: statuses[i]}
	}
	return out, nil
}

// DroneFilter narrows the registry listing. Zero values match everything.
type DroneFilter struct {
	Capability    models.Capability
	ModelContains string
	PageSize      int
	AfterID       int64
}

// SearchDrones pages through the registry by id and resolves each match.
func (e *Engine) SearchDrones(ctx context.Context, f DroneFilter) ([]DroneView, error) {
	p := repository.ListDronesAdminParams{PageSize: f.PageSize, AfterID: f.AfterID}
	if f.Capability != "" {
		if !f.Capability.Valid() {
			return nil, fmt.Errorf("%w: unknown capability %q", ErrValidation, f.Capability)
		}
		p.Capability = &f.Capability
	}
	if f.ModelContains != "" {
		p.ModelContains = &f.ModelContains
	}
	drones, err := e.store.SearchDrones(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make([]DroneView, 0, len(drones))
	for _, d := range drones {
		st, status, err := e.resolveDrone(ctx, d.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, DroneView{Drone: st.Drone, Status: status})
	}
	return out, nil
}

// MaxHistory caps one page of a drone's flight log.
const MaxHistory = 100

// MissionHistory returns a drone's missions, newest first. The drone is
// resolved first so a mission that has run out is listed as finished.
// A zero limit means 20.
func (e *Engine) MissionHistory(ctx context.Context, droneID int64, limit int) ([]models.Mission, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrValidation)
	}
	if limit > MaxHistory {
		limit = MaxHistory
	}
	if _, _, err := e.resolveDrone(ctx, droneID); err != nil {
		return nil, err
	}
	return e.store.ListMissions(ctx, droneID, limit)
}

// Stats counts the fleet by effective status. Missions past their end are
// not counted as in flight.
type Stats struct {
	Total         int `json:"total"`
	Idle          int `json:"idle"`
	Reserved      int `json:"reserved"`
	InMission     int `json:"in_mission"`
	InMaintenance int `json:"in_maintenance"`
	Inactive      int `json:"inactive"`
	OpenTickets   int `json:"open_tickets"`
}

func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	roster, statuses, _, err := e.resolveRoster(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Total: len(roster)}
	for i, st := range statuses {
		switch st.State {
		case lifecycle.Idle:
			s.Idle++
			if st.ReservedBy != nil {
				s.Reserved++
			}
		case lifecycle.InMission:
			s.InMission++
		case lifecycle.InMaintenance:
			s.InMaintenance++
		case lifecycle.Inactive:
			s.Inactive++
		}
		if roster[i].OpenTicket != nil {
			s.OpenTickets++
		}
	}
	return s, nil
}

// AddDrone registers a drone in service.
func (e *Engine) AddDrone(ctx context.Context, d models.Drone) (*models.Drone, error) {
	d.Model = strings.TrimSpace(d.Model)
	switch {
	case d.Model == "":
		return nil, fmt.Errorf("%w: model is required", ErrValidation)
	case !d.Capability.Valid():
		return nil, fmt.Errorf("%w: unknown capability %q", ErrValidation, d.Capability)
	case d.PayloadCapacityKg < 0:
		return nil, fmt.Errorf("%w: payload capacity must not be negative", ErrValidation)
	case d.AutonomyMin <= 0:
		return nil, fmt.Errorf("%w: autonomy must be positive", ErrValidation)
	}
	now := e.now()
	d.ID = 0
	d.Status = models.DroneStatusActive
	d.LastCheckAt = &now
	d.CreatedAt = now
	out, err := e.store.AddDrone(ctx, &d)
	if err != nil {
		return nil, err
	}
	e.log(ctx).Info("drone added", "drone_id", out.ID, "model", out.Model, "capability", out.Capability)
	return out, nil
}

// RemoveDrone deletes a drone that is not in flight. Requests it was
// reserved for return to pending.
func (e *Engine) RemoveDrone(ctx context.Context, droneID int64) error {
	unlock := e.locks.Lock(droneID)
	defer unlock()

	_, status, err := e.resolveDrone(ctx, droneID)
	if err != nil {
		return err
	}
	if status.State == lifecycle.InMission {
		return fmt.Errorf("%w: drone %d is in flight", ErrInvalidTransition, droneID)
	}
	if err := e.store.RemoveDrone(ctx, droneID); err != nil {
		return err
	}
	e.log(ctx).Info("drone removed", "drone_id", droneID)
	return nil
}
