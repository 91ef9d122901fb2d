// Package lifecycle derives a drone's effective status from stored records
// and the current time. Nothing ever fires when a mission ends: a mission is
// over as soon as now reaches startedAt + duration, and whoever reads the
// drone next observes that.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"droneFleetManagement/models"
)

// State is the effective status of a drone.
type State string

const (
	Idle          State = "idle"
	InMission     State = "in_mission"
	InMaintenance State = "in_maintenance"

	// Inactive drones are retired from service and never match.
	Inactive State = "inactive"
)

// Status is the resolved view of one drone.
type Status struct {
	DroneID    int64                     `json:"drone_id"`
	State      State                     `json:"state"`
	Mission    *models.Mission           `json:"mission,omitempty"`
	EndsAt     *time.Time                `json:"ends_at,omitempty"`
	Ticket     *models.MaintenanceTicket `json:"ticket,omitempty"`
	ReservedBy *int64                    `json:"reserved_by,omitempty"`
}

// Available reports whether the drone may take new work: idle and not
// reserved by an assigned request.
func (s Status) Available() bool {
	return s.State == Idle && s.ReservedBy == nil
}

// Remaining is the flight time left on a live mission, zero otherwise.
func (s Status) Remaining(now time.Time) time.Duration {
	if s.EndsAt == nil || !now.Before(*s.EndsAt) {
		return 0
	}
	return s.EndsAt.Sub(now)
}

// Expired reports whether an in_progress mission has run its course.
// The boundary is inclusive: at exactly startedAt + duration it is over.
func Expired(m *models.Mission, now time.Time) bool {
	return m != nil && !now.Before(m.EndsAt())
}

// Resolve derives the effective status without touching storage. The second
// result is a mission that is still stored as in_progress but has expired and
// should be persisted as finished.
//
// Maintenance wins over a live mission; both at once should not happen.
func Resolve(st models.DroneState, now time.Time) (Status, *models.Mission) {
	out := Status{DroneID: st.Drone.ID, ReservedBy: st.ReservedBy}

	live := st.LiveMission
	var expired *models.Mission
	if Expired(live, now) {
		expired, live = live, nil
	}

	switch {
	case st.OpenTicket != nil || st.Drone.Status == models.DroneStatusMaintenance:
		out.State = InMaintenance
		out.Ticket = st.OpenTicket
	case st.Drone.Status == models.DroneStatusInactive:
		out.State = Inactive
	case live != nil:
		out.State = InMission
		out.Mission = live
		ends := live.EndsAt()
		out.EndsAt = &ends
	default:
		out.State = Idle
	}
	return out, expired
}

// Finisher persists the expiry of a mission. FinishMission must be idempotent.
type Finisher interface {
	FinishMission(ctx context.Context, m *models.Mission) (bool, error)
}

// Resolver is Resolve plus write-back.
//
// Reading a status is a read with a side effect: when the drone's mission has
// expired, Resolve marks the mission finished, completes its delivery request
// and writes the drone's stored status back to active before returning.
// Concurrent readers may race to do this; the first write wins and the rest
// are no-ops.
type Resolver struct {
	store  Finisher
	logger *slog.Logger
}

func NewResolver(store Finisher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, st models.DroneState, now time.Time) (Status, error) {
	status, expired := Resolve(st, now)
	if expired == nil || r.store == nil {
		return status, nil
	}
	changed, err := r.store.FinishMission(ctx, expired)
	if err != nil {
		return Status{}, err
	}
	if changed {
		r.logger.Info("mission expired", "mission_id", expired.ID, "drone_id", expired.DroneID, "ended_at", expired.EndsAt())
	}
	return status, nil
}
