package repository

import (
	"context"
	"database/sql"
	"time"

	"droneFleetManagement/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so that repositories can be
// bound to a transaction by Store.WithTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, username string, role models.Role) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

// DroneRepositoryI defines operations on Drone entities.
type DroneRepositoryI interface {
	Create(ctx context.Context, d *models.Drone) (*models.Drone, error)
	GetByID(ctx context.Context, id int64) (*models.Drone, error)
	List(ctx context.Context) ([]models.Drone, error)
	ListAdmin(ctx context.Context, p ListDronesAdminParams) ([]models.Drone, error)
	UpdateStatus(ctx context.Context, id int64, status models.DroneStatus) error
	MarkChecked(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

// MissionRepositoryI defines operations on Mission entities.
type MissionRepositoryI interface {
	Create(ctx context.Context, m *models.Mission) (*models.Mission, error)
	GetByID(ctx context.Context, id int64) (*models.Mission, error)
	GetLiveByDrone(ctx context.Context, droneID int64) (*models.Mission, error)
	ListLive(ctx context.Context) ([]models.Mission, error)
	ListByDrone(ctx context.Context, droneID int64, limit int) ([]models.Mission, error)
	Finish(ctx context.Context, id int64) (bool, error)
}

// RequestRepositoryI defines operations on DeliveryRequest entities.
type RequestRepositoryI interface {
	Create(ctx context.Context, req *models.DeliveryRequest) (*models.DeliveryRequest, error)
	GetByID(ctx context.Context, id int64) (*models.DeliveryRequest, error)
	ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.DeliveryRequest, error)
	ListByOperator(ctx context.Context, operatorID int64, statuses ...models.RequestStatus) ([]models.DeliveryRequest, error)
	Assign(ctx context.Context, id, droneID int64) (bool, error)
	Transition(ctx context.Context, id int64, from, to models.RequestStatus) (bool, error)
}

// TicketRepositoryI defines operations on MaintenanceTicket entities.
type TicketRepositoryI interface {
	Create(ctx context.Context, t *models.MaintenanceTicket) (*models.MaintenanceTicket, error)
	GetByID(ctx context.Context, id int64) (*models.MaintenanceTicket, error)
	GetLiveByDrone(ctx context.Context, droneID int64) (*models.MaintenanceTicket, error)
	ListLive(ctx context.Context) ([]models.MaintenanceTicket, error)
	StartWork(ctx context.Context, id int64) (bool, error)
	Close(ctx context.Context, id int64, repairType, notes string, at time.Time) (bool, error)
}

var (
	_ UserRepositoryI    = (*UserRepository)(nil)
	_ DroneRepositoryI   = (*DroneRepository)(nil)
	_ MissionRepositoryI = (*MissionRepository)(nil)
	_ RequestRepositoryI = (*RequestRepository)(nil)
	_ TicketRepositoryI  = (*TicketRepository)(nil)
)
