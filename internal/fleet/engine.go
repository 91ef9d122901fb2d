// Package fleet is the dispatch and mission lifecycle engine. It matches
// requests to drones, prices routes, gates dispatch on weather and drives the
// delivery request and maintenance ticket state machines.
//
// Drone status is never stored as "busy". Every read derives it from the
// drone's records and the clock, and persists mission expiry as a side effect
// (see lifecycle.Resolver).
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"droneFleetManagement/internal/geo"
	"droneFleetManagement/internal/lifecycle"
	"droneFleetManagement/internal/logging"
	"droneFleetManagement/internal/weather"
	"droneFleetManagement/models"
	"droneFleetManagement/repository"
)

const (
	DefaultMaxPayloadKg = 50.0
	DefaultSetupMinutes = 10
)

// Store is the fleet store the engine runs against. Multi-record writes
// (CommitMission, FinishMission, OpenTicket, CloseTicket, RemoveDrone) must
// be atomic. Writes that would give a drone a second live mission, ticket or
// reservation must fail with repository.ErrConflict.
type Store interface {
	Roster(ctx context.Context) ([]models.DroneState, error)
	DroneState(ctx context.Context, droneID int64) (*models.DroneState, error)
	FinishMission(ctx context.Context, m *models.Mission) (bool, error)
	CommitMission(ctx context.Context, m *models.Mission) (*models.Mission, error)
	ListMissions(ctx context.Context, droneID int64, limit int) ([]models.Mission, error)

	AddDrone(ctx context.Context, d *models.Drone) (*models.Drone, error)
	RemoveDrone(ctx context.Context, droneID int64) error
	SearchDrones(ctx context.Context, p repository.ListDronesAdminParams) ([]models.Drone, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)

	CreateRequest(ctx context.Context, req *models.DeliveryRequest) (*models.DeliveryRequest, error)
	GetRequest(ctx context.Context, id int64) (*models.DeliveryRequest, error)
	ListRequestsByStatus(ctx context.Context, status models.RequestStatus) ([]models.DeliveryRequest, error)
	ListOperatorRequests(ctx context.Context, operatorID int64, statuses ...models.RequestStatus) ([]models.DeliveryRequest, error)
	AssignRequest(ctx context.Context, id, droneID int64) (bool, error)
	RejectRequest(ctx context.Context, id int64) (bool, error)

	OpenTicket(ctx context.Context, t *models.MaintenanceTicket) (*models.MaintenanceTicket, error)
	GetTicket(ctx context.Context, id int64) (*models.MaintenanceTicket, error)
	StartTicket(ctx context.Context, id int64) (bool, error)
	CloseTicket(ctx context.Context, id int64, repairType, notes string, at time.Time) (bool, error)
	ListLiveTickets(ctx context.Context) ([]models.MaintenanceTicket, error)
}

// Engine is safe for concurrent use. Transitions touching one drone are
// serialized by a per-drone lock; reads take a consistent roster snapshot
// and never hold locks while scoring.
type Engine struct {
	store    Store
	weather  *weather.Gate
	resolver *lifecycle.Resolver
	locks    *keyedMutex
	now      func() time.Time
	logger   *slog.Logger
	tracer   trace.Tracer

	provider       weather.Provider
	weatherTimeout time.Duration
	maxPayloadKg   float64
	setupMinutes   int
}

type Option func(*Engine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithMaxPayloadKg sets the upper bound for request weight.
func WithMaxPayloadKg(kg float64) Option {
	return func(e *Engine) { e.maxPayloadKg = kg }
}

// WithSetupMinutes sets the fixed overhead added to estimated durations.
func WithSetupMinutes(n int) Option {
	return func(e *Engine) { e.setupMinutes = n }
}

func WithWeatherTimeout(d time.Duration) Option {
	return func(e *Engine) { e.weatherTimeout = d }
}

// New builds an engine over store. provider may be nil, in which case every
// weather check uses the neutral reading.
func New(store Store, provider weather.Provider, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		locks:          newKeyedMutex(),
		now:            func() time.Time { return time.Now().UTC() },
		logger:         slog.Default(),
		tracer:         otel.Tracer("droneFleetManagement/internal/fleet"),
		provider:       provider,
		weatherTimeout: weather.DefaultTimeout,
		maxPayloadKg:   DefaultMaxPayloadKg,
		setupMinutes:   DefaultSetupMinutes,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.weather = weather.NewGate(e.provider, e.weatherTimeout, e.logger)
	e.resolver = lifecycle.NewResolver(store, e.logger)
	return e
}

// MaxPayloadKg is the configured request weight ceiling.
func (e *Engine) MaxPayloadKg() float64 { return e.maxPayloadKg }

// EstimateDurationMin is the planned flight time for a route: one minute per
// kilometre plus the setup overhead.
func (e *Engine) EstimateDurationMin(distanceKm float64) int {
	return int(math.Ceil(distanceKm)) + e.setupMinutes
}

// log prefers the request-scoped logger carried by ctx.
func (e *Engine) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, e.logger)
}

func (e *Engine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "fleet."+name, trace.WithAttributes(attrs...))
}

// endSpan records err on the span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// resolveDrone loads one drone and resolves its effective status, persisting
// mission expiry if due.
func (e *Engine) resolveDrone(ctx context.Context, droneID int64) (*models.DroneState, lifecycle.Status, error) {
	st, err := e.store.DroneState(ctx, droneID)
	if err != nil {
		return nil, lifecycle.Status{}, err
	}
	if st == nil {
		return nil, lifecycle.Status{}, fmt.Errorf("%w: drone %d", ErrNotFound, droneID)
	}
	status, err := e.resolver.Resolve(ctx, *st, e.now())
	if err != nil {
		return nil, lifecycle.Status{}, err
	}
	return st, status, nil
}

// resolveRoster reads one consistent roster snapshot and resolves every
// drone. It also reports how many expired missions were found.
func (e *Engine) resolveRoster(ctx context.Context) ([]models.DroneState, []lifecycle.Status, int, error) {
	roster, err := e.store.Roster(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	now := e.now()
	statuses := make([]lifecycle.Status, len(roster))
	expired := 0
	for i, st := range roster {
		if lifecycle.Expired(st.LiveMission, now) {
			expired++
		}
		s, err := e.resolver.Resolve(ctx, st, now)
		if err != nil {
			return nil, nil, 0, err
		}
		statuses[i] = s
	}
	return roster, statuses, expired, nil
}

// requireAvailable turns a resolved status into an invalid-transition error
// unless the drone may take new work.
func requireAvailable(status lifecycle.Status, allowReservation *int64) error {
	if status.State != lifecycle.Idle {
		return fmt.Errorf("%w: drone %d is %s", ErrInvalidTransition, status.DroneID, status.State)
	}
	if status.ReservedBy != nil && (allowReservation == nil || *status.ReservedBy != *allowReservation) {
		return fmt.Errorf("%w: drone %d is reserved by request %d", ErrInvalidTransition, status.DroneID, *status.ReservedBy)
	}
	return nil
}

// storeConflict maps a lost race on a one-live-record rule to ErrInvalidTransition.
func storeConflict(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return err
}

func validatePoints(points ...geo.Point) error {
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return nil
}
