package fleet

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"droneFleetManagement/internal/geo"
	"droneFleetManagement/internal/matcher"
	"droneFleetManagement/internal/pricing"
	"droneFleetManagement/models"
)

// MissionSpec describes a route to be matched and priced.
type MissionSpec struct {
	Kind     models.MissionKind `json:"kind"`
	Start    geo.Point          `json:"start"`
	End      geo.Point          `json:"end"`
	WeightKg float64            `json:"weight_kg"`
}

func (s MissionSpec) validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: unknown mission kind %q", ErrValidation, s.Kind)
	}
	if s.WeightKg < 0 {
		return fmt.Errorf("%w: weight must not be negative", ErrValidation)
	}
	if s.Kind == models.MissionDelivery && s.WeightKg <= 0 {
		return fmt.Errorf("%w: delivery weight must be positive", ErrValidation)
	}
	return validatePoints(s.Start, s.End)
}

// Quote is the outcome of matchAndPrice.
type Quote struct {
	Drone       models.Drone `json:"drone"`
	DistanceKm  float64      `json:"distance_km"`
	Cost        float64      `json:"cost"`
	DurationMin int          `json:"duration_min"`
	BudgetMin   float64      `json:"budget_min"`
}

// MatchAndPrice picks the best available drone for spec and prices the route.
// It returns ErrNoCandidate when nothing fits.
func (e *Engine) MatchAndPrice(ctx context.Context, spec MissionSpec) (q *Quote, err error) {
	ctx, span := e.startSpan(ctx, "MatchAndPrice", attribute.String("mission.kind", string(spec.Kind)))
	defer func() { endSpan(span, err) }()

	if err := spec.validate(); err != nil {
		return nil, err
	}
	roster, statuses, _, err := e.resolveRoster(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]matcher.Candidate, len(roster))
	for i := range roster {
		candidates[i] = matcher.Candidate{Drone: roster[i].Drone, Available: statuses[i].Available()}
	}

	dist := geo.Between(spec.Start, spec.End)
	d, ok := matcher.SelectDrone(spec.Kind, spec.WeightKg, dist, candidates)
	if !ok {
		return nil, fmt.Errorf("%w: %s of %.1f kg over %.2f km", ErrNoCandidate, spec.Kind, spec.WeightKg, dist)
	}
	span.SetAttributes(attribute.Int64("drone.id", d.ID))
	return &Quote{
		Drone:       d,
		DistanceKm:  dist,
		Cost:        pricing.EstimateCost(dist, spec.Kind, spec.WeightKg),
		DurationMin: e.EstimateDurationMin(dist),
		BudgetMin:   matcher.RequiredBudgetMin(dist),
	}, nil
}

// DispatchRequest commits a drone to a route. DurationMin zero means estimate it.
type DispatchRequest struct {
	DroneID     int64              `json:"drone_id"`
	Kind        models.MissionKind `json:"kind"`
	Start       geo.Point          `json:"start"`
	End         geo.Point          `json:"end"`
	WeightKg    float64            `json:"weight_kg"`
	DurationMin int                `json:"duration_min"`
}

// Dispatch starts a mission on an idle, unreserved drone after the weather
// gate clears the start coordinate.
func (e *Engine) Dispatch(ctx context.Context, req DispatchRequest) (m *models.Mission, err error) {
	ctx, span := e.startSpan(ctx, "Dispatch", attribute.Int64("drone.id", req.DroneID), attribute.String("mission.kind", string(req.Kind)))
	defer func() { endSpan(span, err) }()

	spec := MissionSpec{Kind: req.Kind, Start: req.Start, End: req.End, WeightKg: req.WeightKg}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if req.DurationMin < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrValidation)
	}
	if err := e.checkWeather(ctx, req.Start); err != nil {
		return nil, err
	}
	return e.commit(ctx, req.DroneID, nil, spec, req.DurationMin)
}

// checkWeather consults the gate at p. Provider failures never surface here;
// the gate has already substituted the neutral reading.
func (e *Engine) checkWeather(ctx context.Context, p geo.Point) error {
	rep := e.weather.Check(ctx, p.Lat, p.Lng)
	if !rep.Safe {
		return fmt.Errorf("%w: wind %.1f km/h, %s", ErrUnsafeWeather, rep.Reading.WindKph, rep.Reading.Condition)
	}
	return nil
}

// commit locks the drone, re-derives its status and writes the mission.
// requestID is set when launching an assigned delivery request, which is the
// one reservation allowed to use the drone.
func (e *Engine) commit(ctx context.Context, droneID int64, requestID *int64, spec MissionSpec, durationMin int) (*models.Mission, error) {
	unlock := e.locks.Lock(droneID)
	defer unlock()

	_, status, err := e.resolveDrone(ctx, droneID)
	if err != nil {
		return nil, err
	}
	if err := requireAvailable(status, requestID); err != nil {
		return nil, err
	}

	dist := geo.Between(spec.Start, spec.End)
	if durationMin == 0 {
		durationMin = e.EstimateDurationMin(dist)
	}
	m := &models.Mission{
		DroneID:     droneID,
		StartLat:    spec.Start.Lat,
		StartLng:    spec.Start.Lng,
		EndLat:      spec.End.Lat,
		EndLng:      spec.End.Lng,
		Kind:        spec.Kind,
		Status:      models.MissionInProgress,
		StartedAt:   e.now(),
		DurationMin: durationMin,
		DistanceKm:  dist,
		Cost:        pricing.EstimateCost(dist, spec.Kind, spec.WeightKg),
		RequestID:   requestID,
	}
	if _, err := e.store.CommitMission(ctx, m); err != nil {
		return nil, storeConflict(err)
	}
	e.log(ctx).Info("mission dispatched", "mission_id", m.ID, "drone_id", droneID, "kind", m.Kind, "duration_min", m.DurationMin, "distance_km", m.DistanceKm)
	return m, nil
}
