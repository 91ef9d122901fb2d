package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"droneFleetManagement/internal/geo"
	"droneFleetManagement/internal/matcher"
	"droneFleetManagement/models"
)

// acceptedStatuses are the request states an operator can see. Pending and
// rejected requests are deliberately hidden from the submitting operator.
var acceptedStatuses = []models.RequestStatus{
	models.RequestAssigned,
	models.RequestInProgress,
	models.RequestCompleted,
}

// SubmitInput is an operator's delivery request.
type SubmitInput struct {
	OperatorID int64     `json:"operator_id"`
	Start      geo.Point `json:"start"`
	End        geo.Point `json:"end"`
	WeightKg   float64   `json:"weight_kg"`
	Notes      string    `json:"notes"`
}

// SubmitRequest creates a pending request. Weather is not consulted; it is
// checked when the request is launched.
func (e *Engine) SubmitRequest(ctx context.Context, in SubmitInput) (req *models.DeliveryRequest, err error) {
	ctx, span := e.startSpan(ctx, "SubmitRequest", attribute.Int64("operator.id", in.OperatorID))
	defer func() { endSpan(span, err) }()

	if in.WeightKg <= 0 || in.WeightKg > e.maxPayloadKg {
		return nil, fmt.Errorf("%w: weight %.2f kg must be in (0, %.0f]", ErrValidation, in.WeightKg, e.maxPayloadKg)
	}
	if err := validatePoints(in.Start, in.End); err != nil {
		return nil, err
	}
	op, err := e.store.GetUser(ctx, in.OperatorID)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, fmt.Errorf("%w: operator %d", ErrNotFound, in.OperatorID)
	}

	req, err = e.store.CreateRequest(ctx, &models.DeliveryRequest{
		OperatorID: in.OperatorID,
		StartLat:   in.Start.Lat,
		StartLng:   in.Start.Lng,
		EndLat:     in.End.Lat,
		EndLng:     in.End.Lng,
		WeightKg:   in.WeightKg,
		Notes:      strings.TrimSpace(in.Notes),
		Status:     models.RequestPending,
		CreatedAt:  e.now(),
	})
	if err != nil {
		return nil, err
	}
	e.log(ctx).Info("request submitted", "request_id", req.ID, "operator_id", in.OperatorID, "weight_kg", in.WeightKg)
	return req, nil
}

// ListPendingRequests returns every pending request, oldest first.
func (e *Engine) ListPendingRequests(ctx context.Context) ([]models.DeliveryRequest, error) {
	return e.store.ListRequestsByStatus(ctx, models.RequestPending)
}

// ListAcceptedFor returns an operator's assigned, in-progress and completed
// requests, newest first. In-progress requests whose mission has expired are
// completed on the way.
func (e *Engine) ListAcceptedFor(ctx context.Context, operatorID int64) ([]models.DeliveryRequest, error) {
	list, err := e.store.ListOperatorRequests(ctx, operatorID, acceptedStatuses...)
	if err != nil {
		return nil, err
	}
	refreshed, err := e.refreshRequests(ctx, list)
	if err != nil || !refreshed {
		return list, err
	}
	return e.store.ListOperatorRequests(ctx, operatorID, acceptedStatuses...)
}

// GetRequest returns one request with its lifecycle brought up to date.
func (e *Engine) GetRequest(ctx context.Context, id int64) (*models.DeliveryRequest, error) {
	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %d", ErrNotFound, id)
	}
	refreshed, err := e.refreshRequests(ctx, []models.DeliveryRequest{*req})
	if err != nil || !refreshed {
		return req, err
	}
	return e.store.GetRequest(ctx, id)
}

// refreshRequests resolves the drones of in-progress requests so that
// expired missions complete their requests. It reports whether anything
// might have changed.
func (e *Engine) refreshRequests(ctx context.Context, reqs []models.DeliveryRequest) (bool, error) {
	refreshed := false
	for _, r := range reqs {
		if r.Status != models.RequestInProgress || r.DroneID == nil {
			continue
		}
		if _, _, err := e.resolveDrone(ctx, *r.DroneID); err != nil && !errors.Is(err, ErrNotFound) {
			return false, err
		}
		refreshed = true
	}
	return refreshed, nil
}

// ProposeDrone runs the matcher for a pending request without committing.
func (e *Engine) ProposeDrone(ctx context.Context, requestID int64) (*Quote, error) {
	req, err := e.pendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return e.MatchAndPrice(ctx, requestSpec(req))
}

// AcceptRequest assigns a pending request to a drone. A zero droneID lets the
// matcher choose. The drone must be idle, unreserved and able to carry the
// payload over the route; the assignment reserves it until launch.
func (e *Engine) AcceptRequest(ctx context.Context, requestID, droneID int64) (out *models.DeliveryRequest, err error) {
	ctx, span := e.startSpan(ctx, "AcceptRequest", attribute.Int64("request.id", requestID), attribute.Int64("drone.id", droneID))
	defer func() { endSpan(span, err) }()

	req, err := e.pendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	spec := requestSpec(req)
	if droneID == 0 {
		q, err := e.MatchAndPrice(ctx, spec)
		if err != nil {
			return nil, err
		}
		droneID = q.Drone.ID
	}

	unlock := e.locks.Lock(droneID)
	defer unlock()

	st, status, err := e.resolveDrone(ctx, droneID)
	if err != nil {
		return nil, err
	}
	if err := requireAvailable(status, nil); err != nil {
		return nil, err
	}
	dist := geo.Between(spec.Start, spec.End)
	if !matcher.Eligible(st.Drone, models.MissionDelivery, req.WeightKg, dist) {
		return nil, fmt.Errorf("%w: drone %d cannot carry %.2f kg over %.2f km", ErrInvalidTransition, droneID, req.WeightKg, dist)
	}
	ok, err := e.store.AssignRequest(ctx, requestID, droneID)
	if err != nil {
		return nil, storeConflict(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %d is no longer pending", ErrInvalidTransition, requestID)
	}
	e.log(ctx).Info("request accepted", "request_id", requestID, "drone_id", droneID)
	return e.store.GetRequest(ctx, requestID)
}

// RejectRequest moves a pending request to rejected. Drones are untouched.
func (e *Engine) RejectRequest(ctx context.Context, requestID int64) (*models.DeliveryRequest, error) {
	ok, err := e.store.RejectRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %d", ErrNotFound, requestID)
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %d is %s", ErrInvalidTransition, requestID, req.Status)
	}
	e.log(ctx).Info("request rejected", "request_id", requestID)
	return req, nil
}

// LaunchRequest starts the delivery mission of an assigned request. The
// request becomes in_progress together with the mission and is completed
// when a later read finds the mission expired.
func (e *Engine) LaunchRequest(ctx context.Context, requestID int64, durationMin int) (m *models.Mission, err error) {
	ctx, span := e.startSpan(ctx, "LaunchRequest", attribute.Int64("request.id", requestID))
	defer func() { endSpan(span, err) }()

	if durationMin < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrValidation)
	}
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %d", ErrNotFound, requestID)
	}
	if req.Status != models.RequestAssigned || req.DroneID == nil {
		return nil, fmt.Errorf("%w: request %d is %s", ErrInvalidTransition, requestID, req.Status)
	}
	spec := requestSpec(req)
	if err := e.checkWeather(ctx, spec.Start); err != nil {
		return nil, err
	}
	return e.commit(ctx, *req.DroneID, &req.ID, spec, durationMin)
}

func (e *Engine) pendingRequest(ctx context.Context, id int64) (*models.DeliveryRequest, error) {
	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %d", ErrNotFound, id)
	}
	if req.Status != models.RequestPending {
		return nil, fmt.Errorf("%w: request %d is %s", ErrInvalidTransition, id, req.Status)
	}
	return req, nil
}

func requestSpec(r *models.DeliveryRequest) MissionSpec {
	return MissionSpec{
		Kind:     models.MissionDelivery,
		Start:    geo.Point{Lat: r.StartLat, Lng: r.StartLng},
		End:      geo.Point{Lat: r.EndLat, Lng: r.EndLng},
		WeightKg: r.WeightKg,
	}
}
