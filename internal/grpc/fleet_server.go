package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"droneFleetManagement/internal/auth"
	"droneFleetManagement/internal/fleet"
	"droneFleetManagement/internal/lifecycle"
	"droneFleetManagement/models"
)

// FleetServer implements FleetService RPCs on top of the engine.
type FleetServer struct {
	Engine *fleet.Engine
	Users  auth.UserLookup
}

var _ FleetServiceServer = (*FleetServer)(nil)

var anyRole = []models.Role{models.RoleAdmin, models.RoleOperator, models.RoleTechnician}

// toStatus maps engine errors to gRPC codes. Errors that already carry a
// status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, fleet.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, fleet.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, fleet.ErrNoCandidate):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, fleet.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, fleet.ErrUnsafeWeather):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Errorf(codes.Internal, "internal error: %v", err)
}

func (s *FleetServer) MatchAndPrice(ctx context.Context, in *fleet.MissionSpec) (*fleet.Quote, error) {
	if _, err := auth.RequireRole(ctx, s.Users, anyRole...); err != nil {
		return nil, err
	}
	q, err := s.Engine.MatchAndPrice(ctx, *in)
	return q, toStatus(err)
}

// Dispatch is the direct, non-request mission path and is reserved to admins.
func (s *FleetServer) Dispatch(ctx context.Context, in *fleet.DispatchRequest) (*models.Mission, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	m, err := s.Engine.Dispatch(ctx, *in)
	return m, toStatus(err)
}

func (s *FleetServer) EffectiveStatus(ctx context.Context, in *DroneRef) (*lifecycle.Status, error) {
	if _, err := auth.RequireRole(ctx, s.Users, anyRole...); err != nil {
		return nil, err
	}
	st, err := s.Engine.EffectiveStatus(ctx, in.DroneID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &st, nil
}

func (s *FleetServer) ListDrones(ctx context.Context, _ *Empty) (*DroneList, error) {
	if _, err := auth.RequireRole(ctx, s.Users, anyRole...); err != nil {
		return nil, err
	}
	views, err := s.Engine.ListDrones(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DroneList{Drones: views}, nil
}

func (s *FleetServer) AddDrone(ctx context.Context, in *models.Drone) (*models.Drone, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	d, err := s.Engine.AddDrone(ctx, *in)
	return d, toStatus(err)
}

func (s *FleetServer) RemoveDrone(ctx context.Context, in *DroneRef) (*Empty, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	if err := s.Engine.RemoveDrone(ctx, in.DroneID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *FleetServer) Stats(ctx context.Context, _ *Empty) (*fleet.Stats, error) {
	if _, err := auth.RequireRole(ctx, s.Users, anyRole...); err != nil {
		return nil, err
	}
	st, err := s.Engine.Stats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &st, nil
}

func (s *FleetServer) ListMissions(ctx context.Context, in *MissionHistoryMsg) (*MissionList, error) {
	if _, err := auth.RequireRole(ctx, s.Users, anyRole...); err != nil {
		return nil, err
	}
	list, err := s.Engine.MissionHistory(ctx, in.DroneID, in.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &MissionList{Missions: list}, nil
}

// SubmitRequest files a delivery request on behalf of the calling operator.
func (s *FleetServer) SubmitRequest(ctx context.Context, in *SubmitRequestMsg) (*models.DeliveryRequest, error) {
	u, err := auth.RequireRole(ctx, s.Users, models.RoleOperator)
	if err != nil {
		return nil, err
	}
	req, err := s.Engine.SubmitRequest(ctx, fleet.SubmitInput{
		OperatorID: u.ID,
		Start:      in.Start,
		End:        in.End,
		WeightKg:   in.WeightKg,
		Notes:      in.Notes,
	})
	return req, toStatus(err)
}

// ListMyRequests shows the caller's accepted requests only. Pending and
// rejected ones stay hidden from operators.
func (s *FleetServer) ListMyRequests(ctx context.Context, _ *Empty) (*RequestList, error) {
	u, err := auth.RequireRole(ctx, s.Users, models.RoleOperator)
	if err != nil {
		return nil, err
	}
	list, err := s.Engine.ListAcceptedFor(ctx, u.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RequestList{Requests: list}, nil
}

func (s *FleetServer) ListPendingRequests(ctx context.Context, _ *Empty) (*RequestList, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	list, err := s.Engine.ListPendingRequests(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RequestList{Requests: list}, nil
}

func (s *FleetServer) ProposeDrone(ctx context.Context, in *RequestRef) (*fleet.Quote, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	q, err := s.Engine.ProposeDrone(ctx, in.RequestID)
	return q, toStatus(err)
}

func (s *FleetServer) AcceptRequest(ctx context.Context, in *AcceptMsg) (*models.DeliveryRequest, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	req, err := s.Engine.AcceptRequest(ctx, in.RequestID, in.DroneID)
	return req, toStatus(err)
}

func (s *FleetServer) RejectRequest(ctx context.Context, in *RequestRef) (*models.DeliveryRequest, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	req, err := s.Engine.RejectRequest(ctx, in.RequestID)
	return req, toStatus(err)
}

func (s *FleetServer) LaunchRequest(ctx context.Context, in *LaunchMsg) (*models.Mission, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	m, err := s.Engine.LaunchRequest(ctx, in.RequestID, in.DurationMin)
	return m, toStatus(err)
}

func (s *FleetServer) OpenTicket(ctx context.Context, in *OpenTicketMsg) (*models.MaintenanceTicket, error) {
	if _, err := auth.RequireTechnician(ctx, s.Users); err != nil {
		return nil, err
	}
	t, err := s.Engine.OpenTicket(ctx, in.DroneID, in.Problem)
	return t, toStatus(err)
}

func (s *FleetServer) StartWork(ctx context.Context, in *TicketRef) (*models.MaintenanceTicket, error) {
	if _, err := auth.RequireTechnician(ctx, s.Users); err != nil {
		return nil, err
	}
	t, err := s.Engine.StartWork(ctx, in.TicketID)
	return t, toStatus(err)
}

func (s *FleetServer) CompleteTicket(ctx context.Context, in *CompleteTicketMsg) (*models.MaintenanceTicket, error) {
	if _, err := auth.RequireTechnician(ctx, s.Users); err != nil {
		return nil, err
	}
	t, err := s.Engine.CompleteTicket(ctx, in.TicketID, in.RepairType, in.Notes)
	return t, toStatus(err)
}

func (s *FleetServer) ListOpenTickets(ctx context.Context, _ *Empty) (*TicketList, error) {
	if _, err := auth.RequireTechnician(ctx, s.Users); err != nil {
		return nil, err
	}
	list, err := s.Engine.ListOpenTickets(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &TicketList{Tickets: list}, nil
}
