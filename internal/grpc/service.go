package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"droneFleetManagement/internal/fleet"
	"droneFleetManagement/internal/lifecycle"
	"droneFleetManagement/models"
)

const ServiceName = "fleet.v1.FleetService"

// FleetServiceServer is the server API for fleet.v1.FleetService.
type FleetServiceServer interface {
	MatchAndPrice(context.Context, *fleet.MissionSpec) (*fleet.Quote, error)
	Dispatch(context.Context, *fleet.DispatchRequest) (*models.Mission, error)
	EffectiveStatus(context.Context, *DroneRef) (*lifecycle.Status, error)
	ListDrones(context.Context, *Empty) (*DroneList, error)
	AddDrone(context.Context, *models.Drone) (*models.Drone, error)
	RemoveDrone(context.Context, *DroneRef) (*Empty, error)
	Stats(context.Context, *Empty) (*fleet.Stats, error)
	ListMissions(context.Context, *MissionHistoryMsg) (*MissionList, error)

	SubmitRequest(context.Context, *SubmitRequestMsg) (*models.DeliveryRequest, error)
	ListMyRequests(context.Context, *Empty) (*RequestList, error)
	ListPendingRequests(context.Context, *Empty) (*RequestList, error)
	ProposeDrone(context.Context, *RequestRef) (*fleet.Quote, error)
	AcceptRequest(context.Context, *AcceptMsg) (*models.DeliveryRequest, error)
	RejectRequest(context.Context, *RequestRef) (*models.DeliveryRequest, error)
	LaunchRequest(context.Context, *LaunchMsg) (*models.Mission, error)

	OpenTicket(context.Context, *OpenTicketMsg) (*models.MaintenanceTicket, error)
	StartWork(context.Context, *TicketRef) (*models.MaintenanceTicket, error)
	CompleteTicket(context.Context, *CompleteTicketMsg) (*models.MaintenanceTicket, error)
	ListOpenTickets(context.Context, *Empty) (*TicketList, error)
}

// ServiceDesc is registered by hand; messages travel with the json codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FleetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("MatchAndPrice", FleetServiceServer.MatchAndPrice),
		unary("Dispatch", FleetServiceServer.Dispatch),
		unary("EffectiveStatus", FleetServiceServer.EffectiveStatus),
		unary("ListDrones", FleetServiceServer.ListDrones),
		unary("AddDrone", FleetServiceServer.AddDrone),
		unary("RemoveDrone", FleetServiceServer.RemoveDrone),
		unary("Stats", FleetServiceServer.Stats),
		unary("ListMissions", FleetServiceServer.ListMissions),
		unary("SubmitRequest", FleetServiceServer.SubmitRequest),
		unary("ListMyRequests", FleetServiceServer.ListMyRequests),
		unary("ListPendingRequests", FleetServiceServer.ListPendingRequests),
		unary("ProposeDrone", FleetServiceServer.ProposeDrone),
		unary("AcceptRequest", FleetServiceServer.AcceptRequest),
		unary("RejectRequest", FleetServiceServer.RejectRequest),
		unary("LaunchRequest", FleetServiceServer.LaunchRequest),
		unary("OpenTicket", FleetServiceServer.OpenTicket),
		unary("StartWork", FleetServiceServer.StartWork),
		unary("CompleteTicket", FleetServiceServer.CompleteTicket),
		unary("ListOpenTickets", FleetServiceServer.ListOpenTickets),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fleet/v1/fleet.proto",
}

func RegisterFleetServiceServer(s grpc.ServiceRegistrar, srv FleetServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](name string, call func(FleetServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(FleetServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}
