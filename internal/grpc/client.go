package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"droneFleetManagement/internal/fleet"
	"droneFleetManagement/internal/lifecycle"
	"droneFleetManagement/models"
)

// Client is a FleetService client speaking the json codec. Token, when set,
// is sent as a Bearer credential on every call.
type Client struct {
	cc    grpc.ClientConnInterface
	Token string
}

func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, Token: token}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if c.Token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.Token)
	}
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *Client) MatchAndPrice(ctx context.Context, spec fleet.MissionSpec) (*fleet.Quote, error) {
	out := new(fleet.Quote)
	return out, c.invoke(ctx, "MatchAndPrice", &spec, out)
}

func (c *Client) Dispatch(ctx context.Context, req fleet.DispatchRequest) (*models.Mission, error) {
	out := new(models.Mission)
	return out, c.invoke(ctx, "Dispatch", &req, out)
}

func (c *Client) EffectiveStatus(ctx context.Context, droneID int64) (*lifecycle.Status, error) {
	out := new(lifecycle.Status)
	return out, c.invoke(ctx, "EffectiveStatus", &DroneRef{DroneID: droneID}, out)
}

func (c *Client) ListDrones(ctx context.Context) ([]fleet.DroneView, error) {
	out := new(DroneList)
	if err := c.invoke(ctx, "ListDrones", &Empty{}, out); err != nil {
		return nil, err
	}
	return out.Drones, nil
}

func (c *Client) Stats(ctx context.Context) (*fleet.Stats, error) {
	out := new(fleet.Stats)
	return out, c.invoke(ctx, "Stats", &Empty{}, out)
}

func (c *Client) ListMissions(ctx context.Context, droneID int64, limit int) ([]models.Mission, error) {
	out := new(MissionList)
	if err := c.invoke(ctx, "ListMissions", &MissionHistoryMsg{DroneID: droneID, Limit: limit}, out); err != nil {
		return nil, err
	}
	return out.Missions, nil
}

func (c *Client) SubmitRequest(ctx context.Context, in SubmitRequestMsg) (*models.DeliveryRequest, error) {
	out := new(models.DeliveryRequest)
	return out, c.invoke(ctx, "SubmitRequest", &in, out)
}

func (c *Client) ListMyRequests(ctx context.Context) ([]models.DeliveryRequest, error) {
	out := new(RequestList)
	if err := c.invoke(ctx, "ListMyRequests", &Empty{}, out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

func (c *Client) AcceptRequest(ctx context.Context, requestID, droneID int64) (*models.DeliveryRequest, error) {
	out := new(models.DeliveryRequest)
	return out, c.invoke(ctx, "AcceptRequest", &AcceptMsg{RequestID: requestID, DroneID: droneID}, out)
}

func (c *Client) LaunchRequest(ctx context.Context, requestID int64, durationMin int) (*models.Mission, error) {
	out := new(models.Mission)
	return out, c.invoke(ctx, "LaunchRequest", &LaunchMsg{RequestID: requestID, DurationMin: durationMin}, out)
}

func (c *Client) OpenTicket(ctx context.Context, droneID int64, problem string) (*models.MaintenanceTicket, error) {
	out := new(models.MaintenanceTicket)
	return out, c.invoke(ctx, "OpenTicket", &OpenTicketMsg{DroneID: droneID, Problem: problem}, out)
}
