package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"droneFleetManagement/internal/auth"
	"droneFleetManagement/internal/config"
	"droneFleetManagement/internal/fleet"
	"droneFleetManagement/internal/geo"
	"droneFleetManagement/internal/lifecycle"
	"droneFleetManagement/internal/testutil"
	"droneFleetManagement/internal/weather"
	"droneFleetManagement/models"
	"droneFleetManagement/repository"
)

const testSecret = "grpc-test-secret"

type harness struct {
	conn   *grpc.ClientConn
	engine *fleet.Engine
	clock  *testutil.Clock
	tokens map[models.Role]string
}

func (h *harness) client(role models.Role) *Client {
	return NewClient(h.conn, h.tokens[role])
}

func newHarness(t *testing.T, name string) *harness {
	t.Helper()
	store := repository.NewStore(testutil.OpenInMemoryDB(t, name))
	clock := testutil.NewClock(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := fleet.New(store, weather.StaticProvider(weather.Neutral()), fleet.WithClock(clock.Now), fleet.WithLogger(logger))

	ctx := context.Background()
	tokens := map[models.Role]string{}
	for _, role := range []models.Role{models.RoleAdmin, models.RoleOperator, models.RoleTechnician} {
		u, err := store.Users.Create(ctx, string(role)+"-user", role)
		require.NoError(t, err)
		tok, err := auth.Issue(testSecret, u.Username, role, time.Hour, time.Now())
		require.NoError(t, err)
		tokens[role] = tok
	}

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(testSecret, engine, store.Users, logger)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{conn: conn, engine: engine, clock: clock, tokens: tokens}
}

func (h *harness) addDrone(t *testing.T, payloadKg float64, autonomyMin int) *models.Drone {
	t.Helper()
	d, err := h.engine.AddDrone(context.Background(), models.Drone{
		Model: "Quad", Capability: models.CapabilityTransport, PayloadCapacityKg: payloadKg, AutonomyMin: autonomyMin,
	})
	require.NoError(t, err)
	return d
}

var (
	origin = geo.Point{Lat: 44.4268, Lng: 26.1025}
	dest   = geo.Point{Lat: 44.4268, Lng: 26.1650}
)

func TestHealth_NoTokenNeeded(t *testing.T) {
	h := newHarness(t, "grpchealth")
	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestFleetService_RequiresToken(t *testing.T) {
	h := newHarness(t, "grpcnotoken")
	_, err := NewClient(h.conn, "").Stats(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = NewClient(h.conn, "not-a-jwt").Stats(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestFleetService_DeliveryFlow(t *testing.T) {
	h := newHarness(t, "grpcflow")
	ctx := context.Background()
	d := h.addDrone(t, 50, 60)
	admin, operator, tech := h.client(models.RoleAdmin), h.client(models.RoleOperator), h.client(models.RoleTechnician)

	req, err := operator.SubmitRequest(ctx, SubmitRequestMsg{Start: origin, End: dest, WeightKg: 40, Notes: "fragile"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)

	mine, err := operator.ListMyRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = operator.AcceptRequest(ctx, req.ID, 0)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	accepted, err := admin.AcceptRequest(ctx, req.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, accepted.DroneID)
	assert.Equal(t, d.ID, *accepted.DroneID)

	m, err := admin.LaunchRequest(ctx, req.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.MissionInProgress, m.Status)

	_, err = tech.OpenTicket(ctx, d.ID, "strange vibration")
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	st, err := operator.EffectiveStatus(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.InMission, st.State)

	h.clock.Advance(time.Duration(m.DurationMin) * time.Minute)

	mine, err = operator.ListMyRequests(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.RequestCompleted, mine[0].Status)

	stats, err := tech.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 0, stats.InMission)

	flights, err := tech.ListMissions(ctx, d.ID, 0)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, m.ID, flights[0].ID)
	assert.Equal(t, models.MissionFinished, flights[0].Status)

	_, err = tech.ListMissions(ctx, 9999, 0)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestFleetService_ErrorCodes(t *testing.T) {
	h := newHarness(t, "grpccodes")
	ctx := context.Background()
	admin, operator := h.client(models.RoleAdmin), h.client(models.RoleOperator)

	_, err := operator.SubmitRequest(ctx, SubmitRequestMsg{Start: origin, End: dest, WeightKg: 51})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = admin.MatchAndPrice(ctx, fleet.MissionSpec{Kind: models.MissionDelivery, Start: origin, End: dest, WeightKg: 1})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = admin.EffectiveStatus(ctx, 404)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = operator.Dispatch(ctx, fleet.DispatchRequest{DroneID: 1, Kind: models.MissionTest, Start: origin, End: dest})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	d := h.addDrone(t, 10, 60)
	drones, err := operator.ListDrones(ctx)
	require.NoError(t, err)
	require.Len(t, drones, 1)
	assert.Equal(t, d.ID, drones[0].Drone.ID)
}

func TestRequestID_EchoedInHeader(t *testing.T) {
	h := newHarness(t, "grpcreqid")
	var header metadata.MD
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+h.tokens[models.RoleAdmin], requestIDHeader, "abc-123")
	out := new(fleet.Stats)
	err := h.conn.Invoke(ctx, "/"+ServiceName+"/Stats", &Empty{}, out, grpc.CallContentSubtype(CodecName), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"abc-123"}, header.Get(requestIDHeader))
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: x", fleet.ErrValidation), codes.InvalidArgument},
		{fmt.Errorf("%w: x", fleet.ErrNotFound), codes.NotFound},
		{fmt.Errorf("%w: x", fleet.ErrNoCandidate), codes.ResourceExhausted},
		{fmt.Errorf("%w: x", fleet.ErrInvalidTransition), codes.FailedPrecondition},
		{fmt.Errorf("%w: x", fleet.ErrUnsafeWeather), codes.Unavailable},
		{status.Error(codes.PermissionDenied, "no"), codes.PermissionDenied},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, status.Code(toStatus(c.err)), c.err.Error())
	}
	assert.NoError(t, toStatus(nil))
}

func TestServe_ReportsListenerFailure(t *testing.T) {
	lis := bufconn.Listen(1 << 10)
	require.NoError(t, lis.Close())
	err := Serve(grpc.NewServer(), lis)
	assert.Error(t, err)
}

func TestStartGRPC_ShutdownEndsServeWithoutError(t *testing.T) {
	cfg := &config.Config{}
	cfg.GRPC.Address = "127.0.0.1:0"
	cfg.Auth.JWTSecret = testSecret
	serve, shutdown, err := StartGRPC(cfg, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- serve() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("serve did not return after shutdown")
	}
}
