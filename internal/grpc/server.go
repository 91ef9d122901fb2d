// Package grpcserver exposes the fleet engine as fleet.v1.FleetService.
package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"droneFleetManagement/internal/auth"
	"droneFleetManagement/internal/config"
	"droneFleetManagement/internal/fleet"
	"droneFleetManagement/internal/logging"
)

const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
	healthWatchMethod = "/grpc.health.v1.Health/Watch"
	requestIDHeader   = "x-request-id"
)

// NewServer builds a gRPC server with FleetService and the health service
// registered. Every FleetService call requires a Bearer JWT.
func NewServer(secret string, engine *fleet.Engine, users auth.UserLookup, logger *slog.Logger) *grpc.Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			requestLogInterceptor(logger),
			auth.NewUnaryAuthInterceptor(secret, healthCheckMethod, healthWatchMethod),
		),
	)
	RegisterFleetServiceServer(srv, &FleetServer{Engine: engine, Users: users})

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// StartGRPC listens on the configured address. The returned serve blocks
// until the server stops and reports listener failures; shutdown stops it
// gracefully, falling back to a hard stop when ctx expires.
func StartGRPC(cfg *config.Config, engine *fleet.Engine, users auth.UserLookup, logger *slog.Logger) (serve func() error, shutdown func(context.Context) error, err error) {
	if cfg == nil {
		panic("config is required")
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	// Plaintext; terminate TLS in front of the service.
	srv := NewServer(cfg.Auth.JWTSecret, engine, users, logger)
	serve = func() error { return Serve(srv, lis) }
	shutdown = func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}
	return serve, shutdown, nil
}

// Serve runs srv on lis. A stop requested through the server is not an error.
func Serve(srv *grpc.Server, lis net.Listener) error {
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// requestLogInterceptor tags each call with a request id, returns it in the
// response header and logs the outcome.
func requestLogInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(requestIDHeader); len(v) > 0 {
				id = v[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, id))

		l := logger.With("request_id", id, "method", info.FullMethod)
		start := time.Now()
		resp, err := handler(logging.NewContext(ctx, l), req)
		code := status.Code(err)
		l.Info("grpc call", "code", code.String(), "duration", time.Since(start))
		return resp, err
	}
}
