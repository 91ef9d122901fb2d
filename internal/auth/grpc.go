package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"droneFleetManagement/models"
)

// UserLookup resolves a principal to its stored user.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// NewUnaryAuthInterceptor returns a gRPC unary interceptor that extracts and validates
// a Bearer JWT from incoming metadata and injects the Principal into the context.
// Methods listed in allowUnauthenticated will bypass authentication (e.g., health checks).
func NewUnaryAuthInterceptor(secret string, allowUnauthenticated ...string) grpc.UnaryServerInterceptor {
	allow := make(map[string]struct{}, len(allowUnauthenticated))
	for _, m := range allowUnauthenticated {
		allow[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := allow[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		p, err := ParseFromMD(ctx, secret)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "auth error: %v", err)
		}
		return handler(WithPrincipal(ctx, p), req)
	}
}

// RequirePrincipal ensures a principal is present in context.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing principal")
	}
	return p, nil
}

// RequireRole ensures the caller holds one of roles according to its token
// AND the stored user. A token minted for a role the user no longer has is
// refused.
func RequireRole(ctx context.Context, users UserLookup, roles ...models.Role) (*models.User, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !hasRole(p.Role, roles) {
		return nil, status.Errorf(codes.PermissionDenied, "role %s cannot perform this action", p.Role)
	}
	if users == nil {
		return nil, status.Error(codes.Internal, "users repository not configured")
	}
	u, err := users.GetByUsername(ctx, p.Name)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get user: %v", err)
	}
	if u == nil || u.Role != p.Role {
		return nil, status.Errorf(codes.PermissionDenied, "role %s cannot perform this action", p.Role)
	}
	return u, nil
}

func RequireAdmin(ctx context.Context, users UserLookup) (*models.User, error) {
	return RequireRole(ctx, users, models.RoleAdmin)
}

// RequireOperator admits operators and admins.
func RequireOperator(ctx context.Context, users UserLookup) (*models.User, error) {
	return RequireRole(ctx, users, models.RoleOperator, models.RoleAdmin)
}

// RequireTechnician admits technicians and admins.
func RequireTechnician(ctx context.Context, users UserLookup) (*models.User, error) {
	return RequireRole(ctx, users, models.RoleTechnician, models.RoleAdmin)
}

func hasRole(r models.Role, roles []models.Role) bool {
	for _, want := range roles {
		if r == want {
			return true
		}
	}
	return false
}
