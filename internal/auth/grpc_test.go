package auth

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"droneFleetManagement/internal/testutil"
	"droneFleetManagement/models"
	"droneFleetManagement/repository"
)

func TestRequireRole_WithDBRoleCheck(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "authroles")
	users := repository.NewUserRepository(d)
	ctx := context.Background()
	if _, err := users.Create(ctx, "alice", models.RoleOperator); err != nil {
		t.Fatalf("create alice: %v", err)
	}

	// Spoofed admin token for a stored operator.
	pctx := WithPrincipal(ctx, &Principal{Name: "alice", Role: models.RoleAdmin})
	if _, err := RequireAdmin(pctx, users); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied for non-admin role, got %v", err)
	}

	opctx := WithPrincipal(ctx, &Principal{Name: "alice", Role: models.RoleOperator})
	u, err := RequireOperator(opctx, users)
	if err != nil {
		t.Fatalf("RequireOperator: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := RequireTechnician(opctx, users); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected operator to be refused technician work, got %v", err)
	}

	if err := users.UpdateRoleByUsername(ctx, "alice", models.RoleAdmin); err != nil {
		t.Fatalf("update role: %v", err)
	}
	if _, err := RequireAdmin(pctx, users); err != nil {
		t.Fatalf("RequireAdmin real admin: %v", err)
	}
	if _, err := RequireTechnician(pctx, users); err != nil {
		t.Fatalf("admin should pass technician check: %v", err)
	}
	// The old operator token no longer matches the stored role.
	if _, err := RequireOperator(opctx, users); status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected stale operator token to be refused, got %v", err)
	}
}

func TestRequirePrincipal_Missing(t *testing.T) {
	if _, err := RequirePrincipal(context.Background()); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestUnaryAuthInterceptor(t *testing.T) {
	secret := "s3cr3t"
	interceptor := NewUnaryAuthInterceptor(secret, "/grpc.health.v1.Health/Check")

	hCalled := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, func(ctx context.Context, req any) (any, error) {
		hCalled = true
		if p, ok := FromContext(ctx); ok && p != nil {
			t.Fatalf("expected no principal on allowlisted path")
		}
		return 123, nil
	})
	if err != nil || !hCalled {
		t.Fatalf("allowlisted handler err=%v called=%v", err, hCalled)
	}

	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/fleet.v1.FleetService/Stats"}, func(ctx context.Context, req any) (any, error) {
		t.Fatalf("handler must not run without a token")
		return nil, nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	tok := testutil.GenerateJWTHS256(t, secret, "bob", "technician")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/fleet.v1.FleetService/StartWork"}, func(ctx context.Context, req any) (any, error) {
		p, ok := FromContext(ctx)
		if !ok || p == nil || p.Name != "bob" || p.Role != models.RoleTechnician {
			t.Fatalf("principal not injected: %+v ok=%v", p, ok)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor auth path: %v", err)
	}
}
