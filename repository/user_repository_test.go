package repository

import (
	"context"
	"testing"

	"droneFleetManagement/internal/testutil"
	"droneFleetManagement/models"
)

func TestUserRepository_CreateGetListRole(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "userrepo")
	users := NewUserRepository(d)
	ctx := context.Background()

	u, err := users.Create(ctx, "ana", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Role != models.RoleOperator {
		t.Fatalf("default role=%s want operator", u.Role)
	}
	if _, err := users.Create(ctx, "ana", models.RoleAdmin); err == nil {
		t.Fatalf("expected unique violation on duplicate username")
	}
	if _, err := users.Create(ctx, "mihai", models.RoleTechnician); err != nil {
		t.Fatalf("create technician: %v", err)
	}

	got, err := users.GetByUsername(ctx, "ana")
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("GetByUsername: %v %+v", err, got)
	}
	if got, _ := users.GetByUsername(ctx, "nobody"); got != nil {
		t.Fatalf("expected nil for unknown user")
	}

	if err := users.UpdateRoleByUsername(ctx, "ana", models.RoleAdmin); err != nil {
		t.Fatalf("update role: %v", err)
	}
	got, _ = users.GetByID(ctx, u.ID)
	if got.Role != models.RoleAdmin {
		t.Fatalf("role=%s want admin", got.Role)
	}

	list, err := users.List(ctx, 10, 0)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v len=%d", err, len(list))
	}
	if err := users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := users.GetByID(ctx, u.ID); got != nil {
		t.Fatalf("expected nil after delete")
	}
}

func TestUserRepository_RejectsUnknownRole(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "userrole")
	users := NewUserRepository(d)
	if _, err := users.Create(context.Background(), "x", models.Role("pilot")); err == nil {
		t.Fatalf("expected check constraint failure for unknown role")
	}
}
