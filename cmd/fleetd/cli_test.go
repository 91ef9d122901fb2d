package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"droneFleetManagement/internal/fleet"
	"droneFleetManagement/internal/lifecycle"
	"droneFleetManagement/internal/testutil"
	"droneFleetManagement/models"
	"droneFleetManagement/repository"
)

const rosterYAML = `
users:
  - username: dispatch
    role: admin
  - username: ana
    role: operator
drones:
  - model: Matrice 350
    capability: transport
    payload_kg: 2.7
    autonomy_min: 55
  - model: Mavic 3E
    capability: survey
    payload_kg: 0
    autonomy_min: 45
`

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestParseRoster(t *testing.T) {
	r, err := parseRoster(strings.NewReader(rosterYAML))
	require.NoError(t, err)
	assert.Len(t, r.Users, 2)
	require.Len(t, r.Drones, 2)
	assert.Equal(t, models.CapabilitySurvey, r.Drones[1].Capability)

	_, err = parseRoster(strings.NewReader("users:\n  - username: x\n    role: pilot\n"))
	assert.Error(t, err)
	_, err = parseRoster(strings.NewReader("drones:\n  - model: x\n    wingspan: 3\n"))
	assert.Error(t, err)
}

func TestSeedRoster_IsIdempotentForUsers(t *testing.T) {
	store := repository.NewStore(testutil.OpenInMemoryDB(t, "cliseed"))
	engine := fleet.New(store, nil, fleet.WithLogger(quietLogger()))
	r, err := parseRoster(strings.NewReader(rosterYAML))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, seedRoster(context.Background(), store, engine, r, &out))
	r.Drones = nil
	require.NoError(t, seedRoster(context.Background(), store, engine, r, &out))
	assert.Contains(t, out.String(), "user ana exists, skipped")

	users, err := store.Users.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	drones, err := store.Drones.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, drones, 2)
}

func TestRenderStatus(t *testing.T) {
	color.NoColor = true
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	ends := now.Add(90 * time.Second)
	reqID := int64(4)
	views := []fleet.DroneView{
		{Drone: models.Drone{ID: 1, Model: "A", Capability: models.CapabilityTransport, AutonomyMin: 30}, Status: lifecycle.Status{DroneID: 1, State: lifecycle.InMission, EndsAt: &ends}},
		{Drone: models.Drone{ID: 2, Model: "B", Capability: models.CapabilityTransport, AutonomyMin: 30}, Status: lifecycle.Status{DroneID: 2, State: lifecycle.Idle, ReservedBy: &reqID}},
		{Drone: models.Drone{ID: 3, Model: "C", Capability: models.CapabilitySurvey, AutonomyMin: 30}, Status: lifecycle.Status{DroneID: 3, State: lifecycle.InMaintenance}},
	}
	var out bytes.Buffer
	renderStatus(&out, views, now)
	s := out.String()
	assert.Contains(t, s, "in mission")
	assert.Contains(t, s, "1m30s")
	assert.Contains(t, s, "reserved #4")
	assert.Contains(t, s, "maintenance")

	out.Reset()
	renderStatus(&out, nil, now)
	assert.Equal(t, "no drones registered\n", out.String())
}

func TestCommands_SeedStatusMigrate(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_PATH", filepath.Join(dir, "fleet.db"))
	t.Setenv("JWT_SECRET", "cli-secret")
	roster := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(roster, []byte(rosterYAML), 0o644))

	out := run(t, "seed", roster)
	assert.Contains(t, out, "drone 1 Matrice 350")

	out = run(t, "status")
	assert.Contains(t, out, "Mavic 3E")
	assert.Contains(t, out, "idle")

	out = run(t, "migrate", "status")
	assert.Contains(t, out, "applied 0001")
	assert.Contains(t, out, "applied 0002")

	tok := strings.TrimSpace(run(t, "token", "ana", "--ttl", "1h"))
	assert.Equal(t, 2, strings.Count(tok, "."))

	out = run(t, "migrate", "down")
	assert.Contains(t, out, "reverted 0002")
}
