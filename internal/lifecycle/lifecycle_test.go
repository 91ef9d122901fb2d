package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"droneFleetManagement/models"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type mockFinisher struct {
	mock.Mock
}

func (m *mockFinisher) FinishMission(ctx context.Context, mission *models.Mission) (bool, error) {
	args := m.Called(ctx, mission)
	return args.Bool(0), args.Error(1)
}

func activeDrone() models.Drone {
	return models.Drone{ID: 1, Status: models.DroneStatusActive}
}

func mission(startedAgo time.Duration, durationMin int) *models.Mission {
	return &models.Mission{ID: 10, DroneID: 1, Kind: models.MissionDelivery, Status: models.MissionInProgress, StartedAt: now.Add(-startedAgo), DurationMin: durationMin}
}

func TestResolve_Idle(t *testing.T) {
	st, expired := Resolve(models.DroneState{Drone: activeDrone()}, now)
	assert.Equal(t, Idle, st.State)
	assert.True(t, st.Available())
	assert.Nil(t, expired)
}

func TestResolve_LiveMission(t *testing.T) {
	m := mission(10*time.Minute, 30)
	st, expired := Resolve(models.DroneState{Drone: activeDrone(), LiveMission: m}, now)
	require.Equal(t, InMission, st.State)
	assert.Nil(t, expired)
	assert.Equal(t, m, st.Mission)
	assert.Equal(t, 20*time.Minute, st.Remaining(now))
	assert.False(t, st.Available())
}

func TestResolve_ExpiryBoundaryIsInclusive(t *testing.T) {
	m := mission(30*time.Minute, 30)
	st, expired := Resolve(models.DroneState{Drone: activeDrone(), LiveMission: m}, now)
	assert.Equal(t, Idle, st.State)
	assert.Nil(t, st.Mission, "mission label is cleared once expired")
	assert.Equal(t, m, expired)

	st, expired = Resolve(models.DroneState{Drone: activeDrone(), LiveMission: m}, now.Add(-time.Nanosecond))
	assert.Equal(t, InMission, st.State)
	assert.Nil(t, expired)
}

func TestResolve_MaintenanceWinsOverMission(t *testing.T) {
	tk := &models.MaintenanceTicket{ID: 3, DroneID: 1, Status: models.TicketOpen}
	st, _ := Resolve(models.DroneState{Drone: activeDrone(), LiveMission: mission(time.Minute, 30), OpenTicket: tk}, now)
	assert.Equal(t, InMaintenance, st.State)
	assert.Equal(t, tk, st.Ticket)
	assert.Nil(t, st.Mission)

	// Stored maintenance status without a ticket still holds the drone.
	d := activeDrone()
	d.Status = models.DroneStatusMaintenance
	st, _ = Resolve(models.DroneState{Drone: d}, now)
	assert.Equal(t, InMaintenance, st.State)
}

func TestResolve_InactiveAndReserved(t *testing.T) {
	d := activeDrone()
	d.Status = models.DroneStatusInactive
	st, _ := Resolve(models.DroneState{Drone: d}, now)
	assert.Equal(t, Inactive, st.State)
	assert.False(t, st.Available())

	reqID := int64(5)
	st, _ = Resolve(models.DroneState{Drone: activeDrone(), ReservedBy: &reqID}, now)
	assert.Equal(t, Idle, st.State)
	assert.False(t, st.Available(), "a reserved drone is idle but not available")
}

func TestResolver_ReadWritesBackExpiredMission(t *testing.T) {
	m := mission(time.Hour, 1)
	f := new(mockFinisher)
	f.On("FinishMission", mock.Anything, m).Return(true, nil).Once()

	st, err := NewResolver(f, nil).Resolve(context.Background(), models.DroneState{Drone: activeDrone(), LiveMission: m}, now)
	require.NoError(t, err)
	assert.Equal(t, Idle, st.State)
	f.AssertExpectations(t)
}

func TestResolver_NoWriteForLiveMission(t *testing.T) {
	f := new(mockFinisher)
	st, err := NewResolver(f, nil).Resolve(context.Background(), models.DroneState{Drone: activeDrone(), LiveMission: mission(0, 5)}, now)
	require.NoError(t, err)
	assert.Equal(t, InMission, st.State)
	f.AssertNotCalled(t, "FinishMission", mock.Anything, mock.Anything)
}

func TestResolver_PropagatesStoreError(t *testing.T) {
	f := new(mockFinisher)
	f.On("FinishMission", mock.Anything, mock.Anything).Return(false, errors.New("disk full"))
	_, err := NewResolver(f, nil).Resolve(context.Background(), models.DroneState{Drone: activeDrone(), LiveMission: mission(time.Hour, 1)}, now)
	assert.Error(t, err)
}
