package matcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"droneFleetManagement/models"
)

func transport(id int64, payload float64, autonomy int) Candidate {
	return Candidate{Drone: models.Drone{ID: id, Capability: models.CapabilityTransport, PayloadCapacityKg: payload, AutonomyMin: autonomy}, Available: true}
}

func survey(id int64, autonomy int) Candidate {
	return Candidate{Drone: models.Drone{ID: id, Capability: models.CapabilitySurvey, AutonomyMin: autonomy}, Available: true}
}

func TestSelectDrone_PayloadBoundary(t *testing.T) {
	roster := []Candidate{transport(1, 5, 100)}

	_, ok := SelectDrone(models.MissionDelivery, 6, 10, roster)
	assert.False(t, ok, "6 kg must not fit a 5 kg drone")

	d, ok := SelectDrone(models.MissionDelivery, 5, 10, roster)
	require.True(t, ok, "5 kg fits a 5 kg drone")
	assert.Equal(t, int64(1), d.ID)
}

func TestSelectDrone_AutonomyBoundaryInclusive(t *testing.T) {
	// 10 km -> 10*2*1.2 = 24 minutes.
	assert.Equal(t, 24.0, RequiredBudgetMin(10))

	_, ok := SelectDrone(models.MissionTest, 0, 10, []Candidate{transport(1, 0, 24)})
	assert.True(t, ok, "autonomy equal to budget is included")

	_, ok = SelectDrone(models.MissionTest, 0, 10, []Candidate{transport(1, 0, 23)})
	assert.False(t, ok, "one minute below budget is excluded")
}

func TestSelectDrone_CapabilityFilter(t *testing.T) {
	roster := []Candidate{transport(1, 10, 100), survey(2, 100)}

	for _, kind := range []models.MissionKind{models.MissionSurvey, models.MissionCartography, models.MissionInspection} {
		d, ok := SelectDrone(kind, 0, 10, roster)
		require.True(t, ok, kind)
		assert.Equal(t, int64(2), d.ID, kind)
	}
	d, ok := SelectDrone(models.MissionDelivery, 1, 10, roster)
	require.True(t, ok)
	assert.Equal(t, int64(1), d.ID)

	_, ok = SelectDrone(models.MissionTest, 0, 10, []Candidate{survey(7, 100)})
	assert.True(t, ok, "test accepts any capability")
}

func TestSelectDrone_SkipsUnavailable(t *testing.T) {
	busy := transport(1, 10, 36)
	busy.Available = false
	d, ok := SelectDrone(models.MissionDelivery, 1, 10, []Candidate{busy, transport(2, 10, 100)})
	require.True(t, ok)
	assert.Equal(t, int64(2), d.ID)

	_, ok = SelectDrone(models.MissionDelivery, 1, 10, []Candidate{busy})
	assert.False(t, ok)
}

func TestSelectDrone_ScorePrefersRatioNearOnePointFive(t *testing.T) {
	// Budget 24: 36 is exactly 1.5x, 100 is oversized, 26 is tight.
	roster := []Candidate{transport(1, 10, 100), transport(2, 10, 26), transport(3, 10, 36)}
	d, ok := SelectDrone(models.MissionDelivery, 1, 10, roster)
	require.True(t, ok)
	assert.Equal(t, int64(3), d.ID)
	assert.True(t, math.IsInf(Score(36, 24), 1))

	// Among 48 (ratio 2.0) and 30 (ratio 1.25), 30 is closer to 1.5.
	d, _ = SelectDrone(models.MissionDelivery, 1, 10, []Candidate{transport(1, 10, 48), transport(2, 10, 30)})
	assert.Equal(t, int64(2), d.ID)
}

func TestSelectDrone_TieGoesToLowestID(t *testing.T) {
	// 30 and 42 are equally far from 36 (ratio 1.25 and 1.75).
	roster := []Candidate{transport(9, 10, 42), transport(4, 10, 30), transport(6, 10, 42)}
	d, ok := SelectDrone(models.MissionDelivery, 1, 10, roster)
	require.True(t, ok)
	assert.Equal(t, int64(4), d.ID)
}

func TestSelectDrone_EmptyRoster(t *testing.T) {
	_, ok := SelectDrone(models.MissionDelivery, 1, 1, nil)
	assert.False(t, ok)
}
