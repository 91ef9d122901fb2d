// Package matcher picks the single best drone for one mission request.
//
// Selection is greedy and per request: there is no reassignment across
// pending requests.
package matcher

import (
	"math"
	"sort"

	"droneFleetManagement/models"
)

// RoundTripFactor and ReserveFactor size the autonomy budget. Distances
// convert to flight minutes at a normalized cruise of 60 km/h, so one
// kilometre costs one minute. IdealRatio is the autonomy/budget ratio the
// score rewards.
const (
	RoundTripFactor = 2.0
	ReserveFactor   = 1.2
	IdealRatio      = 1.5
)

// Candidate is one roster entry. Available is true only when the drone is
// effectively idle and not reserved by an assigned request.
type Candidate struct {
	Drone     models.Drone
	Available bool
}

// RequiredBudgetMin is the flight time a drone needs for distanceKm.
func RequiredBudgetMin(distanceKm float64) float64 {
	return distanceKm * RoundTripFactor * ReserveFactor
}

// Score rates a drone's autonomy against the budget. Ratios close to
// IdealRatio score highest and an exact hit scores +Inf. A zero budget
// scores every drone 0.
func Score(autonomyMin, budgetMin float64) float64 {
	if budgetMin <= 0 {
		return 0
	}
	return 1 / math.Abs(autonomyMin/budgetMin-IdealRatio)
}

// Eligible reports whether d can fly kind with weightKg over distanceKm,
// ignoring availability.
func Eligible(d models.Drone, kind models.MissionKind, weightKg, distanceKm float64) bool {
	if need, ok := kind.RequiredCapability(); ok {
		if d.Capability != need {
			return false
		}
		if kind == models.MissionDelivery && d.PayloadCapacityKg < weightKg {
			return false
		}
	}
	return float64(d.AutonomyMin) >= RequiredBudgetMin(distanceKm)
}

// SelectDrone returns the highest scoring available and eligible drone.
// Ties go to the lowest id.
func SelectDrone(kind models.MissionKind, weightKg, distanceKm float64, roster []Candidate) (models.Drone, bool) {
	ordered := make([]Candidate, len(roster))
	copy(ordered, roster)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Drone.ID < ordered[j].Drone.ID })

	budget := RequiredBudgetMin(distanceKm)
	var best models.Drone
	bestScore := math.Inf(-1)
	found := false
	for _, c := range ordered {
		if !c.Available || !Eligible(c.Drone, kind, weightKg, distanceKm) {
			continue
		}
		s := Score(float64(c.Drone.AutonomyMin), budget)
		if !found || s > bestScore {
			best, bestScore, found = c.Drone, s, true
		}
	}
	return best, found
}
