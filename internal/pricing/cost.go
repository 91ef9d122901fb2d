// Package pricing estimates mission cost in currency-agnostic units.
package pricing

import (
	"droneFleetManagement/internal/geo"
	"droneFleetManagement/models"
)

const (
	BaseRatePerKm      = 8.5
	DeliveryMultiplier = 1.3
	DeliveryPerKg      = 2.5
	SurveyMultiplier   = 1.6
	InspectMultiplier  = 1.2
)

// EstimateCost prices a route. Weight only matters for deliveries and is not
// validated here.
func EstimateCost(distanceKm float64, kind models.MissionKind, weightKg float64) float64 {
	base := distanceKm * BaseRatePerKm
	switch kind {
	case models.MissionDelivery:
		base = base*DeliveryMultiplier + weightKg*DeliveryPerKg
	case models.MissionSurvey, models.MissionCartography:
		base *= SurveyMultiplier
	case models.MissionInspection:
		base *= InspectMultiplier
	}
	return geo.Round2(base)
}
