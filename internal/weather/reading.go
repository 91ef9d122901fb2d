// Package weather decides whether flying is safe and wraps the external
// weather provider so that dispatch never blocks on it.
package weather

import "strings"

// MaxWindKph is the highest wind speed considered safe.
const MaxWindKph = 35.0

// unsafeConditions is matched case-insensitively against the whole condition code.
var unsafeConditions = map[string]struct{}{
	"rain":         {},
	"snow":         {},
	"thunderstorm": {},
	"drizzle":      {},
}

// Reading is one observation at a coordinate.
type Reading struct {
	TemperatureC float64 `json:"temperature_c"`
	WindKph      float64 `json:"wind_kph"`
	Condition    string  `json:"condition"`
}

// Neutral is substituted when the provider cannot answer.
func Neutral() Reading {
	return Reading{TemperatureC: 20, WindKph: 5, Condition: "Clear"}
}

// IsSafe reports whether r allows a drone to take off.
func IsSafe(r Reading) bool {
	if r.WindKph > MaxWindKph {
		return false
	}
	_, bad := unsafeConditions[strings.ToLower(strings.TrimSpace(r.Condition))]
	return !bad
}
