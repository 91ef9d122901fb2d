package geo

import "testing"

func TestDistanceKm_ZeroAndSymmetric(t *testing.T) {
	pairs := [][4]float64{
		{44.4268, 26.1025, 46.7712, 23.6236},
		{0, 0, 0, 90},
		{-33.86, 151.21, 51.5, -0.12},
		{10, 20, 10, 20},
	}
	for _, p := range pairs {
		if d := DistanceKm(p[0], p[1], p[0], p[1]); d != 0 {
			t.Fatalf("distance(a,a)=%v want 0", d)
		}
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		if ab != ba {
			t.Fatalf("asymmetric: %v vs %v for %v", ab, ba, p)
		}
	}
}

func TestDistanceKm_KnownValues(t *testing.T) {
	// Quarter of the equator.
	if got := DistanceKm(0, 0, 0, 90); got != 10007.54 {
		t.Fatalf("equator quarter=%v want 10007.54", got)
	}
	// Bucharest to Cluj-Napoca is roughly 324 km.
	got := DistanceKm(44.4268, 26.1025, 46.7712, 23.6236)
	if got < 320 || got > 330 {
		t.Fatalf("Bucharest-Cluj=%v, expected ~324", got)
	}
	if got != Round2(got) {
		t.Fatalf("distance not rounded to 2 decimals: %v", got)
	}
}

func TestPointValidate(t *testing.T) {
	if err := (Point{Lat: 45, Lng: 25}).Validate(); err != nil {
		t.Fatalf("valid point rejected: %v", err)
	}
	for _, p := range []Point{{Lat: 91}, {Lat: -90.5}, {Lng: 181}, {Lng: -200}} {
		if err := p.Validate(); err == nil {
			t.Fatalf("expected error for %+v", p)
		}
	}
}
