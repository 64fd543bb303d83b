package types

import (
	"math"
	"testing"
)

func TestGeographyPointRoundTrip(t *testing.T) {
	point := GeographyPoint{Lat: 12.9716, Lng: 77.5946}

	val, err := point.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	var decoded GeographyPoint
	if err := decoded.Scan(val); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if math.Abs(decoded.Lat-point.Lat) > 1e-6 || math.Abs(decoded.Lng-point.Lng) > 1e-6 {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, point)
	}
}

func TestGeographyPointScanPlainWKT(t *testing.T) {
	var decoded GeographyPoint
	if err := decoded.Scan("POINT(77.5946 12.9716)"); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if decoded.Lng != 77.5946 || decoded.Lat != 12.9716 {
		t.Fatalf("unexpected point %+v", decoded)
	}
}

func TestGeographyPointDistance(t *testing.T) {
	// Bangalore MG Road to Koramangala, roughly 6km apart.
	a := GeographyPoint{Lat: 12.9758, Lng: 77.6045}
	b := GeographyPoint{Lat: 12.9352, Lng: 77.6245}

	got := a.DistanceKm(b)
	if got < 4 || got > 7 {
		t.Fatalf("expected distance near 5km, got %f", got)
	}

	if d := a.DistanceKm(a); d != 0 {
		t.Fatalf("distance to self should be zero, got %f", d)
	}
}
