package geo

import (
	"math"
	"testing"
)

func TestDistanceKmIdenticalPointsIsZero(t *testing.T) {
	points := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 28.6139, Lng: 77.2090},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 90, Lng: 180},
	}
	for _, p := range points {
		if d := p.DistanceKm(p); d != 0 {
			t.Fatalf("expected zero distance for %+v, got %v", p, d)
		}
	}
}

func TestDistanceKmIsSymmetric(t *testing.T) {
	pairs := [][2]Point{
		{{Lat: 28.6139, Lng: 77.2090}, {Lat: 19.0760, Lng: 72.8777}},
		{{Lat: -12.5, Lng: 130.1}, {Lat: 51.5, Lng: -0.12}},
		{{Lat: 0, Lng: 179.9}, {Lat: 0, Lng: -179.9}},
	}
	for _, pair := range pairs {
		ab := pair[0].DistanceKm(pair[1])
		ba := pair[1].DistanceKm(pair[0])
		if ab != ba {
			t.Fatalf("expected symmetric distance, got %v and %v", ab, ba)
		}
	}
}

func TestDistanceKmKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{name: "one degree on equator", a: Point{0, 0}, b: Point{0, 1}, want: 111.195, tol: 0.01},
		{name: "delhi to mumbai", a: Point{28.6139, 77.2090}, b: Point{19.0760, 72.8777}, want: 1148.09, tol: 0.5},
		{name: "across antimeridian", a: Point{0, 179.5}, b: Point{0, -179.5}, want: 111.195, tol: 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.DistanceKm(tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Fatalf("expected %v±%v, got %v", tt.want, tt.tol, got)
			}
		})
	}
}

func TestDistanceKmMonotonicWithSeparation(t *testing.T) {
	origin := Point{Lat: 12.9716, Lng: 77.5946}
	prev := 0.0
	for step := 1; step <= 10; step++ {
		next := Point{Lat: origin.Lat + float64(step)*0.01, Lng: origin.Lng}
		d := origin.DistanceKm(next)
		if d <= prev {
			t.Fatalf("expected distance to grow at step %d: %v <= %v", step, d, prev)
		}
		prev = d
	}
}

func TestDistanceKmPropagatesNaN(t *testing.T) {
	if d := DistanceKm(math.NaN(), 0, 0, 0); !math.IsNaN(d) {
		t.Fatalf("expected NaN, got %v", d)
	}
}

func TestPointValid(t *testing.T) {
	valid := []Point{{0, 0}, {-90, -180}, {90, 180}, {12.97, 77.59}}
	for _, p := range valid {
		if !p.Valid() {
			t.Fatalf("expected %+v to be valid", p)
		}
	}
	invalid := []Point{{91, 0}, {0, 181}, {math.NaN(), 0}, {0, math.Inf(1)}}
	for _, p := range invalid {
		if p.Valid() {
			t.Fatalf("expected %+v to be invalid", p)
		}
	}
}
