package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Coordinate
		expected float64
		delta    float64
	}{
		{
			name:     "same point",
			a:        Coordinate{Latitude: 3.139, Longitude: 101.6869},
			b:        Coordinate{Latitude: 3.139, Longitude: 101.6869},
			expected: 0,
			delta:    1e-9,
		},
		{
			name:     "one hundredth degree of longitude at equator",
			a:        Coordinate{Latitude: 0, Longitude: 0},
			b:        Coordinate{Latitude: 0, Longitude: 0.01},
			expected: 1.112,
			delta:    0.01,
		},
		{
			name:     "KL city centre to KLCC",
			a:        Coordinate{Latitude: 3.139, Longitude: 101.6869},
			b:        Coordinate{Latitude: 3.1579, Longitude: 101.7123},
			expected: 3.52,
			delta:    0.1,
		},
		{
			name:     "antipodal points are half the circumference",
			a:        Coordinate{Latitude: 0, Longitude: 0},
			b:        Coordinate{Latitude: 0, Longitude: 180},
			expected: math.Pi * 6371.0,
			delta:    0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, DistanceKm(tt.a, tt.b), tt.delta)
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := Coordinate{Latitude: 3.139, Longitude: 101.6869}
	b := Coordinate{Latitude: 3.15, Longitude: 101.71}
	assert.Equal(t, DistanceKm(a, b), DistanceKm(b, a))
}

func TestDistanceKm_NaNPropagates(t *testing.T) {
	a := Coordinate{Latitude: math.NaN(), Longitude: 0}
	b := Coordinate{Latitude: 0, Longitude: 0}
	assert.True(t, math.IsNaN(DistanceKm(a, b)))
}

func TestCoordinateValid(t *testing.T) {
	tests := []struct {
		name  string
		coord Coordinate
		valid bool
	}{
		{"origin", Coordinate{0, 0}, true},
		{"extreme corners", Coordinate{-90, 180}, true},
		{"latitude too high", Coordinate{90.001, 0}, false},
		{"longitude too low", Coordinate{0, -180.5}, false},
		{"nan latitude", Coordinate{math.NaN(), 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.coord.Valid())
		})
	}
}
