package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters_OneDegreeOfLongitudeAtEquator(t *testing.T) {
	d := DistanceMeters(0, 0, 0, 1)
	assert.InDelta(t, 111195.0, d, 111195.0*0.01)
}

func TestDistanceMeters_SamePointIsZero(t *testing.T) {
	points := [][2]float64{{0, 0}, {41.0082, 28.9784}, {-33.8688, 151.2093}, {89.9, -179.9}}
	for _, p := range points {
		assert.Equal(t, 0.0, DistanceMeters(p[0], p[1], p[0], p[1]))
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
	}{
		{"istanbul-ankara", 41.0082, 28.9784, 39.9334, 32.8597},
		{"across antimeridian", 10, 179.5, 10, -179.5},
		{"pole to equator", 90, 0, 0, 0},
		{"a few meters", 41.00820, 28.97840, 41.00822, 28.97843},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab := DistanceMeters(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			ba := DistanceMeters(tt.lat2, tt.lng2, tt.lat1, tt.lng1)
			assert.InDelta(t, ab, ba, 1e-6)
			assert.Greater(t, ab, 0.0)
		})
	}
}

func TestDistanceMeters_NaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(DistanceMeters(math.NaN(), 0, 0, 0)))
}
