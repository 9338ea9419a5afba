package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters_IdenticalCoordinates(t *testing.T) {
	t.Parallel()

	assert.Zero(t, DistanceMeters(28.6139, 77.2090, 28.6139, 77.2090))
	assert.Zero(t, DistanceMeters(0, 0, 0, 0))
	assert.Zero(t, DistanceMeters(-90, 180, -90, 180))
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	t.Parallel()

	d1 := DistanceMeters(28.6139, 77.2090, 19.0760, 72.8777)
	d2 := DistanceMeters(19.0760, 72.8777, 28.6139, 77.2090)
	assert.InDelta(t, d1, d2, 1e-6)
}

func TestDistanceMeters_KnownDistances(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		expected               float64
		tolerance              float64
	}{
		{
			// One degree of latitude is about 111.2 km on a 6371 km sphere.
			name: "one degree latitude",
			lat1: 0, lon1: 0, lat2: 1, lon2: 0,
			expected:  111195,
			tolerance: 200,
		},
		{
			// 0.009 degrees latitude is very close to 1 km.
			name: "about one kilometer",
			lat1: 28.6139, lon1: 77.2090, lat2: 28.6229, lon2: 77.2090,
			expected:  1000,
			tolerance: 10,
		},
		{
			name: "delhi to mumbai",
			lat1: 28.6139, lon1: 77.2090, lat2: 19.0760, lon2: 72.8777,
			expected:  1153000,
			tolerance: 10000,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DistanceMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, got, tt.tolerance)
		})
	}
}

func TestDistanceMeters_ShortRange(t *testing.T) {
	t.Parallel()

	// About 11 meters of latitude, the scale of a geofence boundary check.
	d := DistanceMeters(28.61390, 77.20900, 28.61400, 77.20900)
	assert.InDelta(t, 11.1, d, 0.5)
}
