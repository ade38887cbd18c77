package geo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/geo"
)

var banjarmasin = domain.Coordinate{Lat: -3.292481, Lng: 114.592482}

func TestDistanceSymmetricAndZero(t *testing.T) {
	pairs := []domain.Coordinate{
		{Lat: -3.3, Lng: 114.6},
		{Lat: 35.7, Lng: 51.4},
		{Lat: 89.9, Lng: -179.9},
		{Lat: -45, Lng: 170},
	}
	for _, a := range pairs {
		require.Zero(t, geo.Distance(a, a))
		for _, b := range pairs {
			require.Equal(t, geo.Distance(a, b), geo.Distance(b, a))
		}
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// one degree of latitude on the mean sphere
	d := geo.Distance(domain.Coordinate{Lat: 0, Lng: 0}, domain.Coordinate{Lat: 1, Lng: 0})
	require.InDelta(t, 111194.9, d, 0.5)
}

func TestDestinationRoundTrip(t *testing.T) {
	for _, bearing := range []float64{0, 45, 90, 180, 270, 333} {
		for _, meters := range []float64{10, 251, 1000, 25000} {
			p := geo.Destination(banjarmasin, bearing, meters)
			require.InDelta(t, meters, geo.Distance(banjarmasin, p), 1e-6*meters+1e-6)
		}
	}
}

func TestMeterDegreeConversions(t *testing.T) {
	require.InDelta(t, 1.0, geo.MetersToLatDegrees(111194.93), 1e-6)
	require.InDelta(t, 2.0, geo.MetersToLngDegrees(111194.93, 60), 1e-6)
	require.Equal(t, 360.0, geo.MetersToLngDegrees(10, 90))
}

func TestLerp(t *testing.T) {
	a := domain.Coordinate{Lat: 0, Lng: 0}
	b := domain.Coordinate{Lat: 10, Lng: 20}
	require.Equal(t, a, geo.Lerp(a, b, 0))
	require.Equal(t, b, geo.Lerp(a, b, 1))
	mid := geo.Lerp(a, b, 0.3)
	require.InDelta(t, 3.0, mid.Lat, 1e-12)
	require.InDelta(t, 6.0, mid.Lng, 1e-12)
}
