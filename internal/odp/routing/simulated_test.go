package routing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/geo"
	"github.com/example/odpfinder/internal/odp/routing"
)

func TestSimulateShape(t *testing.T) {
	dest := geo.Destination(origin, 60, 2500)
	res := routing.Simulate(origin, dest, domain.RoadInflationFactor)

	require.True(t, res.Valid)
	require.Equal(t, domain.SourceSimulated, res.Source)
	require.InDelta(t, geo.Distance(origin, dest)*1.3, res.DistanceMeters, 1e-9)
	require.Len(t, res.Polyline, 9)
	require.Equal(t, origin, res.Polyline[0])
	require.Equal(t, dest, res.Polyline[8])

	// offsets never exceed the bend budget of 1/400 degree per axis
	for i, p := range res.Polyline[1:8] {
		var base domain.Coordinate
		if i+1 < 4 {
			base = geo.Lerp(origin, geo.Lerp(origin, dest, 0.3), float64(i+1)/4)
		} else {
			base = geo.Lerp(geo.Lerp(origin, dest, 0.7), dest, float64(i+1-4)/4)
		}
		require.LessOrEqual(t, abs(p.Lat-base.Lat), 1.0/400+1e-12)
		require.LessOrEqual(t, abs(p.Lng-base.Lng), 1.0/400+1e-12)
	}
}

func TestSimulateCoincidentPoints(t *testing.T) {
	res := routing.Simulate(origin, origin, domain.RoadInflationFactor)
	require.True(t, res.Valid)
	require.Zero(t, res.DistanceMeters)
	for _, p := range res.Polyline {
		require.Equal(t, origin, p)
	}
}

func TestSimulateDependsOnPair(t *testing.T) {
	a := routing.Simulate(origin, geo.Destination(origin, 10, 800), 1.3)
	b := routing.Simulate(origin, geo.Destination(origin, 10, 800), 1.3)
	c := routing.Simulate(origin, geo.Destination(origin, 190, 800), 1.3)
	require.Equal(t, a, b)
	require.NotEqual(t, a.Polyline, c.Polyline)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
