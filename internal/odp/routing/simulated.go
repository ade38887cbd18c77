package routing

import (
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/geo"
)

const (
	simulatedSegments = 8
	// simulatedNoiseDegrees is the largest bend applied to a synthetic vertex
	// once the straight line reaches simulatedFullNoiseMeters.
	simulatedNoiseDegrees    = 1.0 / 400
	simulatedFullNoiseMeters = 1000.0
)

// Simulate produces the never-failing estimate: the aerial distance scaled by
// inflation and a bent polyline through points near 30% and 70% of the
// straight path. Vertex offsets come from a hash of the rounded pair, so the
// same pair always yields the same path.
func Simulate(origin, destination domain.Coordinate, inflation float64) domain.RouteResult {
	straight := geo.Distance(origin, destination)
	noiseScale := math.Min(straight/simulatedFullNoiseMeters, 1.0)

	bendA := geo.Lerp(origin, destination, 0.3)
	bendB := geo.Lerp(origin, destination, 0.7)
	half := simulatedSegments / 2

	polyline := make([]domain.Coordinate, 0, simulatedSegments+1)
	polyline = append(polyline, origin)
	for i := 1; i < simulatedSegments; i++ {
		var base domain.Coordinate
		if i < half {
			base = geo.Lerp(origin, bendA, float64(i)/float64(half))
		} else {
			base = geo.Lerp(bendB, destination, float64(i-half)/float64(half))
		}
		seed := vertexSeed(origin, destination, i)
		latNoise := (float64(seed%11)-5)/5 * simulatedNoiseDegrees * noiseScale
		lngNoise := (float64((seed>>32)%15)-7)/7 * simulatedNoiseDegrees * noiseScale
		polyline = append(polyline, domain.Coordinate{Lat: base.Lat + latNoise, Lng: base.Lng + lngNoise})
	}
	polyline = append(polyline, destination)

	return domain.RouteResult{
		DistanceMeters: straight * inflation,
		Polyline:       polyline,
		Source:         domain.SourceSimulated,
		Valid:          true,
	}
}

func vertexSeed(origin, destination domain.Coordinate, vertex int) uint64 {
	buf := make([]byte, 0, 96)
	for _, v := range []float64{origin.Lat, origin.Lng, destination.Lat, destination.Lng} {
		buf = strconv.AppendFloat(buf, v, 'f', cacheKeyPrecision, 64)
		buf = append(buf, '|')
	}
	buf = strconv.AppendInt(buf, int64(vertex), 10)
	return xxhash.Sum64(buf)
}
