package proximity

import (
	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/geo"
)

// Filter returns every point whose aerial distance to origin is within
// radiusMeters+marginMeters, tagged with that distance. Points with invalid
// coordinates are skipped. Output order follows input order.
func Filter(points []domain.Point, origin domain.Coordinate, radiusMeters, marginMeters float64) []domain.Candidate {
	limit := radiusMeters + marginMeters
	out := make([]domain.Candidate, 0)
	if !origin.Valid() {
		return out
	}
	for _, p := range points {
		if !p.Coordinate.Valid() {
			continue
		}
		d := geo.Distance(origin, p.Coordinate)
		if d <= limit {
			out = append(out, domain.Candidate{Point: p, AerialDistanceMeters: d})
		}
	}
	return out
}
