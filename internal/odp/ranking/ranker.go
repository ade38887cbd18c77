// Package ranking merges proximity candidates with their resolved routes and
// orders them for presentation.
package ranking

import (
	"sort"
	"strings"

	"github.com/example/odpfinder/internal/odp/domain"
)

// CategoryAttribute is the point attribute holding the ODP occupancy colour.
const CategoryAttribute = "KATEGORI ODP"

// Merge pairs candidates[i] with routes[i] and sorts the result ascending by
// display distance. A missing or invalid route falls back to the aerial
// distance scaled by inflation. Ties keep the candidate order.
func Merge(candidates []domain.Candidate, routes []*domain.RouteResult, inflation float64) []domain.RankedResult {
	if inflation <= 0 {
		inflation = domain.RoadInflationFactor
	}
	out := make([]domain.RankedResult, 0, len(candidates))
	for i, c := range candidates {
		var route *domain.RouteResult
		if i < len(routes) {
			route = routes[i]
		}
		out = append(out, rank(c, route, inflation))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DisplayDistanceMeters < out[j].DisplayDistanceMeters
	})
	return out
}

// MergeValues is Merge for a dense slice of route results, as returned by
// routing.Resolver.ResolveMany.
func MergeValues(candidates []domain.Candidate, routes []domain.RouteResult, inflation float64) []domain.RankedResult {
	ptrs := make([]*domain.RouteResult, len(routes))
	for i := range routes {
		ptrs[i] = &routes[i]
	}
	return Merge(candidates, ptrs, inflation)
}

func rank(c domain.Candidate, route *domain.RouteResult, inflation float64) domain.RankedResult {
	r := domain.RankedResult{Candidate: c}
	if route != nil {
		cp := *route
		cp.Polyline = append([]domain.Coordinate(nil), route.Polyline...)
		r.Route = &cp
	}
	if route != nil && route.Valid {
		r.DisplayDistanceMeters = route.DistanceMeters
		r.DistanceKind = domain.DistanceRoute
		return r
	}
	r.DisplayDistanceMeters = c.AerialDistanceMeters * inflation
	r.DistanceKind = domain.DistanceEstimate
	return r
}

type Marker string

const (
	MarkerGreen   Marker = "green"
	MarkerYellow  Marker = "yellow"
	MarkerRed     Marker = "red"
	MarkerBlack   Marker = "black"
	MarkerBlue    Marker = "blue"
	MarkerUnknown Marker = "unknown"
)

var markers = map[string]Marker{
	"HIJAU":  MarkerGreen,
	"GREEN":  MarkerGreen,
	"KUNING": MarkerYellow,
	"YELLOW": MarkerYellow,
	"MERAH":  MarkerRed,
	"RED":    MarkerRed,
	"HITAM":  MarkerBlack,
	"BLACK":  MarkerBlack,
	"BIRU":   MarkerBlue,
	"BLUE":   MarkerBlue,
}

// Category normalises the occupancy colour of p.
func Category(p domain.Point) Marker {
	v := strings.ToUpper(strings.TrimSpace(p.Attr(CategoryAttribute)))
	if m, ok := markers[v]; ok {
		return m
	}
	return MarkerUnknown
}
