package ranking_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/ranking"
)

func candidate(id string, aerial float64) domain.Candidate {
	return domain.Candidate{Point: domain.Point{ID: id}, AerialDistanceMeters: aerial}
}

func route(d float64, source domain.SourceKind) *domain.RouteResult {
	return &domain.RouteResult{DistanceMeters: d, Source: source, Valid: true}
}

func resultIDs(results []domain.RankedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestMergeUsesRouteDistanceWhenValid(t *testing.T) {
	cands := []domain.Candidate{candidate("a", 100), candidate("b", 50), candidate("c", 80)}
	routes := []*domain.RouteResult{
		route(120, domain.SourcePrimary),
		route(400, domain.SourceSecondary),
		route(104, domain.SourceSimulated),
	}

	got := ranking.Merge(cands, routes, domain.RoadInflationFactor)
	require.Equal(t, []string{"c", "a", "b"}, resultIDs(got))
	require.Equal(t, 104.0, got[0].DisplayDistanceMeters)
	require.Equal(t, domain.DistanceRoute, got[0].DistanceKind)
	require.Equal(t, domain.SourceSimulated, got[0].Route.Source)
}

func TestMergeSubstitutesInvalidOrMissingRoutes(t *testing.T) {
	cands := []domain.Candidate{candidate("a", 100), candidate("b", 10), candidate("c", 20)}
	routes := []*domain.RouteResult{
		{DistanceMeters: 1, Valid: false},
		nil,
	}

	got := ranking.Merge(cands, routes, domain.RoadInflationFactor)
	require.Equal(t, []string{"b", "c", "a"}, resultIDs(got))
	for _, r := range got {
		require.InDelta(t, r.AerialDistanceMeters*1.3, r.DisplayDistanceMeters, 1e-9)
		require.Equal(t, domain.DistanceEstimate, r.DistanceKind)
	}
	require.NotNil(t, got[2].Route)
	require.False(t, got[2].Route.Valid)
	require.Nil(t, got[0].Route)
}

func TestMergeAerialOnly(t *testing.T) {
	got := ranking.Merge([]domain.Candidate{candidate("x", 200), candidate("y", 100)}, nil, 0)
	require.Equal(t, []string{"y", "x"}, resultIDs(got))
	require.InDelta(t, 130.0, got[0].DisplayDistanceMeters, 1e-9)
}

func TestMergeStableTies(t *testing.T) {
	cands := []domain.Candidate{candidate("first", 50), candidate("second", 50), candidate("third", 10), candidate("fourth", 50)}
	first := ranking.Merge(cands, nil, domain.RoadInflationFactor)
	second := ranking.Merge(cands, nil, domain.RoadInflationFactor)
	require.Equal(t, []string{"third", "first", "second", "fourth"}, resultIDs(first))
	require.Equal(t, first, second)
}

func TestMergeDoesNotAliasRoutes(t *testing.T) {
	r := route(10, domain.SourcePrimary)
	r.Polyline = []domain.Coordinate{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}
	got := ranking.Merge([]domain.Candidate{candidate("a", 5)}, []*domain.RouteResult{r}, domain.RoadInflationFactor)
	r.DistanceMeters = 999
	r.Polyline[0] = domain.Coordinate{}
	require.Equal(t, 10.0, got[0].Route.DistanceMeters)
	require.Equal(t, domain.Coordinate{Lat: 1, Lng: 2}, got[0].Route.Polyline[0])
}

func TestMergeValues(t *testing.T) {
	cands := []domain.Candidate{candidate("a", 100), candidate("b", 100)}
	routes := []domain.RouteResult{*route(300, domain.SourcePrimary), *route(200, domain.SourceSecondary)}
	got := ranking.MergeValues(cands, routes, domain.RoadInflationFactor)
	require.Equal(t, []string{"b", "a"}, resultIDs(got))
}

func TestMergeEmpty(t *testing.T) {
	got := ranking.Merge(nil, nil, domain.RoadInflationFactor)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestCategory(t *testing.T) {
	cases := map[string]ranking.Marker{
		"HIJAU":   ranking.MarkerGreen,
		" kuning": ranking.MarkerYellow,
		"Merah":   ranking.MarkerRed,
		"HITAM":   ranking.MarkerBlack,
		"biru":    ranking.MarkerBlue,
		"ungu":    ranking.MarkerUnknown,
		"":        ranking.MarkerUnknown,
	}
	for raw, want := range cases {
		p := domain.Point{Attributes: map[string]string{ranking.CategoryAttribute: raw}}
		require.Equal(t, want, ranking.Category(p), raw)
	}
	require.Equal(t, ranking.MarkerUnknown, ranking.Category(domain.Point{}))
}
