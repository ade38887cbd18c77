package search_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/geo"
	"github.com/example/odpfinder/internal/odp/proximity"
	"github.com/example/odpfinder/internal/odp/routing"
	"github.com/example/odpfinder/internal/odp/search"
)

var origin = domain.Coordinate{Lat: -3.292481, Lng: 114.592482}

type fakeResolver struct {
	mu    sync.Mutex
	calls int
	fn    func(d domain.Coordinate) domain.RouteResult
}

func (f *fakeResolver) ResolveMany(_ context.Context, _ domain.Coordinate, dests []domain.Coordinate) []domain.RouteResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	out := make([]domain.RouteResult, len(dests))
	for i, d := range dests {
		out[i] = f.fn(d)
	}
	return out
}

type recordingPublisher struct {
	events []domain.SearchEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e domain.SearchEvent) error {
	r.events = append(r.events, e)
	return r.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func dataset() []domain.Point {
	distances := []float64{10, 100, 249, 251, 400}
	avai := []string{"0", "3", "", "x", "7"}
	points := make([]domain.Point, 0, len(distances))
	for i, d := range distances {
		points = append(points, domain.Point{
			ID:         []string{"A", "B", "C", "D", "E"}[i],
			Coordinate: geo.Destination(origin, float64(i*72), d),
			Attributes: map[string]string{search.AvailabilityAttribute: avai[i]},
		})
	}
	return points
}

func ids(results []domain.RankedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestSearchRanksByRouteDistance(t *testing.T) {
	// route lengths reverse the aerial order
	routeLen := map[string]float64{"A": 900, "B": 300, "C": 500, "D": 260}
	points := dataset()
	byCoord := make(map[domain.Coordinate]string)
	for _, p := range points {
		byCoord[p.Coordinate] = p.ID
	}
	resolver := &fakeResolver{fn: func(d domain.Coordinate) domain.RouteResult {
		return domain.RouteResult{DistanceMeters: routeLen[byCoord[d]], Source: domain.SourcePrimary, Valid: true}
	}}
	events := &recordingPublisher{}
	svc := search.New(resolver, events, fixedClock{time.Unix(1_700_000_000, 0)}, nil, search.Config{})

	got, err := svc.Search(context.Background(), points, domain.NewQuery(origin, 250))
	require.NoError(t, err)
	require.Equal(t, []string{"D", "B", "C", "A"}, ids(got))
	require.Equal(t, 1, resolver.calls)
	for _, r := range got {
		require.Equal(t, domain.DistanceRoute, r.DistanceKind)
	}

	require.Len(t, events.events, 1)
	ev := events.events[0]
	require.Equal(t, domain.EventSearchCompleted, ev.Type)
	require.Equal(t, 4, ev.Results)
	require.Equal(t, 4, ev.Sources[domain.SourcePrimary])
}

func TestSearchAerialOnlySkipsResolver(t *testing.T) {
	resolver := &fakeResolver{fn: func(domain.Coordinate) domain.RouteResult {
		t.Fatal("resolver must not be called")
		return domain.RouteResult{}
	}}
	svc := search.New(resolver, nil, nil, nil, search.Config{})
	q := domain.NewQuery(origin, 250)
	q.UseRouteDistance = false

	got, err := svc.Search(context.Background(), dataset(), q)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C", "D"}, ids(got))
	for _, r := range got {
		require.Nil(t, r.Route)
		require.InDelta(t, r.AerialDistanceMeters*domain.RoadInflationFactor, r.DisplayDistanceMeters, 1e-9)
	}
}

func TestSearchInvalidQuery(t *testing.T) {
	svc := search.New(nil, nil, nil, nil, search.Config{MaxRadiusMeters: 5000})
	cases := map[string]domain.SearchQuery{
		"zero radius":     domain.NewQuery(origin, 0),
		"negative radius": domain.NewQuery(origin, -10),
		"bad origin":      domain.NewQuery(domain.Coordinate{Lat: 91, Lng: 0}, 100),
		"too large":       domain.NewQuery(origin, 6000),
	}
	for name, q := range cases {
		_, err := svc.Search(context.Background(), dataset(), q)
		require.ErrorIs(t, err, domain.ErrInvalidQuery, name)
	}
}

func TestSearchNoCandidatesIsEmptyNotError(t *testing.T) {
	resolver := &fakeResolver{fn: func(domain.Coordinate) domain.RouteResult { return domain.RouteResult{} }}
	svc := search.New(resolver, nil, nil, nil, search.Config{})

	got, err := svc.Search(context.Background(), dataset(), domain.NewQuery(geo.Destination(origin, 0, 50_000), 250))
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
	require.Zero(t, resolver.calls)
}

func TestSearchOnlyAvailable(t *testing.T) {
	svc := search.New(nil, nil, nil, nil, search.Config{})
	q := domain.NewQuery(origin, 500)
	q.OnlyAvailable = true

	got, err := svc.Search(context.Background(), dataset(), q)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "E"}, ids(got))
}

func TestSearchWithSimulatedResolver(t *testing.T) {
	resolver := routing.NewResolver(nil, nil, nil, routing.Config{})
	svc := search.New(resolver, nil, nil, nil, search.Config{})
	ix := proximity.NewIndex(dataset())

	report, err := svc.Run(context.Background(), ix, domain.NewQuery(origin, 250))
	require.NoError(t, err)
	require.Len(t, report.Results, 4)
	require.Equal(t, 4, report.Sources[domain.SourceSimulated])
	for i, r := range report.Results {
		require.NotNil(t, r.Route)
		require.True(t, r.Route.Valid)
		require.InDelta(t, r.AerialDistanceMeters*1.3, r.DisplayDistanceMeters, 1e-6)
		if i > 0 {
			require.GreaterOrEqual(t, r.DisplayDistanceMeters, report.Results[i-1].DisplayDistanceMeters)
		}
	}
}

func TestSearchSurvivesPublishFailure(t *testing.T) {
	events := &recordingPublisher{err: errors.New("nats down")}
	svc := search.New(nil, events, nil, nil, search.Config{})

	got, err := svc.Search(context.Background(), dataset(), domain.NewQuery(origin, 250))
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Len(t, events.events, 1)
}

func TestSearchIsReproducible(t *testing.T) {
	svc := search.New(routing.NewResolver(nil, nil, nil, routing.Config{}), nil, nil, nil, search.Config{})
	q := domain.NewQuery(origin, 400)

	first, err := svc.Search(context.Background(), dataset(), q)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), dataset(), q)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestAvailable(t *testing.T) {
	cases := map[string]bool{"1": true, " 2 ": true, "0.5": true, "0": false, "-1": false, "n/a": false, "": false}
	for raw, want := range cases {
		p := domain.Point{Attributes: map[string]string{search.AvailabilityAttribute: raw}}
		require.Equal(t, want, search.Available(p), raw)
	}
}
