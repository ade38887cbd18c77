package routing_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/routing"
)

var dest = domain.Coordinate{Lat: -3.290001, Lng: 114.594002}

const orsBody = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {"summary": {"distance": 412.7, "duration": 61.2}},
    "geometry": {"type": "LineString", "coordinates": [[114.592482, -3.292481], [114.5931, -3.2911], [114.594002, -3.290001]]}
  }]
}`

const mapboxBody = `{
  "code": "Ok",
  "routes": [{
    "distance": 388.4,
    "duration": 55.0,
    "geometry": {"type": "LineString", "coordinates": [[114.592482, -3.292481], [114.594002, -3.290001]]}
  }],
  "waypoints": []
}`

func TestOpenRouteServiceDirections(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(orsBody))
	}))
	defer srv.Close()

	ors := routing.NewOpenRouteService("ors-key", routing.WithBaseURL(srv.URL))
	dir, err := ors.Directions(context.Background(), origin, dest, routing.ProfileDriving)
	require.NoError(t, err)
	require.Equal(t, "/driving-car/geojson", gotPath)
	require.Equal(t, "ors-key", gotAuth)
	require.Equal(t, "shortest", gotBody["preference"])
	require.Equal(t, []any{
		[]any{114.592482, -3.292481},
		[]any{114.594002, -3.290001},
	}, gotBody["coordinates"])
	require.Equal(t, 412.7, dir.DistanceMeters)
	require.Len(t, dir.Polyline, 3)
	require.Equal(t, origin, dir.Polyline[0])
	require.Equal(t, dest, dir.Polyline[2])
}

func TestOpenRouteServiceFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"quota"}`, http.StatusForbidden)
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
		},
		"garbage": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
		"bad position": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[[1]]},"properties":{"summary":{"distance":3}}}]}`))
		},
	}
	for name, h := range cases {
		h := h
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := routing.NewOpenRouteService("k", routing.WithBaseURL(srv.URL)).
				Directions(context.Background(), origin, dest, routing.ProfileDriving)
			require.ErrorIs(t, err, routing.ErrProviderError)
		})
	}
}

func TestProvidersWithoutCredentialsAreUnavailable(t *testing.T) {
	_, err := routing.NewOpenRouteService("").Directions(context.Background(), origin, dest, routing.ProfileDriving)
	require.ErrorIs(t, err, routing.ErrProviderUnavailable)
	_, err = routing.NewMapbox("").Directions(context.Background(), origin, dest, routing.ProfileDriving)
	require.ErrorIs(t, err, routing.ErrProviderUnavailable)
}

func TestMapboxDirections(t *testing.T) {
	var gotPath, gotToken, gotGeometries string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		gotGeometries = r.URL.Query().Get("geometries")
		_, _ = w.Write([]byte(mapboxBody))
	}))
	defer srv.Close()

	mb := routing.NewMapbox("pk.test", routing.WithBaseURL(srv.URL))
	dir, err := mb.Directions(context.Background(), origin, dest, routing.ProfileDriving)
	require.NoError(t, err)
	require.Equal(t, "/driving/114.592482,-3.292481;114.594002,-3.290001", gotPath)
	require.Equal(t, "pk.test", gotToken)
	require.Equal(t, "geojson", gotGeometries)
	require.Equal(t, 388.4, dir.DistanceMeters)
	require.Equal(t, []domain.Coordinate{origin, dest}, dir.Polyline)
}

func TestMapboxFailures(t *testing.T) {
	cases := map[string]string{
		"no route code": `{"code":"NoRoute","routes":[]}`,
		"no routes":     `{"code":"Ok","routes":[]}`,
		"no distance":   `{"code":"Ok","routes":[{"geometry":{"coordinates":[[1,2],[3,4]]}}]}`,
		"invalid json":  `{"code":`,
	}
	for name, body := range cases {
		body := body
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()
			_, err := routing.NewMapbox("pk", routing.WithBaseURL(srv.URL)).
				Directions(context.Background(), origin, dest, routing.ProfileDriving)
			require.ErrorIs(t, err, routing.ErrProviderError)
		})
	}
}

func TestProviderHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := routing.NewMapbox("pk", routing.WithBaseURL(srv.URL)).Directions(ctx, origin, dest, routing.ProfileDriving)
	require.ErrorIs(t, err, routing.ErrProviderError)
	require.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"))
}

func TestMapboxTransportErrorOmitsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := routing.NewMapbox("SECRET-TOKEN-123", routing.WithBaseURL(srv.URL)).
		Directions(ctx, origin, dest, routing.ProfileDriving)
	require.ErrorIs(t, err, routing.ErrProviderError)
	require.NotContains(t, err.Error(), "SECRET-TOKEN-123")
	require.NotContains(t, err.Error(), "access_token")
	require.Contains(t, err.Error(), "/driving/")
}

func TestResolverUsesHTTPProvidersInOrder(t *testing.T) {
	orsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer orsSrv.Close()
	mbSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(mapboxBody))
	}))
	defer mbSrv.Close()

	r := routing.NewResolver([]routing.Provider{
		routing.NewOpenRouteService("k", routing.WithBaseURL(orsSrv.URL)),
		routing.NewMapbox("pk", routing.WithBaseURL(mbSrv.URL)),
	}, nil, nil, routing.Config{})

	res := r.Resolve(context.Background(), origin, dest)
	require.Equal(t, domain.SourceSecondary, res.Source)
	require.Equal(t, 388.4, res.DistanceMeters)
}
