package routing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/example/odpfinder/internal/odp/domain"
)

const mapboxDirectionsURL = "https://api.mapbox.com/directions/v5/mapbox"

// Mapbox requests full-overview GeoJSON routes from the Mapbox Directions v5 API.
type Mapbox struct {
	httpProvider
}

// NewMapbox builds the adapter. An empty token makes every call fail fast
// with ErrProviderUnavailable.
func NewMapbox(accessToken string, opts ...HTTPOption) *Mapbox {
	return &Mapbox{httpProvider: newHTTPProvider(accessToken, mapboxDirectionsURL, opts)}
}

func (m *Mapbox) Name() string { return "mapbox" }

func (m *Mapbox) Directions(ctx context.Context, origin, destination domain.Coordinate, profile Profile) (Directions, error) {
	if m.credential == "" {
		return Directions{}, fmt.Errorf("%w: mapbox: no access token", ErrProviderUnavailable)
	}

	waypoints := formatLngLat(origin) + ";" + formatLngLat(destination)
	q := url.Values{}
	q.Set("access_token", m.credential)
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	endpoint := fmt.Sprintf("%s/%s/%s?%s", m.baseURL, mapboxProfile(profile), waypoints, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Directions{}, fmt.Errorf("%w: mapbox: create request: %w", ErrProviderError, err)
	}

	raw, err := m.do(req, m.Name())
	if err != nil {
		return Directions{}, err
	}
	if !gjson.ValidBytes(raw) {
		return Directions{}, fmt.Errorf("%w: mapbox: malformed response body", ErrProviderError)
	}

	if code := gjson.GetBytes(raw, "code").String(); code != "" && code != "Ok" {
		return Directions{}, fmt.Errorf("%w: mapbox: response code %s", ErrProviderError, code)
	}
	routes := gjson.GetBytes(raw, "routes").Array()
	if len(routes) == 0 {
		return Directions{}, fmt.Errorf("%w: mapbox: no routes returned", ErrProviderError)
	}

	route := routes[0]
	distance := route.Get("distance")
	if distance.Type != gjson.Number {
		return Directions{}, fmt.Errorf("%w: mapbox: route without numeric distance", ErrProviderError)
	}

	positions := route.Get("geometry.coordinates").Array()
	polyline := make([]domain.Coordinate, 0, len(positions))
	for i, pos := range positions {
		pair := pos.Array()
		if len(pair) < 2 {
			return Directions{}, fmt.Errorf("%w: mapbox: position %d has %d components", ErrProviderError, i, len(pair))
		}
		polyline = append(polyline, domain.Coordinate{Lat: pair[1].Float(), Lng: pair[0].Float()})
	}

	return Directions{DistanceMeters: distance.Float(), Polyline: polyline}, nil
}

func mapboxProfile(p Profile) string {
	switch p {
	case ProfileWalking:
		return "walking"
	case ProfileCycling:
		return "cycling"
	default:
		return "driving"
	}
}

func formatLngLat(c domain.Coordinate) string {
	return strconv.FormatFloat(c.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}
