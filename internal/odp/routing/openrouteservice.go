package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/example/odpfinder/internal/odp/domain"
)

const openRouteServiceURL = "https://api.openrouteservice.org/v2/directions"

// OpenRouteService requests shortest-path GeoJSON directions from the ORS v2 API.
type OpenRouteService struct {
	httpProvider
}

// NewOpenRouteService builds the adapter. An empty apiKey makes every call
// fail fast with ErrProviderUnavailable.
func NewOpenRouteService(apiKey string, opts ...HTTPOption) *OpenRouteService {
	return &OpenRouteService{httpProvider: newHTTPProvider(apiKey, openRouteServiceURL, opts)}
}

func (o *OpenRouteService) Name() string { return "openrouteservice" }

func (o *OpenRouteService) Directions(ctx context.Context, origin, destination domain.Coordinate, profile Profile) (Directions, error) {
	if o.credential == "" {
		return Directions{}, fmt.Errorf("%w: openrouteservice: no api key", ErrProviderUnavailable)
	}

	body, err := json.Marshal(orsRequest{
		Coordinates: [][2]float64{
			{origin.Lng, origin.Lat},
			{destination.Lng, destination.Lat},
		},
		Preference:   "shortest",
		Instructions: false,
		Geometry:     true,
	})
	if err != nil {
		return Directions{}, fmt.Errorf("%w: openrouteservice: marshal request: %w", ErrProviderError, err)
	}

	endpoint := fmt.Sprintf("%s/%s/geojson", o.baseURL, orsProfile(profile))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Directions{}, fmt.Errorf("%w: openrouteservice: create request: %w", ErrProviderError, err)
	}
	req.Header.Set("Authorization", o.credential)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/geo+json")

	raw, err := o.do(req, o.Name())
	if err != nil {
		return Directions{}, err
	}

	var resp orsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Directions{}, fmt.Errorf("%w: openrouteservice: unmarshal response: %w", ErrProviderError, err)
	}
	if len(resp.Features) == 0 {
		return Directions{}, fmt.Errorf("%w: openrouteservice: no routes returned", ErrProviderError)
	}

	feature := resp.Features[0]
	polyline, err := lngLatPairs(feature.Geometry.Coordinates)
	if err != nil {
		return Directions{}, fmt.Errorf("%w: openrouteservice: geometry: %w", ErrProviderError, err)
	}
	return Directions{
		DistanceMeters: feature.Properties.Summary.Distance,
		Polyline:       polyline,
	}, nil
}

func orsProfile(p Profile) string {
	switch p {
	case ProfileWalking:
		return "foot-walking"
	case ProfileCycling:
		return "cycling-regular"
	default:
		return "driving-car"
	}
}

// --- JSON types for the ORS v2 directions API ---

type orsRequest struct {
	Coordinates  [][2]float64 `json:"coordinates"`
	Preference   string       `json:"preference"`
	Instructions bool         `json:"instructions"`
	Geometry     bool         `json:"geometry"`
}

type orsResponse struct {
	Features []orsFeature `json:"features"`
}

type orsFeature struct {
	Geometry struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
	} `json:"properties"`
}
