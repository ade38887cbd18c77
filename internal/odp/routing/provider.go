package routing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/example/odpfinder/internal/odp/domain"
)

const (
	// DefaultProviderTimeout bounds each external directions call.
	DefaultProviderTimeout = 5 * time.Second

	httpMaxIdleConns    = 10
	httpIdleConnTimeout = 30 * time.Second
	maxResponseBytes    = 4 << 20
	maxErrorBodyBytes   = 256
)

var (
	// ErrProviderUnavailable means the provider has no credential configured.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrProviderError covers transport, status, parse and empty-route failures.
	ErrProviderError = errors.New("routing provider error")
)

// Profile selects the travel mode requested from a provider.
type Profile string

const (
	ProfileDriving Profile = "driving"
	ProfileWalking Profile = "walking"
	ProfileCycling Profile = "cycling"
)

// Directions is the provider-neutral answer of a directions request.
type Directions struct {
	DistanceMeters float64
	Polyline       []domain.Coordinate
}

// Provider is a routing backend adapter. Implementations must honour ctx
// cancellation and return errors wrapping ErrProviderUnavailable or ErrProviderError.
type Provider interface {
	Name() string
	Directions(ctx context.Context, origin, destination domain.Coordinate, profile Profile) (Directions, error)
}

// HTTPOption customises the HTTP-backed provider adapters.
type HTTPOption func(*httpProvider)

// WithBaseURL overrides the provider endpoint, mainly for tests.
func WithBaseURL(u string) HTTPOption {
	return func(p *httpProvider) { p.baseURL = u }
}

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *httpProvider) {
		if c != nil {
			p.client = c
		}
	}
}

type httpProvider struct {
	credential string
	baseURL    string
	client     *http.Client
}

func newHTTPProvider(credential, baseURL string, opts []HTTPOption) httpProvider {
	p := httpProvider{
		credential: credential,
		baseURL:    baseURL,
		client: &http.Client{
			Timeout: DefaultProviderTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        httpMaxIdleConns,
				MaxIdleConnsPerHost: httpMaxIdleConns,
				IdleConnTimeout:     httpIdleConnTimeout,
			},
		},
	}
	for _, o := range opts {
		o(&p)
	}
	return p
}

// do executes req and returns the body of a 200 response.
func (p httpProvider) do(req *http.Request, name string) ([]byte, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		// url.Error carries the full request URL, query credentials included
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%w: %s: http %s %s: %w", ErrProviderError, name, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read response: %w", ErrProviderError, name, err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := body
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrProviderError, name, resp.StatusCode, snippet)
	}
	return body, nil
}

// lngLatPairs converts GeoJSON [lng, lat] positions into coordinates.
func lngLatPairs(positions [][]float64) ([]domain.Coordinate, error) {
	out := make([]domain.Coordinate, 0, len(positions))
	for i, pos := range positions {
		if len(pos) < 2 {
			return nil, fmt.Errorf("position %d has %d components", i, len(pos))
		}
		out = append(out, domain.Coordinate{Lat: pos[1], Lng: pos[0]})
	}
	return out, nil
}
