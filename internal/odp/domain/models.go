package domain

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultMarginMeters absorbs distance formula discrepancies near the radius boundary.
	DefaultMarginMeters = 5.0
	// RoadInflationFactor approximates road length from a straight line.
	RoadInflationFactor = 1.3
)

var ErrInvalidQuery = errors.New("invalid search query")

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether c is a finite coordinate inside the WGS84 ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

type Point struct {
	ID         string            `json:"id"`
	Coordinate Coordinate        `json:"coordinate"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attr returns the named attribute or an empty string.
func (p Point) Attr(name string) string {
	if p.Attributes == nil {
		return ""
	}
	return p.Attributes[name]
}

type SearchQuery struct {
	Origin           Coordinate
	RadiusMeters     float64
	MarginMeters     float64
	UseRouteDistance bool
	OnlyAvailable    bool
}

// NewQuery builds a query with the default margin and route distances enabled.
func NewQuery(origin Coordinate, radiusMeters float64) SearchQuery {
	return SearchQuery{
		Origin:           origin,
		RadiusMeters:     radiusMeters,
		MarginMeters:     DefaultMarginMeters,
		UseRouteDistance: true,
	}
}

// Validate returns an error wrapping ErrInvalidQuery when the query cannot be served.
func (q SearchQuery) Validate() error {
	if !q.Origin.Valid() {
		return fmt.Errorf("%w: origin (%v, %v) out of range", ErrInvalidQuery, q.Origin.Lat, q.Origin.Lng)
	}
	if math.IsNaN(q.RadiusMeters) || math.IsInf(q.RadiusMeters, 0) || q.RadiusMeters <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidQuery, q.RadiusMeters)
	}
	if math.IsNaN(q.MarginMeters) || q.MarginMeters < 0 {
		return fmt.Errorf("%w: margin must not be negative, got %v", ErrInvalidQuery, q.MarginMeters)
	}
	return nil
}

type Candidate struct {
	Point
	AerialDistanceMeters float64 `json:"aerial_distance_m"`
}

type SourceKind string

const (
	SourcePrimary   SourceKind = "primary"
	SourceSecondary SourceKind = "secondary"
	SourceSimulated SourceKind = "simulated"
)

type RouteResult struct {
	DistanceMeters float64      `json:"distance_m"`
	Polyline       []Coordinate `json:"polyline,omitempty"`
	Source         SourceKind   `json:"source"`
	Valid          bool         `json:"valid"`
}

type DistanceKind string

const (
	DistanceRoute    DistanceKind = "route"
	DistanceEstimate DistanceKind = "estimate"
)

type RankedResult struct {
	Candidate
	Route                 *RouteResult `json:"route,omitempty"`
	DisplayDistanceMeters float64      `json:"display_distance_m"`
	DistanceKind          DistanceKind `json:"distance_kind"`
}
