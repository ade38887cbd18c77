package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SearchEventType string

const EventSearchCompleted SearchEventType = "odp.search.completed"

// SearchEvent summarises one finished search for downstream consumers.
type SearchEvent struct {
	ID               uuid.UUID          `json:"id"`
	Type             SearchEventType    `json:"type"`
	Origin           Coordinate         `json:"origin"`
	RadiusMeters     float64            `json:"radius_m"`
	UseRouteDistance bool               `json:"use_route_distance"`
	Results          int                `json:"results"`
	Sources          map[SourceKind]int `json:"sources,omitempty"`
	DurationMillis   int64              `json:"duration_ms"`
	CreatedAt        time.Time          `json:"created_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event SearchEvent) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
