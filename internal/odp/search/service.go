// Package search runs one proximity query end to end: filter, resolve routes,
// rank.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/proximity"
	"github.com/example/odpfinder/internal/odp/ranking"
)

// AvailabilityAttribute holds the number of free ports on a point.
const AvailabilityAttribute = "AVAI"

// RouteResolver resolves many destinations from one origin. results[i]
// belongs to destinations[i] and every entry is populated.
type RouteResolver interface {
	ResolveMany(ctx context.Context, origin domain.Coordinate, destinations []domain.Coordinate) []domain.RouteResult
}

// CandidateSource yields the points within radius+margin of origin.
type CandidateSource interface {
	Nearby(origin domain.Coordinate, radiusMeters, marginMeters float64) []domain.Candidate
}

// Points adapts a plain slice to CandidateSource with a linear scan.
type Points []domain.Point

func (p Points) Nearby(origin domain.Coordinate, radiusMeters, marginMeters float64) []domain.Candidate {
	return proximity.Filter(p, origin, radiusMeters, marginMeters)
}

type state string

const (
	stateFiltering state = "filtering"
	stateResolving state = "resolving_routes"
	stateRanking   state = "ranking"
	stateDone      state = "done"
)

type Config struct {
	// MaxRadiusMeters rejects larger queries. Zero disables the check.
	MaxRadiusMeters float64
	Inflation       float64
}

// Report is the outcome of Run.
type Report struct {
	ID      uuid.UUID
	Query   domain.SearchQuery
	Results []domain.RankedResult
	Sources map[domain.SourceKind]int
	Elapsed time.Duration
}

type Service struct {
	resolver RouteResolver
	events   domain.EventPublisher
	clock    domain.Clock
	logger   *zap.Logger
	tracer   trace.Tracer
	cfg      Config
}

// New constructs a Service. events may be nil.
func New(resolver RouteResolver, events domain.EventPublisher, clock domain.Clock, logger *zap.Logger, cfg Config) *Service {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Inflation <= 0 {
		cfg.Inflation = domain.RoadInflationFactor
	}
	return &Service{
		resolver: resolver,
		events:   events,
		clock:    clock,
		logger:   logger,
		tracer:   otel.Tracer("odp.search"),
		cfg:      cfg,
	}
}

// Search runs q over points. Only an invalid query produces an error.
func (s *Service) Search(ctx context.Context, points []domain.Point, q domain.SearchQuery) ([]domain.RankedResult, error) {
	report, err := s.Run(ctx, Points(points), q)
	if err != nil {
		return nil, err
	}
	return report.Results, nil
}

// Run executes q against src and returns the ranked results with bookkeeping.
func (s *Service) Run(ctx context.Context, src CandidateSource, q domain.SearchQuery) (Report, error) {
	started := s.clock.Now()
	if err := s.validate(q); err != nil {
		searchesTotal.WithLabelValues("invalid").Inc()
		return Report{}, err
	}

	report := Report{ID: uuid.New(), Query: q, Sources: make(map[domain.SourceKind]int)}
	ctx, span := s.tracer.Start(ctx, "search.run", trace.WithAttributes(
		attribute.String("search_id", report.ID.String()),
		attribute.Float64("radius_m", q.RadiusMeters),
		attribute.Bool("route_distance", q.UseRouteDistance),
	))
	defer span.End()
	logger := s.logger.With(zap.String("search_id", report.ID.String()))

	logger.Debug("search state", zap.String("state", string(stateFiltering)))
	candidates := make([]domain.Candidate, 0)
	if src != nil {
		candidates = src.Nearby(q.Origin, q.RadiusMeters, q.MarginMeters)
	}
	if q.OnlyAvailable {
		candidates = availableOnly(candidates)
	}
	searchCandidates.Observe(float64(len(candidates)))
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	var routes []domain.RouteResult
	if len(candidates) > 0 && q.UseRouteDistance && s.resolver != nil {
		logger.Debug("search state", zap.String("state", string(stateResolving)), zap.Int("candidates", len(candidates)))
		destinations := make([]domain.Coordinate, len(candidates))
		for i, c := range candidates {
			destinations[i] = c.Coordinate
		}
		routes = s.resolver.ResolveMany(ctx, q.Origin, destinations)
		for _, r := range routes {
			report.Sources[r.Source]++
		}
	}

	if len(candidates) > 0 {
		logger.Debug("search state", zap.String("state", string(stateRanking)))
	}
	report.Results = ranking.MergeValues(candidates, routes, s.cfg.Inflation)
	report.Elapsed = s.clock.Now().Sub(started)
	logger.Debug("search state", zap.String("state", string(stateDone)))

	outcome := "results"
	if len(report.Results) == 0 {
		outcome = "empty"
	}
	searchesTotal.WithLabelValues(outcome).Inc()
	searchDuration.Observe(report.Elapsed.Seconds())
	logger.Info("search completed",
		zap.Float64("lat", q.Origin.Lat),
		zap.Float64("lng", q.Origin.Lng),
		zap.Float64("radius_m", q.RadiusMeters),
		zap.Int("results", len(report.Results)),
		zap.Int("primary", report.Sources[domain.SourcePrimary]),
		zap.Int("secondary", report.Sources[domain.SourceSecondary]),
		zap.Int("simulated", report.Sources[domain.SourceSimulated]),
		zap.Duration("elapsed", report.Elapsed),
	)

	s.publish(ctx, report)
	return report, nil
}

func (s *Service) validate(q domain.SearchQuery) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if s.cfg.MaxRadiusMeters > 0 && q.RadiusMeters > s.cfg.MaxRadiusMeters {
		return fmt.Errorf("%w: radius %v exceeds limit %v", domain.ErrInvalidQuery, q.RadiusMeters, s.cfg.MaxRadiusMeters)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, report Report) {
	if s.events == nil {
		return
	}
	event := domain.SearchEvent{
		ID:               report.ID,
		Type:             domain.EventSearchCompleted,
		Origin:           report.Query.Origin,
		RadiusMeters:     report.Query.RadiusMeters,
		UseRouteDistance: report.Query.UseRouteDistance,
		Results:          len(report.Results),
		Sources:          report.Sources,
		DurationMillis:   report.Elapsed.Milliseconds(),
		CreatedAt:        s.clock.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish search event")
		s.logger.Warn("publish search event failed", zap.String("search_id", report.ID.String()), zap.Error(err))
	}
}

// Available reports whether p has at least one free port. A missing or
// non-numeric AVAI counts as zero.
func Available(p domain.Point) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.Attr(AvailabilityAttribute)), 64)
	return err == nil && v > 0
}

func availableOnly(candidates []domain.Candidate) []domain.Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		if Available(c.Point) {
			out = append(out, c)
		}
	}
	return out
}
