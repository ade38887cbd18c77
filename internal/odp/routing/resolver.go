package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/geo"
)

// Config tunes the resolver.
type Config struct {
	Profile Profile
	// Timeout bounds each provider call.
	Timeout time.Duration
	// Workers bounds concurrent Resolve calls inside ResolveMany.
	Workers int
	// Inflation scales aerial distance for the simulated tier.
	Inflation float64
	// EndpointToleranceMeters is how far a provider polyline may start or end
	// from the requested waypoints before its geometry is replaced by a straight segment.
	EndpointToleranceMeters float64
}

// Resolver turns (origin, destination) pairs into route distances by trying
// each provider in order, then the simulated estimate. It never fails.
type Resolver struct {
	providers []Provider
	cache     Cache
	logger    *zap.Logger
	tracer    trace.Tracer
	cfg       Config
}

// NewResolver wires the provider chain. providers[0] reports as the primary
// source, every later provider as secondary. A nil cache gets an unbounded MemoryCache.
func NewResolver(providers []Provider, cache Cache, logger *zap.Logger, cfg Config) *Resolver {
	if cfg.Profile == "" {
		cfg.Profile = ProfileDriving
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProviderTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Inflation <= 0 {
		cfg.Inflation = domain.RoadInflationFactor
	}
	if cfg.EndpointToleranceMeters <= 0 {
		cfg.EndpointToleranceMeters = 50
	}
	if cache == nil {
		cache = NewMemoryCache(MemoryCacheConfig{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		providers: append([]Provider(nil), providers...),
		cache:     cache,
		logger:    logger,
		tracer:    otel.Tracer("odp.routing"),
		cfg:       cfg,
	}
}

// Resolve returns the route for one pair, consulting the cache first. Results
// computed after ctx is cancelled are returned but not cached.
func (r *Resolver) Resolve(ctx context.Context, origin, destination domain.Coordinate) domain.RouteResult {
	key := NewCacheKey(origin, destination)
	if cached, ok := r.lookup(ctx, key); ok {
		return cached
	}

	result := r.resolveUncached(ctx, origin, destination)
	if ctx.Err() != nil {
		return result
	}
	resolutionsTotal.WithLabelValues(string(result.Source)).Inc()
	if err := r.cache.Set(ctx, key, result); err != nil {
		r.logger.Warn("route cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
	return result
}

// ResolveMany resolves every destination from origin with at most cfg.Workers
// concurrent Resolve calls. results[i] belongs to destinations[i].
func (r *Resolver) ResolveMany(ctx context.Context, origin domain.Coordinate, destinations []domain.Coordinate) []domain.RouteResult {
	results := make([]domain.RouteResult, len(destinations))
	if len(destinations) == 0 {
		return results
	}
	ctx, span := r.tracer.Start(ctx, "routing.resolve_many", trace.WithAttributes(
		attribute.Int("destinations", len(destinations)),
	))
	defer span.End()

	workers := r.cfg.Workers
	if workers > len(destinations) {
		workers = len(destinations)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.Resolve(ctx, origin, destinations[i])
			}
		}()
	}
	for i := range destinations {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func (r *Resolver) lookup(ctx context.Context, key CacheKey) (domain.RouteResult, bool) {
	cached, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		cacheLookupsTotal.WithLabelValues("error").Inc()
		r.logger.Warn("route cache read failed", zap.String("key", key.String()), zap.Error(err))
		return domain.RouteResult{}, false
	case ok:
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return cached, true
	default:
		cacheLookupsTotal.WithLabelValues("miss").Inc()
		return domain.RouteResult{}, false
	}
}

func (r *Resolver) resolveUncached(ctx context.Context, origin, destination domain.Coordinate) domain.RouteResult {
	for i, p := range r.providers {
		if ctx.Err() != nil {
			break
		}
		source := domain.SourceSecondary
		if i == 0 {
			source = domain.SourcePrimary
		}
		result, err := r.attempt(ctx, p, origin, destination)
		if err == nil {
			result.Source = source
			return result
		}
		providerFailuresTotal.WithLabelValues(p.Name(), failureReason(err)).Inc()
		r.logger.Warn("routing provider failed, trying next tier",
			zap.String("provider", p.Name()),
			zap.String("origin", formatCoordinate(origin)),
			zap.String("destination", formatCoordinate(destination)),
			zap.Error(err),
		)
	}
	return Simulate(origin, destination, r.cfg.Inflation)
}

func (r *Resolver) attempt(ctx context.Context, p Provider, origin, destination domain.Coordinate) (domain.RouteResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	callCtx, span := r.tracer.Start(callCtx, "routing.provider", trace.WithAttributes(
		attribute.String("provider", p.Name()),
	))
	defer span.End()

	start := time.Now()
	dir, err := p.Directions(callCtx, origin, destination, r.cfg.Profile)
	providerDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "directions failed")
		return domain.RouteResult{}, err
	}
	if math.IsNaN(dir.DistanceMeters) || math.IsInf(dir.DistanceMeters, 0) || dir.DistanceMeters < 0 {
		return domain.RouteResult{}, fmt.Errorf("%w: %s: invalid distance %v", ErrProviderError, p.Name(), dir.DistanceMeters)
	}
	if len(dir.Polyline) < 2 {
		return domain.RouteResult{}, fmt.Errorf("%w: %s: geometry has %d points", ErrProviderError, p.Name(), len(dir.Polyline))
	}

	polyline := dir.Polyline
	first, last := polyline[0], polyline[len(polyline)-1]
	if geo.Distance(first, origin) > r.cfg.EndpointToleranceMeters || geo.Distance(last, destination) > r.cfg.EndpointToleranceMeters {
		r.logger.Warn("provider geometry does not match waypoints, using straight segment",
			zap.String("provider", p.Name()),
			zap.Float64("start_offset_m", geo.Distance(first, origin)),
			zap.Float64("end_offset_m", geo.Distance(last, destination)),
		)
		polyline = []domain.Coordinate{origin, destination}
	}
	span.SetAttributes(attribute.Float64("distance_m", dir.DistanceMeters))

	return domain.RouteResult{
		DistanceMeters: dir.DistanceMeters,
		Polyline:       polyline,
		Valid:          true,
	}, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func formatCoordinate(c domain.Coordinate) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}
