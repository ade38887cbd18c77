package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/odpfinder/internal/config"
	ratelimit "github.com/example/odpfinder/internal/http/middleware"
	"github.com/example/odpfinder/internal/odp/dataset"
	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/handler"
	"github.com/example/odpfinder/internal/odp/routing"
	"github.com/example/odpfinder/internal/odp/search"
	"github.com/example/odpfinder/pkg/events"
	"github.com/example/odpfinder/pkg/observability"
)

func main() {
	configPath := flag.String("config", os.Getenv("ODP_CONFIG"), "optional YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		observability.SetupLogger("odp-service", "info").Fatal("load config", zap.Error(err))
	}

	logger := observability.SetupLogger("odp-service", cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	shutdown, err := observability.SetupTracer(ctx, "odp-service")
	if err != nil {
		logger.Warn("tracer setup failed", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		if conn, err := nats.Connect(cfg.NATS.URL, nats.Name("odpservice")); err == nil {
			natsConn = conn
			defer conn.Drain()
		} else {
			logger.Warn("nats connection failed", zap.Error(err))
		}
	}

	resolver := routing.NewResolver(
		[]routing.Provider{
			routing.NewOpenRouteService(cfg.Routing.OpenRouteServiceKey),
			routing.NewMapbox(cfg.Routing.MapboxToken),
		},
		buildRouteCache(redisClient, cfg),
		logger.Named("routing"),
		routing.Config{
			Profile: routing.Profile(cfg.Routing.Profile),
			Timeout: cfg.Routing.Timeout,
			Workers: cfg.Search.Workers,
		},
	)

	store := dataset.NewStore(dataset.NewSource(cfg.Dataset.Source), dataset.Columns{
		Lat:  cfg.Dataset.LatColumn,
		Lng:  cfg.Dataset.LngColumn,
		Name: cfg.Dataset.NameColumn,
	}, domain.SystemClock{}, logger.Named("dataset"))
	if _, err := store.Reload(ctx); err != nil {
		logger.Warn("initial dataset load failed, serving 503 until reload", zap.Error(err))
	}

	publisher := events.NewPublisher(natsConn, cfg.NATS.Subject)
	svc := search.New(resolver, publisher, domain.SystemClock{}, logger.Named("search"), search.Config{
		MaxRadiusMeters: cfg.Search.MaxRadiusMeters,
	})

	var limiter *ratelimit.RateLimiter
	if redisClient != nil {
		limiter = ratelimit.NewRateLimiter(redisClient, "search", ratelimit.RateConfig{
			Rate:  cfg.RateLimit.RPS,
			Burst: float64(cfg.RateLimit.Burst),
		}, logger.Named("ratelimit"))
	}

	odpHTTP := handler.NewHTTP(svc, store, resolver, handler.Options{
		DefaultRadiusMeters: cfg.Search.DefaultRadiusMeters,
		JWTSecret:           cfg.Auth.JWTSecret,
		Limiter:             limiter,
		Logger:              logger.Named("http"),
	})

	r := chi.NewRouter()
	r.Mount("/", odpHTTP.Router())
	r.Mount("/observability", observability.MetricsRouter(func(context.Context) error {
		if store.Snapshot() == nil {
			return errors.New("dataset not loaded")
		}
		return nil
	}))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("odp service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildRouteCache(redisClient *redis.Client, cfg *config.Config) routing.Cache {
	if redisClient == nil {
		return routing.NewMemoryCache(routing.MemoryCacheConfig{
			TTL:        cfg.Routing.CacheTTL,
			MaxEntries: cfg.Routing.CacheMaxEntries,
		})
	}
	return routing.NewRedisCache(redisClient, "", cfg.Routing.CacheTTL)
}
