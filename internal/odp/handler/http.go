package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/odpfinder/internal/auth"
	ratelimit "github.com/example/odpfinder/internal/http/middleware"
	"github.com/example/odpfinder/internal/odp/dataset"
	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/geo"
	"github.com/example/odpfinder/internal/odp/ranking"
	"github.com/example/odpfinder/internal/odp/routing"
	"github.com/example/odpfinder/internal/odp/search"
)

// Options carries the optional collaborators of HTTP.
type Options struct {
	DefaultRadiusMeters float64
	// JWTSecret guards the admin endpoints. Empty disables them.
	JWTSecret string
	Limiter   *ratelimit.RateLimiter
	Logger    *zap.Logger
}

// HTTP exposes proximity search, direct route lookup and dataset reload.
type HTTP struct {
	svc      *search.Service
	store    *dataset.Store
	resolver *routing.Resolver
	opts     Options
}

func NewHTTP(svc *search.Service, store *dataset.Store, resolver *routing.Resolver, opts Options) *HTTP {
	if opts.DefaultRadiusMeters <= 0 {
		opts.DefaultRadiusMeters = 250
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &HTTP{svc: svc, store: store, resolver: resolver, opts: opts}
}

// Router builds the chi router with all endpoints and middlewares.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Group(func(r chi.Router) {
		r.Use(h.opts.Limiter.Middleware)
		r.Get("/v1/odps/nearby", h.nearby)
		r.Get("/v1/routes", h.route)
	})
	r.With(auth.Middleware(h.opts.JWTSecret, auth.RoleAdmin)).Post("/v1/datasets/reload", h.reload)
	return r
}

type resultView struct {
	ID                    string              `json:"id"`
	Name                  string              `json:"name"`
	Category              ranking.Marker      `json:"category"`
	Available             bool                `json:"available"`
	Lat                   float64             `json:"lat"`
	Lng                   float64             `json:"lng"`
	Attributes            map[string]string   `json:"attributes,omitempty"`
	AerialDistanceMeters  float64             `json:"aerial_distance_m"`
	DisplayDistanceMeters float64             `json:"display_distance_m"`
	DistanceKind          domain.DistanceKind `json:"distance_kind"`
	Route                 *domain.RouteResult `json:"route,omitempty"`
}

type nearbyResponse struct {
	SearchID string            `json:"search_id"`
	Origin   domain.Coordinate `json:"origin"`
	RadiusM  float64           `json:"radius_m"`
	Count    int               `json:"count"`
	Results  []resultView      `json:"results"`
}

func (h *HTTP) nearby(w http.ResponseWriter, r *http.Request) {
	origin, err := coordinateParam(r, "lat", "lng")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q := domain.NewQuery(origin, h.opts.DefaultRadiusMeters)
	if raw := r.URL.Query().Get("radius"); raw != "" {
		if q.RadiusMeters, err = strconv.ParseFloat(raw, 64); err != nil {
			http.Error(w, "invalid radius", http.StatusBadRequest)
			return
		}
	}
	if q.UseRouteDistance, err = boolParam(r, "route", true); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if q.OnlyAvailable, err = boolParam(r, "available", false); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.store.Snapshot() == nil {
		http.Error(w, "dataset not loaded", http.StatusServiceUnavailable)
		return
	}

	report, err := h.svc.Run(r.Context(), h.store, q)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := nearbyResponse{
		SearchID: report.ID.String(),
		Origin:   q.Origin,
		RadiusM:  q.RadiusMeters,
		Count:    len(report.Results),
		Results:  make([]resultView, 0, len(report.Results)),
	}
	cols := h.store.Columns()
	for _, res := range report.Results {
		resp.Results = append(resp.Results, resultView{
			ID:                    res.ID,
			Name:                  cols.NameOf(res.Point),
			Category:              ranking.Category(res.Point),
			Available:             search.Available(res.Point),
			Lat:                   res.Coordinate.Lat,
			Lng:                   res.Coordinate.Lng,
			Attributes:            res.Attributes,
			AerialDistanceMeters:  res.AerialDistanceMeters,
			DisplayDistanceMeters: res.DisplayDistanceMeters,
			DistanceKind:          res.DistanceKind,
			Route:                 res.Route,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type routeResponse struct {
	From                 domain.Coordinate `json:"from"`
	To                   domain.Coordinate `json:"to"`
	AerialDistanceMeters float64           `json:"aerial_distance_m"`
	domain.RouteResult
}

func (h *HTTP) route(w http.ResponseWriter, r *http.Request) {
	from, err := coordinateParam(r, "from_lat", "from_lng")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := coordinateParam(r, "to_lat", "to_lng")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, routeResponse{
		From:                 from,
		To:                   to,
		AerialDistanceMeters: geo.Distance(from, to),
		RouteResult:          h.resolver.Resolve(r.Context(), from, to),
	})
}

func (h *HTTP) reload(w http.ResponseWriter, r *http.Request) {
	var subject string
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		subject = claims.Subject
	}
	stats, err := h.store.Reload(r.Context())
	if err != nil {
		h.opts.Logger.Warn("dataset reload failed", zap.String("subject", subject), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.opts.Logger.Info("dataset reloaded", zap.String("subject", subject), zap.Int("points", stats.Loaded))
	writeJSON(w, http.StatusOK, stats)
}

func coordinateParam(r *http.Request, latKey, lngKey string) (domain.Coordinate, error) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get(latKey), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid %s", latKey)
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get(lngKey), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid %s", lngKey)
	}
	c := domain.Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return domain.Coordinate{}, fmt.Errorf("%s/%s out of range", latKey, lngKey)
	}
	return c, nil
}

func boolParam(r *http.Request, key string, fallback bool) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidQuery) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
