// Command odpfind loads an ODP table once, runs one proximity search and
// prints the ranked list.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/odpfinder/internal/odp/dataset"
	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/ranking"
	"github.com/example/odpfinder/internal/odp/routing"
	"github.com/example/odpfinder/internal/odp/search"
	"github.com/example/odpfinder/pkg/observability"
)

var markerIcons = map[ranking.Marker]string{
	ranking.MarkerGreen:   "🟢",
	ranking.MarkerYellow:  "🟡",
	ranking.MarkerRed:     "🔴",
	ranking.MarkerBlack:   "⚫",
	ranking.MarkerBlue:    "🔵",
	ranking.MarkerUnknown: "⚪",
}

type options struct {
	source    string
	columns   dataset.Columns
	origin    domain.Coordinate
	radius    float64
	aerial    bool
	available bool
	max       int
	asJSON    bool
	orsKey    string
	mapbox    string
	timeout   time.Duration
	logLevel  string
}

func main() {
	var opts options
	flag.StringVar(&opts.source, "data", os.Getenv("DATASET_SOURCE"), "CSV path, CSV URL or Google Sheets link")
	flag.StringVar(&opts.columns.Lat, "lat-column", "", "latitude header (default LATITUDE)")
	flag.StringVar(&opts.columns.Lng, "lng-column", "", "longitude header (default LONGITUDE)")
	flag.StringVar(&opts.columns.Name, "name-column", "", "name header (default ODP NAME)")
	flag.Float64Var(&opts.origin.Lat, "lat", 0, "origin latitude")
	flag.Float64Var(&opts.origin.Lng, "lng", 0, "origin longitude")
	flag.Float64Var(&opts.radius, "radius", 250, "search radius in meters")
	flag.BoolVar(&opts.aerial, "aerial", false, "skip route resolution")
	flag.BoolVar(&opts.available, "available", false, "only ODPs with free ports")
	flag.IntVar(&opts.max, "max", 10, "rows to print, 0 for all")
	flag.BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")
	flag.StringVar(&opts.orsKey, "ors-key", os.Getenv("OPENROUTESERVICE_API_KEY"), "OpenRouteService API key")
	flag.StringVar(&opts.mapbox, "mapbox-token", os.Getenv("MAPBOX_ACCESS_TOKEN"), "Mapbox access token")
	flag.DurationVar(&opts.timeout, "timeout", routing.DefaultProviderTimeout, "per provider call timeout")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.SetupLogger("odpfind", opts.logLevel)
	defer logger.Sync() //nolint:errcheck

	if err := run(ctx, opts, os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "odpfind:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer, logger *zap.Logger) error {
	if opts.source == "" {
		return errors.New("no dataset: pass -data or set DATASET_SOURCE")
	}
	store := dataset.NewStore(dataset.NewSource(opts.source), opts.columns, nil, logger.Named("dataset"))
	if _, err := store.Reload(ctx); err != nil {
		return err
	}

	resolver := routing.NewResolver([]routing.Provider{
		routing.NewOpenRouteService(opts.orsKey),
		routing.NewMapbox(opts.mapbox),
	}, nil, logger.Named("routing"), routing.Config{Timeout: opts.timeout})
	svc := search.New(resolver, nil, nil, logger.Named("search"), search.Config{})

	q := domain.NewQuery(opts.origin, opts.radius)
	q.UseRouteDistance = !opts.aerial
	q.OnlyAvailable = opts.available
	report, err := svc.Run(ctx, store, q)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Results)
	}
	render(out, q, report.Results, opts.max)
	return nil
}

func render(w io.Writer, q domain.SearchQuery, results []domain.RankedResult, limit int) {
	if len(results) == 0 {
		fmt.Fprintf(w, "No ODP within %.0fm of %.6f, %.6f\n", q.RadiusMeters, q.Origin.Lat, q.Origin.Lng)
		return
	}
	fmt.Fprintf(w, "%d ODP within %.0fm of %.6f, %.6f\n", len(results), q.RadiusMeters, q.Origin.Lat, q.Origin.Lng)
	shown := results
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for i, r := range shown {
		line := fmt.Sprintf("%d. %s %s - %.1fm (%s)", i+1, markerIcons[ranking.Category(r.Point)], r.ID, r.DisplayDistanceMeters, r.DistanceKind)
		if avai := strings.TrimSpace(r.Attr(search.AvailabilityAttribute)); avai != "" {
			line += fmt.Sprintf(" (Avai: %s)", avai)
		}
		fmt.Fprintln(w, line)
	}
	if rest := len(results) - len(shown); rest > 0 {
		fmt.Fprintf(w, "...and %d more\n", rest)
	}
}
