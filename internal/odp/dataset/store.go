package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/proximity"
)

// Snapshot is one immutable generation of the dataset.
type Snapshot struct {
	Points   []domain.Point
	Index    *proximity.Index
	Stats    Stats
	LoadedAt time.Time
}

// Store serves the latest successfully loaded snapshot.
type Store struct {
	source  Source
	columns Columns
	clock   domain.Clock
	logger  *zap.Logger

	reloadMu sync.Mutex
	mu       sync.RWMutex
	current  *Snapshot
}

func NewStore(source Source, columns Columns, clock domain.Clock, logger *zap.Logger) *Store {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{source: source, columns: columns, clock: clock, logger: logger}
}

// Reload reads the source and swaps in the new snapshot. On failure the
// previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) (Stats, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	rc, err := s.source.Open(ctx)
	if err != nil {
		s.logger.Error("dataset reload failed", zap.String("source", s.source.String()), zap.Error(err))
		return Stats{}, err
	}
	defer rc.Close()

	points, stats, err := Load(rc, s.columns)
	if err != nil {
		s.logger.Error("dataset parse failed", zap.String("source", s.source.String()), zap.Error(err))
		return stats, fmt.Errorf("load %s: %w", s.source, err)
	}
	snap := &Snapshot{
		Points:   points,
		Index:    proximity.NewIndex(points),
		Stats:    stats,
		LoadedAt: s.clock.Now(),
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	s.logger.Info("dataset loaded",
		zap.String("source", s.source.String()),
		zap.Int("rows", stats.Rows),
		zap.Int("points", stats.Loaded),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// Columns returns the header names the store loads with.
func (s *Store) Columns() Columns {
	return s.columns.withDefaults()
}

// Snapshot returns the current generation, or nil before the first load.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Nearby queries the current snapshot. An unloaded store has no candidates.
func (s *Store) Nearby(origin domain.Coordinate, radiusMeters, marginMeters float64) []domain.Candidate {
	snap := s.Snapshot()
	if snap == nil {
		return make([]domain.Candidate, 0)
	}
	return snap.Index.Nearby(origin, radiusMeters, marginMeters)
}
