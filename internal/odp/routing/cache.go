package routing

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/example/odpfinder/internal/odp/domain"
)

// cacheKeyPrecision is the number of decimal digits kept per coordinate (~0.1 m).
const cacheKeyPrecision = 6

// Cache stores resolved routes. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached result, or ok=false on a miss.
	Get(ctx context.Context, key CacheKey) (result domain.RouteResult, ok bool, err error)
	Set(ctx context.Context, key CacheKey, result domain.RouteResult) error
}

// CacheKey identifies an ordered (origin, destination) pair after rounding.
type CacheKey struct {
	Origin      domain.Coordinate
	Destination domain.Coordinate
}

// NewCacheKey rounds both coordinates to cacheKeyPrecision decimals.
func NewCacheKey(origin, destination domain.Coordinate) CacheKey {
	return CacheKey{Origin: roundCoordinate(origin), Destination: roundCoordinate(destination)}
}

func (k CacheKey) String() string {
	buf := make([]byte, 0, 64)
	for i, v := range []float64{k.Origin.Lat, k.Origin.Lng, k.Destination.Lat, k.Destination.Lng} {
		if i > 0 {
			buf = append(buf, '_')
		}
		buf = strconv.AppendFloat(buf, v, 'f', cacheKeyPrecision, 64)
	}
	return string(buf)
}

func roundCoordinate(c domain.Coordinate) domain.Coordinate {
	scale := math.Pow10(cacheKeyPrecision)
	return domain.Coordinate{
		Lat: math.Round(c.Lat*scale) / scale,
		Lng: math.Round(c.Lng*scale) / scale,
	}
}

// MemoryCacheConfig bounds the in-process cache. Zero values keep entries
// forever and never evict.
type MemoryCacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

type memoryEntry struct {
	result  domain.RouteResult
	expires time.Time
	seq     uint64
}

type insertion struct {
	key string
	seq uint64
}

// MemoryCache is a mutex-guarded process-local Cache with optional TTL and
// oldest-first eviction.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	order   []insertion
	seq     uint64
	cfg     MemoryCacheConfig
	now     func() time.Time
}

// NewMemoryCache constructs an empty MemoryCache.
func NewMemoryCache(cfg MemoryCacheConfig) *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), cfg: cfg, now: time.Now}
}

// Get satisfies Cache.
func (m *MemoryCache) Get(_ context.Context, key CacheKey) (domain.RouteResult, bool, error) {
	k := key.String()
	m.mu.RLock()
	entry, ok := m.entries[k]
	m.mu.RUnlock()
	if !ok {
		return domain.RouteResult{}, false, nil
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		m.mu.Lock()
		if current, still := m.entries[k]; still && current.seq == entry.seq {
			delete(m.entries, k)
		}
		m.mu.Unlock()
		return domain.RouteResult{}, false, nil
	}
	result := entry.result
	result.Polyline = append([]domain.Coordinate(nil), result.Polyline...)
	return result, true, nil
}

// Set satisfies Cache. Polylines are copied on the way in and out.
func (m *MemoryCache) Set(_ context.Context, key CacheKey, result domain.RouteResult) error {
	result.Polyline = append([]domain.Coordinate(nil), result.Polyline...)
	k := key.String()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	entry := memoryEntry{result: result, seq: m.seq}
	if m.cfg.TTL > 0 {
		entry.expires = m.now().Add(m.cfg.TTL)
	}
	m.entries[k] = entry
	if m.cfg.MaxEntries > 0 {
		m.order = append(m.order, insertion{key: k, seq: m.seq})
		m.evictLocked()
		if len(m.order) > 2*m.cfg.MaxEntries {
			m.compactLocked()
		}
	}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryCache) evictLocked() {
	for len(m.order) > 0 {
		head := m.order[0]
		current, ok := m.entries[head.key]
		if ok && current.seq != head.seq {
			// superseded by a newer write of the same key
			m.order = m.order[1:]
			continue
		}
		if !ok {
			m.order = m.order[1:]
			continue
		}
		if len(m.entries) <= m.cfg.MaxEntries {
			return
		}
		delete(m.entries, head.key)
		m.order = m.order[1:]
	}
}

// compactLocked drops superseded and swept insertions anywhere in order.
func (m *MemoryCache) compactLocked() {
	live := m.order[:0]
	for _, ins := range m.order {
		if current, ok := m.entries[ins.key]; ok && current.seq == ins.seq {
			live = append(live, ins)
		}
	}
	clear(m.order[len(live):])
	m.order = live
}
