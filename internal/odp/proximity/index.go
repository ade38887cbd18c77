package proximity

import (
	"sort"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/example/odpfinder/internal/odp/domain"
	"github.com/example/odpfinder/internal/odp/geo"
)

const (
	// capPaddingMeters widens the covering cap so cell boundaries never clip a point
	// that the exact distance check would accept.
	capPaddingMeters = 1.0
	coverMaxCells    = 8
)

type indexEntry struct {
	cell  s2.CellID
	ord   int
	point domain.Point
}

// Index keeps points ordered by S2 leaf cell so a radius query only scans the
// cells covering the search cap. Results match Filter on the same input.
type Index struct {
	entries []indexEntry
	skipped int
}

// NewIndex builds an immutable index. Points with invalid coordinates are left out.
func NewIndex(points []domain.Point) *Index {
	entries := make([]indexEntry, 0, len(points))
	skipped := 0
	for _, p := range points {
		if !p.Coordinate.Valid() {
			skipped++
			continue
		}
		ll := s2.LatLngFromDegrees(p.Coordinate.Lat, p.Coordinate.Lng)
		entries = append(entries, indexEntry{cell: s2.CellIDFromLatLng(ll), ord: len(entries), point: p})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].cell < entries[j].cell })
	return &Index{entries: entries, skipped: skipped}
}

// Len reports the number of indexed points.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// Skipped reports how many input points were rejected for invalid coordinates.
func (ix *Index) Skipped() int {
	if ix == nil {
		return 0
	}
	return ix.skipped
}

// Points returns the indexed points in input order.
func (ix *Index) Points() []domain.Point {
	if ix == nil {
		return nil
	}
	out := make([]domain.Point, len(ix.entries))
	for _, e := range ix.entries {
		out[e.ord] = e.point
	}
	return out
}

// Nearby has the same contract as Filter, including input-order output, but
// only inspects points in cells covering the search cap.
func (ix *Index) Nearby(origin domain.Coordinate, radiusMeters, marginMeters float64) []domain.Candidate {
	out := make([]domain.Candidate, 0)
	if ix.Len() == 0 || !origin.Valid() {
		return out
	}
	limit := radiusMeters + marginMeters
	if limit < 0 {
		return out
	}
	var hits []indexEntry

	center := s2.PointFromLatLng(s2.LatLngFromDegrees(origin.Lat, origin.Lng))
	region := s2.CapFromCenterAngle(center, s1.Angle(geo.MetersToAngle(limit+capPaddingMeters)))
	coverer := &s2.RegionCoverer{MaxLevel: s2.MaxLevel, MaxCells: coverMaxCells}
	covering := coverer.Covering(region)

	for _, cell := range covering {
		lo, hi := cell.RangeMin(), cell.RangeMax()
		start := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].cell >= lo })
		for i := start; i < len(ix.entries) && ix.entries[i].cell <= hi; i++ {
			if geo.Distance(origin, ix.entries[i].point.Coordinate) <= limit {
				hits = append(hits, ix.entries[i])
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ord < hits[j].ord })
	for _, h := range hits {
		out = append(out, domain.Candidate{Point: h.point, AerialDistanceMeters: geo.Distance(origin, h.point.Coordinate)})
	}
	return out
}
