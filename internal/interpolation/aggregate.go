package interpolation

import (
	"math"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

type coordKey struct{ lat, lng float64 }

type accumulator struct {
	lat, lng float64
	mean     float64
	count    int
}

// Aggregator collapses measurement points sharing an exact coordinate into a
// running mean. Memory grows with the number of distinct coordinates, not
// with the number of points. Groups keep first-seen order and means are
// updated in arrival order, so identical input streams yield identical means.
// The mean is updated incrementally and stays finite for any finite input.
type Aggregator struct {
	index   map[coordKey]int
	groups  []accumulator
	skipped int
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{index: make(map[coordKey]int)}
}

// Add folds p into its coordinate group. Points with a non-finite value or
// coordinate are dropped and counted; Add reports whether p was kept.
func (a *Aggregator) Add(p domain.MeasurementPoint) bool {
	if !finite(p.Value) || !finite(p.Lat) || !finite(p.Lng) {
		a.skipped++
		return false
	}
	key := coordKey{p.Lat, p.Lng}
	i, ok := a.index[key]
	if !ok {
		i = len(a.groups)
		a.index[key] = i
		a.groups = append(a.groups, accumulator{lat: p.Lat, lng: p.Lng})
	}
	g := &a.groups[i]
	g.count++
	g.mean += (p.Value - g.mean) / float64(g.count)
	return true
}

// Len returns the number of distinct coordinates seen so far.
func (a *Aggregator) Len() int { return len(a.groups) }

// Skipped returns the number of dropped non-finite points.
func (a *Aggregator) Skipped() int { return a.skipped }

// KnownPoints returns one mean-valued point per distinct coordinate in
// first-seen order.
func (a *Aggregator) KnownPoints() []domain.KnownPoint {
	out := make([]domain.KnownPoint, len(a.groups))
	for i, g := range a.groups {
		out[i] = domain.KnownPoint{Lat: g.lat, Lng: g.lng, Value: g.mean}
	}
	return out
}

// Aggregate is a convenience wrapper for in-memory point sets.
func Aggregate(points []domain.MeasurementPoint) []domain.KnownPoint {
	a := NewAggregator()
	for _, p := range points {
		a.Add(p)
	}
	return a.KnownPoints()
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
