package interpolation

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
	"github.com/couchcryptid/sensor-idw-service/internal/geometry"
)

// Estimate is the IDW result for one centroid. Defined is false when there
// were no known points to interpolate from.
type Estimate struct {
	Value   float64
	Defined bool
}

// Estimator computes inverse distance weighted estimates from a fixed set of
// known points. It is safe for concurrent use.
type Estimator struct {
	points   []domain.KnownPoint
	power    float64
	min, max float64
}

// NewEstimator validates power and captures the known-point set. An empty set
// is valid and yields undefined estimates everywhere.
func NewEstimator(points []domain.KnownPoint, power float64) (*Estimator, error) {
	if err := ValidatePower(power); err != nil {
		return nil, err
	}
	e := &Estimator{points: points, power: power, min: math.Inf(1), max: math.Inf(-1)}
	for _, p := range points {
		e.min = math.Min(e.min, p.Value)
		e.max = math.Max(e.max, p.Value)
	}
	return e, nil
}

// ValidatePower rejects non-positive or non-finite IDW exponents.
func ValidatePower(power float64) error {
	if !(power > 0) || math.IsInf(power, 0) {
		return fmt.Errorf("%w: power must be > 0, got %v", domain.ErrInvalidParameter, power)
	}
	return nil
}

// Estimate interpolates the value at c.
//
// A known point at distance zero returns its value exactly. Otherwise weights
// are taken relative to the nearest point, w = (dmin/d)^power, which keeps
// every weight in (0, 1] and avoids overflow for large exponents while
// leaving the weighted mean unchanged. The result is clamped to the range of
// known values to absorb rounding.
func (e *Estimator) Estimate(c orb.Point) Estimate {
	if len(e.points) == 0 {
		return Estimate{}
	}

	dist := make([]float64, len(e.points))
	dmin := math.Inf(1)
	for i, p := range e.points {
		d := geometry.DistanceKm(orb.Point{p.Lng, p.Lat}, c)
		if d == 0 {
			return Estimate{Value: p.Value, Defined: true}
		}
		dist[i] = d
		dmin = math.Min(dmin, d)
	}

	var sumW, sumWV float64
	for i, p := range e.points {
		w := math.Pow(dmin/dist[i], e.power)
		sumW += w
		sumWV += w * p.Value
	}

	v := sumWV / sumW
	return Estimate{Value: math.Max(e.min, math.Min(e.max, v)), Defined: true}
}

// EstimateAll computes one estimate per centroid, splitting the work into
// contiguous chunks across up to workers goroutines. Each result slot is
// written by exactly one goroutine, so the output equals a sequential run.
func (e *Estimator) EstimateAll(ctx context.Context, centroids []orb.Point, workers int) ([]Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Estimate, len(centroids))
	if len(e.points) == 0 || len(centroids) == 0 {
		return out, nil
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (len(centroids) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(centroids); start += chunk {
		end := min(start+chunk, len(centroids))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if (i-start)%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				out[i] = e.Estimate(centroids[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
