package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
	"github.com/couchcryptid/sensor-idw-service/internal/geometry"
	"github.com/couchcryptid/sensor-idw-service/internal/interpolation"
	"github.com/couchcryptid/sensor-idw-service/internal/observability"
)

// Params is the immutable configuration of one interpolation.
type Params struct {
	Region     domain.Region
	Shape      domain.GridShape
	CellWidth  float64
	Unit       domain.Unit
	Power      float64
	NumClasses int
	Workers    int
}

// ParamsFromRequest copies the engine settings out of a parsed request.
func ParamsFromRequest(req domain.InterpolationRequest, workers int) Params {
	return Params{
		Region:     req.Region,
		Shape:      req.Shape,
		CellWidth:  req.CellWidth,
		Unit:       req.Unit,
		Power:      req.Power,
		NumClasses: req.NumClasses,
		Workers:    workers,
	}
}

func (p Params) validate() error {
	if err := interpolation.ValidatePower(p.Power); err != nil {
		return err
	}
	if err := interpolation.ValidateNumClasses(p.NumClasses); err != nil {
		return err
	}
	if !(p.CellWidth > 0) {
		return fmt.Errorf("%w: %w: cellWidth must be > 0, got %v", domain.ErrInvalidGrid, domain.ErrInvalidParameter, p.CellWidth)
	}
	if p.Region.Degenerate() {
		return fmt.Errorf("%w: region has zero area", domain.ErrInvalidGrid)
	}
	switch p.Shape {
	case domain.GridHex, domain.GridSquare, domain.GridTriangle:
	default:
		return fmt.Errorf("%w: unknown grid shape %q", domain.ErrInvalidParameter, p.Shape)
	}
	switch p.Unit {
	case domain.Kilometers, domain.Miles:
	default:
		return fmt.Errorf("%w: unknown cell unit %q", domain.ErrInvalidParameter, p.Unit)
	}
	return nil
}

// Interpolator runs the two-phase IDW computation: it materializes the
// known-point set and all estimates, then hands back a lazy feature stream.
type Interpolator struct {
	params  Params
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewInterpolator validates params before any I/O happens.
func NewInterpolator(params Params, logger *slog.Logger, metrics *observability.Metrics) (*Interpolator, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if params.Workers < 1 {
		params.Workers = 1
	}
	return &Interpolator{params: params, logger: logger, metrics: metrics}, nil
}

// Result is the outcome of a successful run. Features must be drained at most
// once; Breaks, Cells and KnownPoints are final.
type Result struct {
	Breaks      domain.ClassBreaks
	Cells       int
	KnownPoints int
	Features    *FeatureStream
}

// run tracks the state machine of a single Run call.
type run struct {
	stage   Stage
	entered time.Time
	logger  *slog.Logger
	metrics *observability.Metrics
}

func (r *run) advance(next Stage) {
	now := time.Now()
	if r.stage != StageStart {
		r.metrics.StageDuration.WithLabelValues(r.stage.String()).Observe(now.Sub(r.entered).Seconds())
	}
	r.logger.Debug("interpolation stage", "from", r.stage.String(), "to", next.String())
	r.stage = next
	r.entered = now
}

// fail moves the run to a terminal state and returns err. Errors that are not
// already part of the caller-facing taxonomy are wrapped as computation
// failures. Cancellation is passed through untouched.
func (r *run) fail(err error) error {
	if domain.Outcome(err) == domain.OutcomeCostRejected {
		r.advance(StageRejected)
		return err
	}
	failed := r.stage
	r.advance(StageFailed)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if domain.Outcome(err) == domain.OutcomeBadInput || errors.Is(err, domain.ErrComputationFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrComputationFailed, failed, err)
}

// Run executes every stage up to EmitFeatures. open is called only once the
// cost check passes, and the source is fully drained and closed before the
// grid is built. On error nothing is returned besides the error.
func (ip *Interpolator) Run(ctx context.Context, open OpenFunc) (*Result, error) {
	r := &run{stage: StageStart, entered: time.Now(), logger: ip.logger, metrics: ip.metrics}
	p := ip.params

	r.advance(StageCostCheck)
	if err := interpolation.CheckCost(geometry.AreaSqKm(p.Region), p.Unit.ToKilometers(p.CellWidth)); err != nil {
		return nil, r.fail(err)
	}

	r.advance(StageAggregatePoints)
	known, err := ip.aggregate(ctx, open)
	if err != nil {
		return nil, r.fail(err)
	}
	ip.metrics.KnownPoints.Observe(float64(len(known)))

	r.advance(StageBuildGrid)
	cells, err := geometry.BuildGrid(p.Region, p.Shape, p.CellWidth, p.Unit)
	if err != nil {
		return nil, r.fail(err)
	}

	r.advance(StageEstimateAll)
	est, err := interpolation.NewEstimator(known, p.Power)
	if err != nil {
		return nil, r.fail(err)
	}
	centroids := make([]orb.Point, len(cells))
	for i := range cells {
		centroids[i] = cells[i].Centroid
	}
	estimates, err := est.EstimateAll(ctx, centroids, p.Workers)
	if err != nil {
		return nil, r.fail(err)
	}
	ip.metrics.CellsEstimated.Add(float64(len(cells)))

	r.advance(StageClassify)
	values := make([]float64, 0, len(estimates))
	for _, e := range estimates {
		if e.Defined {
			values = append(values, e.Value)
		}
	}
	breaks, classOf, err := interpolation.Classify(values, p.NumClasses)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := checkFinite(values, breaks); err != nil {
		return nil, r.fail(err)
	}

	r.advance(StageEmitFeatures)
	ip.logger.Debug("interpolation computed",
		"known_points", len(known),
		"cells", len(cells),
		"defined", len(values),
		"breaks", []float64(breaks),
	)

	return &Result{
		Breaks:      breaks,
		Cells:       len(cells),
		KnownPoints: len(known),
		Features: &FeatureStream{
			cells:     cells,
			estimates: estimates,
			classOf:   classOf,
			done: func(emitted int) {
				ip.metrics.FeaturesEmitted.Add(float64(emitted))
				r.advance(StageDone)
			},
		},
	}, nil
}

// checkFinite rejects estimates or breaks that cannot be encoded as JSON
// numbers. It runs before the first feature is written.
func checkFinite(values []float64, breaks domain.ClassBreaks) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("estimate %d is not finite: %v", i, v)
		}
	}
	for k, b := range breaks {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return fmt.Errorf("class break %d is not finite: %v", k, b)
		}
	}
	return nil
}

// aggregate drains the source into the known-point set.
func (ip *Interpolator) aggregate(ctx context.Context, open OpenFunc) ([]domain.KnownPoint, error) {
	src, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open point source: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			ip.logger.Warn("close point source failed", "error", cerr)
		}
	}()

	agg := interpolation.NewAggregator()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pt, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read point source: %w", err)
		}
		agg.Add(pt)
	}
	if agg.Skipped() > 0 {
		ip.metrics.SkippedPoints.Add(float64(agg.Skipped()))
		ip.logger.Debug("skipped non-finite measurement points", "count", agg.Skipped())
	}
	return agg.KnownPoints(), nil
}

// FeatureStream yields the interpolated features of a finished computation in
// grid order. Cells without a defined estimate are omitted. The stream is not
// restartable and must not be shared between goroutines.
type FeatureStream struct {
	cells     []domain.GridCell
	estimates []interpolation.Estimate
	classOf   func(float64) int
	pos       int
	emitted   int
	done      func(emitted int)
}

// Next returns the next feature, or false once the stream is exhausted.
func (s *FeatureStream) Next() (domain.InterpolatedFeature, bool) {
	for s.pos < len(s.cells) {
		i := s.pos
		s.pos++
		if !s.estimates[i].Defined {
			continue
		}
		s.emitted++
		v := s.estimates[i].Value
		return domain.InterpolatedFeature{
			Cell:           s.cells[i],
			EstimatedValue: v,
			ClassIndex:     s.classOf(v),
		}, true
	}
	if s.done != nil {
		s.done(s.emitted)
		s.done = nil
	}
	return domain.InterpolatedFeature{}, false
}

// Emitted returns how many features have been produced so far.
func (s *FeatureStream) Emitted() int { return s.emitted }
