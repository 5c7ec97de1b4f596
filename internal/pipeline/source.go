package pipeline

import (
	"context"
	"io"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

// PointSource is a pull-based stream of measurement points for one
// phenomenon. Next returns io.EOF once the stream is exhausted. The
// interpolator asks for the next point only after it has consumed the
// previous one.
type PointSource interface {
	Next(ctx context.Context) (domain.MeasurementPoint, error)
	Close() error
}

// OpenFunc opens the point source for a run. It is called only after the
// cost check has passed, so rejected requests never touch storage.
type OpenFunc func(ctx context.Context) (PointSource, error)

// SliceSource serves points from memory.
type SliceSource struct {
	points []domain.MeasurementPoint
	pos    int
}

// NewSliceSource returns a source over points.
func NewSliceSource(points []domain.MeasurementPoint) *SliceSource {
	return &SliceSource{points: points}
}

func (s *SliceSource) Next(ctx context.Context) (domain.MeasurementPoint, error) {
	if err := ctx.Err(); err != nil {
		return domain.MeasurementPoint{}, err
	}
	if s.pos >= len(s.points) {
		return domain.MeasurementPoint{}, io.EOF
	}
	p := s.points[s.pos]
	s.pos++
	return p, nil
}

func (s *SliceSource) Close() error { return nil }

// Open adapts s to an OpenFunc.
func (s *SliceSource) Open(context.Context) (PointSource, error) {
	return s, nil
}
