package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Request defaults for GET /statistics/idw.
const (
	DefaultGridShape  = GridHex
	DefaultUnit       = Kilometers
	DefaultCellWidth  = 50.0
	DefaultPower      = 1.0
	DefaultNumClasses = 6
)

// InterpolationRequest is the typed, defaulted form of an IDW query. It is
// assembled once at the transport boundary; the engine never sees raw
// parameters.
type InterpolationRequest struct {
	Phenomenon string
	Exposure   string
	Region     Region
	From       time.Time
	To         time.Time
	Shape      GridShape
	Unit       Unit
	CellWidth  float64
	Power      float64
	NumClasses int
}

// ParseInterpolationRequest reads query parameters, applies defaults and
// validates formats. Range checks on power, numClasses and cellWidth are left
// to the engine so they surface as ErrInvalidParameter. window is the default
// measurement time span ending now.
func ParseInterpolationRequest(q url.Values, window time.Duration) (InterpolationRequest, error) {
	req := InterpolationRequest{
		Shape:      DefaultGridShape,
		Unit:       DefaultUnit,
		CellWidth:  DefaultCellWidth,
		Power:      DefaultPower,
		NumClasses: DefaultNumClasses,
	}

	req.Phenomenon = strings.TrimSpace(q.Get("phenomenon"))
	if req.Phenomenon == "" {
		return InterpolationRequest{}, fmt.Errorf("%w: invalid phenomenon parameter", ErrBadInput)
	}

	bbox := strings.TrimSpace(q.Get("bbox"))
	if bbox == "" {
		return InterpolationRequest{}, fmt.Errorf("%w: please specify bbox", ErrBadInput)
	}
	region, err := ParseBBox(bbox)
	if err != nil {
		return InterpolationRequest{}, err
	}
	req.Region = region

	if err := parseTimeWindow(q, window, &req); err != nil {
		return InterpolationRequest{}, err
	}

	if v := q.Get("exposure"); v != "" {
		if v != ExposureIndoor && v != ExposureOutdoor {
			return InterpolationRequest{}, fmt.Errorf("%w: exposure %q must be indoor or outdoor", ErrBadInput, v)
		}
		req.Exposure = v
	}
	if v := q.Get("gridType"); v != "" {
		if req.Shape, err = ParseGridShape(v); err != nil {
			return InterpolationRequest{}, err
		}
	}
	if v := q.Get("cellUnit"); v != "" {
		if req.Unit, err = ParseUnit(v); err != nil {
			return InterpolationRequest{}, err
		}
	}
	if req.CellWidth, err = floatParam(q, "cellWidth", req.CellWidth); err != nil {
		return InterpolationRequest{}, err
	}
	if req.Power, err = floatParam(q, "power", req.Power); err != nil {
		return InterpolationRequest{}, err
	}
	if v := q.Get("numClasses"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return InterpolationRequest{}, fmt.Errorf("%w: numClasses %q is not an integer", ErrBadInput, v)
		}
		req.NumClasses = n
	}

	return req, nil
}

// ParseBBox parses "west,south,east,north" into a Region.
func ParseBBox(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("%w: bbox needs 4 comma separated coordinates", ErrBadInput)
	}
	var c [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || !isFinite(v) {
			return Region{}, fmt.Errorf("%w: bbox coordinate %q is not a number", ErrBadInput, p)
		}
		c[i] = v
	}
	r := Region{West: c[0], South: c[1], East: c[2], North: c[3]}
	if r.West < -180 || r.East > 180 || r.South < -90 || r.North > 90 {
		return Region{}, fmt.Errorf("%w: bbox outside WGS-84 bounds", ErrBadInput)
	}
	return r, nil
}

func parseTimeWindow(q url.Values, window time.Duration, req *InterpolationRequest) error {
	now := Now()
	req.To = now
	req.From = now.Add(-window)

	if v := q.Get("to-date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fmt.Errorf("%w: to-date %q is not RFC3339", ErrBadInput, v)
		}
		req.To = t.UTC()
		req.From = req.To.Add(-window)
	}
	if v := q.Get("from-date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fmt.Errorf("%w: from-date %q is not RFC3339", ErrBadInput, v)
		}
		req.From = t.UTC()
	}
	if !req.From.Before(req.To) {
		return fmt.Errorf("%w: from-date must be before to-date", ErrBadInput)
	}
	return nil
}

func floatParam(q url.Values, name string, def float64) (float64, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || !isFinite(f) {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrBadInput, name, v)
	}
	return f, nil
}

// MeasurementQuery selects the stored measurements an interpolation reads.
type MeasurementQuery struct {
	Phenomenon string
	Exposure   string
	Region     Region
	From       time.Time
	To         time.Time
}

// MeasurementQuery returns the storage filter for req.
func (req InterpolationRequest) MeasurementQuery() MeasurementQuery {
	return MeasurementQuery{
		Phenomenon: req.Phenomenon,
		Exposure:   req.Exposure,
		Region:     req.Region,
		From:       req.From,
		To:         req.To,
	}
}
