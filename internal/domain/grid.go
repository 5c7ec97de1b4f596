package domain

import (
	"fmt"

	"github.com/paulmach/orb"
)

// GridShape selects the tessellation used to cover a region.
type GridShape string

const (
	GridHex      GridShape = "hex"
	GridSquare   GridShape = "square"
	GridTriangle GridShape = "triangle"
)

// ParseGridShape validates a gridType parameter.
func ParseGridShape(s string) (GridShape, error) {
	switch GridShape(s) {
	case GridHex, GridSquare, GridTriangle:
		return GridShape(s), nil
	default:
		return "", fmt.Errorf("%w: gridType %q must be hex, square or triangle", ErrBadInput, s)
	}
}

// Unit is the linear unit of a cell width.
type Unit string

const (
	Kilometers Unit = "kilometers"
	Miles      Unit = "miles"
)

// KilometersPerMile is the international mile.
const KilometersPerMile = 1.609344

// ParseUnit validates a cellUnit parameter.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case Kilometers, Miles:
		return Unit(s), nil
	default:
		return "", fmt.Errorf("%w: cellUnit %q must be kilometers or miles", ErrBadInput, s)
	}
}

// ToKilometers converts a length expressed in u to kilometers.
func (u Unit) ToKilometers(v float64) float64 {
	if u == Miles {
		return v * KilometersPerMile
	}
	return v
}

// Exposure filters.
const (
	ExposureIndoor  = "indoor"
	ExposureOutdoor = "outdoor"
)

// Region is a WGS-84 bounding box given by its south-west and north-east corners.
type Region struct {
	West  float64
	South float64
	East  float64
	North float64
}

// Polygon expands the box into a closed counter-clockwise ring.
func (r Region) Polygon() orb.Polygon {
	return orb.Polygon{orb.Ring{
		{r.West, r.South},
		{r.East, r.South},
		{r.East, r.North},
		{r.West, r.North},
		{r.West, r.South},
	}}
}

// Degenerate reports whether the box has no area.
func (r Region) Degenerate() bool {
	return !(r.East > r.West) || !(r.North > r.South)
}

// GridCell is one polygon of a tessellation. Index is the cell's position in
// the builder's enumeration order.
type GridCell struct {
	Index    int
	Polygon  orb.Polygon
	Centroid orb.Point // [lng, lat]
}

// ClassBreaks holds numClasses+1 ascending equal-interval boundaries.
type ClassBreaks []float64

// NumClasses returns the number of classes the breaks describe.
func (b ClassBreaks) NumClasses() int {
	if len(b) == 0 {
		return 0
	}
	return len(b) - 1
}

// InterpolatedFeature is one output unit: a cell, its estimate and its class.
type InterpolatedFeature struct {
	Cell           GridCell
	EstimatedValue float64
	ClassIndex     int
}
