package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

// ceilSlack absorbs floating error when a region is an exact multiple of the
// cell width, e.g. 10km / 5km must give 2 columns, not 3.
const ceilSlack = 1e-9

// vec is a position in a local planar frame, in kilometers, centered on the
// region's center.
type vec struct{ x, y float64 }

// frame maps between the local kilometer plane and WGS-84 degrees using an
// equirectangular projection anchored at the region center.
type frame struct {
	centerLng, centerLat float64
	kmPerDegLng          float64
	kmPerDegLat          float64
	width, height        float64 // region extent in km
}

func newFrame(r domain.Region) frame {
	centerLat := (r.South + r.North) / 2
	f := frame{
		centerLng:   (r.West + r.East) / 2,
		centerLat:   centerLat,
		kmPerDegLat: kmPerDegree,
		kmPerDegLng: kmPerDegree * math.Cos(centerLat*math.Pi/180),
	}
	f.width = (r.East - r.West) * f.kmPerDegLng
	f.height = (r.North - r.South) * f.kmPerDegLat
	return f
}

func (f frame) toPoint(v vec) orb.Point {
	return orb.Point{f.centerLng + v.x/f.kmPerDegLng, f.centerLat + v.y/f.kmPerDegLat}
}

func (f frame) ring(vs []vec) orb.Ring {
	ring := make(orb.Ring, 0, len(vs)+1)
	for _, v := range vs {
		ring = append(ring, f.toPoint(v))
	}
	return append(ring, ring[0])
}

// BuildGrid tessellates region with cells of the given shape and width. The
// union of the returned cells covers the region; edge cells may overhang it.
// Cells are enumerated column by column (west to east), bottom to top within a
// column, so identical inputs always yield the identical sequence.
func BuildGrid(region domain.Region, shape domain.GridShape, cellWidth float64, unit domain.Unit) ([]domain.GridCell, error) {
	if !(cellWidth > 0) || math.IsInf(cellWidth, 0) {
		return nil, fmt.Errorf("%w: %w: cellWidth must be > 0, got %v", domain.ErrInvalidGrid, domain.ErrInvalidParameter, cellWidth)
	}
	if region.Degenerate() {
		return nil, fmt.Errorf("%w: region has zero area", domain.ErrInvalidGrid)
	}

	f := newFrame(region)
	if !(f.width > 0) || !(f.height > 0) {
		return nil, fmt.Errorf("%w: region has zero area", domain.ErrInvalidGrid)
	}
	side := unit.ToKilometers(cellWidth)

	var polys [][]vec
	switch shape {
	case domain.GridSquare:
		polys = squareCells(f.width, f.height, side)
	case domain.GridTriangle:
		polys = triangleCells(f.width, f.height, side)
	case domain.GridHex:
		polys = hexCells(f.width, f.height, side)
	default:
		return nil, fmt.Errorf("%w: unknown grid shape %q", domain.ErrInvalidGrid, shape)
	}

	cells := make([]domain.GridCell, len(polys))
	for i, p := range polys {
		cells[i] = domain.GridCell{
			Index:    i,
			Polygon:  orb.Polygon{f.ring(p)},
			Centroid: f.toPoint(centroid(p)),
		}
	}
	return cells, nil
}

// cellsAlong returns how many cells of size step cover length.
func cellsAlong(length, step float64) int {
	n := int(math.Ceil(length/step - ceilSlack))
	if n < 1 {
		return 1
	}
	return n
}

// squareOrigins yields the south-west corner of every square in a centered
// nx by ny block, column-major.
func squareOrigins(w, h, side float64) []vec {
	nx, ny := cellsAlong(w, side), cellsAlong(h, side)
	x0 := -float64(nx) * side / 2
	y0 := -float64(ny) * side / 2

	out := make([]vec, 0, nx*ny)
	for c := 0; c < nx; c++ {
		for r := 0; r < ny; r++ {
			out = append(out, vec{x0 + float64(c)*side, y0 + float64(r)*side})
		}
	}
	return out
}

func squareCells(w, h, side float64) [][]vec {
	origins := squareOrigins(w, h, side)
	cells := make([][]vec, 0, len(origins))
	for _, o := range origins {
		cells = append(cells, []vec{
			o,
			{o.x + side, o.y},
			{o.x + side, o.y + side},
			{o.x, o.y + side},
		})
	}
	return cells
}

// triangleCells splits each square of the square grid into two triangles,
// alternating the diagonal like a checkerboard.
func triangleCells(w, h, side float64) [][]vec {
	ny := cellsAlong(h, side)
	origins := squareOrigins(w, h, side)
	cells := make([][]vec, 0, 2*len(origins))
	for i, o := range origins {
		c, r := i/ny, i%ny
		sw, se := o, vec{o.x + side, o.y}
		ne, nw := vec{o.x + side, o.y + side}, vec{o.x, o.y + side}
		if (c+r)%2 == 0 {
			cells = append(cells, []vec{sw, se, ne}, []vec{sw, ne, nw})
		} else {
			cells = append(cells, []vec{sw, se, nw}, []vec{se, ne, nw})
		}
	}
	return cells
}

// hexCells lays out flat-topped hexagons with circumradius side on a lattice
// centered on the region and keeps those that overlap it. Odd columns are
// shifted up by half a row.
func hexCells(w, h, side float64) [][]vec {
	dx := 1.5 * side
	dy := math.Sqrt(3) * side
	rect := []vec{{-w / 2, -h / 2}, {w / 2, -h / 2}, {w / 2, h / 2}, {-w / 2, h / 2}}

	cmax := int(math.Ceil((w/2+side)/dx)) + 1
	rmax := int(math.Ceil((h/2+dy)/dy)) + 1

	var cells [][]vec
	for c := -cmax; c <= cmax; c++ {
		shift := 0.0
		if c%2 != 0 {
			shift = dy / 2
		}
		for r := -rmax; r <= rmax; r++ {
			center := vec{float64(c) * dx, float64(r)*dy + shift}
			hex := hexagon(center, side)
			if overlaps(hex, rect) {
				cells = append(cells, hex)
			}
		}
	}
	return cells
}

func hexagon(center vec, radius float64) []vec {
	vs := make([]vec, 6)
	for k := range vs {
		a := float64(k) * math.Pi / 3
		vs[k] = vec{center.x + radius*math.Cos(a), center.y + radius*math.Sin(a)}
	}
	return vs
}

func centroid(vs []vec) vec {
	var c vec
	for _, v := range vs {
		c.x += v.x
		c.y += v.y
	}
	n := float64(len(vs))
	return vec{c.x / n, c.y / n}
}

// overlaps reports whether two convex polygons share interior area, using the
// separating axis theorem. Polygons that merely touch do not overlap.
func overlaps(a, b []vec) bool {
	for _, poly := range [][]vec{a, b} {
		for i := range poly {
			p, q := poly[i], poly[(i+1)%len(poly)]
			axis := vec{-(q.y - p.y), q.x - p.x}
			amin, amax := project(a, axis)
			bmin, bmax := project(b, axis)
			if amax <= bmin+ceilSlack || bmax <= amin+ceilSlack {
				return false
			}
		}
	}
	return true
}

func project(poly []vec, axis vec) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range poly {
		d := v.x*axis.x + v.y*axis.y
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}
