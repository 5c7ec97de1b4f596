package geometry

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

// equatorBox returns a region of wKm by hKm anchored at (0,0).
func equatorBox(wKm, hKm float64) domain.Region {
	return domain.Region{West: 0, South: 0, East: wKm / kmPerDegree, North: hKm / kmPerDegree}
}

func TestBuildGrid_SquareScenario(t *testing.T) {
	region := equatorBox(10, 10)

	cells, err := BuildGrid(region, domain.GridSquare, 5, domain.Kilometers)
	require.NoError(t, err)
	require.Len(t, cells, 4)

	for i, c := range cells {
		assert.Equal(t, i, c.Index)
		require.Len(t, c.Polygon, 1)
		ring := c.Polygon[0]
		assert.Len(t, ring, 5)
		assert.Equal(t, ring[0], ring[len(ring)-1], "ring must be closed")
		assert.True(t, planar.PolygonContains(region.Polygon(), c.Centroid), "centroid %d inside region", i)
	}

	// Column-major: the first two cells share a column.
	assert.InDelta(t, cells[0].Centroid.Lon(), cells[1].Centroid.Lon(), 1e-12)
	assert.Less(t, cells[0].Centroid.Lat(), cells[1].Centroid.Lat())
	assert.Less(t, cells[0].Centroid.Lon(), cells[2].Centroid.Lon())
}

func TestBuildGrid_MilesConverted(t *testing.T) {
	mile := domain.KilometersPerMile
	cells, err := BuildGrid(equatorBox(10*mile, 10*mile), domain.GridSquare, 5, domain.Miles)
	require.NoError(t, err)
	assert.Len(t, cells, 4)
}

func TestBuildGrid_TriangleSplitsSquares(t *testing.T) {
	cells, err := BuildGrid(equatorBox(10, 10), domain.GridTriangle, 5, domain.Kilometers)
	require.NoError(t, err)
	require.Len(t, cells, 8)
	for _, c := range cells {
		assert.Len(t, c.Polygon[0], 4)
	}
}

func TestBuildGrid_PartialEdgeCellsRetained(t *testing.T) {
	cells, err := BuildGrid(equatorBox(11, 4), domain.GridSquare, 5, domain.Kilometers)
	require.NoError(t, err)
	assert.Len(t, cells, 3)
}

func TestBuildGrid_CoversRegion(t *testing.T) {
	region := domain.Region{West: 7.5, South: 51.9, East: 7.9, North: 52.1}

	for _, shape := range []domain.GridShape{domain.GridHex, domain.GridSquare, domain.GridTriangle} {
		t.Run(string(shape), func(t *testing.T) {
			cells, err := BuildGrid(region, shape, 3, domain.Kilometers)
			require.NoError(t, err)
			require.NotEmpty(t, cells)

			for i := 0; i < 20; i++ {
				for j := 0; j < 20; j++ {
					p := orb.Point{
						region.West + (float64(i)+0.37)/20*(region.East-region.West),
						region.South + (float64(j)+0.61)/20*(region.North-region.South),
					}
					assert.True(t, coveredBy(cells, p), "point %v not covered", p)
				}
			}
		})
	}
}

func TestBuildGrid_Deterministic(t *testing.T) {
	region := domain.Region{West: -0.3, South: 51.3, East: 0.2, North: 51.7}

	for _, shape := range []domain.GridShape{domain.GridHex, domain.GridSquare, domain.GridTriangle} {
		first, err := BuildGrid(region, shape, 4, domain.Kilometers)
		require.NoError(t, err)
		second, err := BuildGrid(region, shape, 4, domain.Kilometers)
		require.NoError(t, err)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("%s grid not deterministic (-first +second):\n%s", shape, diff)
		}
	}
}

func TestBuildGrid_HexagonsHaveSixSides(t *testing.T) {
	cells, err := BuildGrid(equatorBox(20, 20), domain.GridHex, 5, domain.Kilometers)
	require.NoError(t, err)
	require.NotEmpty(t, cells)
	for _, c := range cells {
		assert.Len(t, c.Polygon[0], 7)
	}
}

func TestBuildGrid_Invalid(t *testing.T) {
	region := equatorBox(10, 10)

	for _, width := range []float64{0, -5} {
		_, err := BuildGrid(region, domain.GridSquare, width, domain.Kilometers)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidGrid)
		assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	}

	_, err := BuildGrid(domain.Region{West: 1, South: 1, East: 1, North: 2}, domain.GridHex, 5, domain.Kilometers)
	assert.ErrorIs(t, err, domain.ErrInvalidGrid)

	_, err = BuildGrid(region, domain.GridShape("circle"), 5, domain.Kilometers)
	assert.ErrorIs(t, err, domain.ErrInvalidGrid)
}

func coveredBy(cells []domain.GridCell, p orb.Point) bool {
	for _, c := range cells {
		if planar.PolygonContains(c.Polygon, p) {
			return true
		}
	}
	return false
}
