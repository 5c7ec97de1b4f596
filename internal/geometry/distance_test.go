package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	p := orb.Point{7.62, 51.96}
	assert.Equal(t, 0.0, DistanceKm(p, p))

	oneDegreeNorth := DistanceKm(orb.Point{0, 0}, orb.Point{0, 1})
	assert.InDelta(t, kmPerDegree, oneDegreeNorth, 1e-6)

	// Münster to Berlin is roughly 400 km.
	assert.InDelta(t, 397, DistanceKm(orb.Point{7.6261, 51.9607}, orb.Point{13.4050, 52.5200}), 5)
}

func TestAreaSqKm(t *testing.T) {
	assert.InDelta(t, 100, AreaSqKm(equatorBox(10, 10)), 1)
	assert.InDelta(t, 400, AreaSqKm(equatorBox(20, 20)), 4)
}
