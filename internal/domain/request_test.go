package domain

import (
	"net/url"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBBox = "7.5,51.9,7.7,52.0"

func freezeClock(t *testing.T) clockwork.Clock {
	t.Helper()
	fake := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })
	return fake
}

func TestParseInterpolationRequest_Defaults(t *testing.T) {
	fake := freezeClock(t)

	req, err := ParseInterpolationRequest(url.Values{
		"phenomenon": {"  Temperatur "},
		"bbox":       {testBBox},
	}, 48*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "Temperatur", req.Phenomenon)
	assert.Equal(t, Region{West: 7.5, South: 51.9, East: 7.7, North: 52.0}, req.Region)
	assert.Equal(t, GridHex, req.Shape)
	assert.Equal(t, Kilometers, req.Unit)
	assert.Equal(t, 50.0, req.CellWidth)
	assert.Equal(t, 1.0, req.Power)
	assert.Equal(t, 6, req.NumClasses)
	assert.Empty(t, req.Exposure)
	assert.Equal(t, fake.Now().UTC(), req.To)
	assert.Equal(t, fake.Now().UTC().Add(-48*time.Hour), req.From)
}

func TestParseInterpolationRequest_AllParams(t *testing.T) {
	freezeClock(t)

	req, err := ParseInterpolationRequest(url.Values{
		"phenomenon": {"PM10"},
		"bbox":       {testBBox},
		"exposure":   {"outdoor"},
		"gridType":   {"triangle"},
		"cellUnit":   {"miles"},
		"cellWidth":  {"2.5"},
		"power":      {"2"},
		"numClasses": {"4"},
		"from-date":  {"2024-04-20T00:00:00Z"},
		"to-date":    {"2024-04-21T00:00:00Z"},
	}, 48*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "outdoor", req.Exposure)
	assert.Equal(t, GridTriangle, req.Shape)
	assert.Equal(t, Miles, req.Unit)
	assert.Equal(t, 2.5, req.CellWidth)
	assert.Equal(t, 2.0, req.Power)
	assert.Equal(t, 4, req.NumClasses)
	assert.Equal(t, time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), req.From)
	assert.Equal(t, time.Date(2024, 4, 21, 0, 0, 0, 0, time.UTC), req.To)
}

func TestParseInterpolationRequest_Invalid(t *testing.T) {
	freezeClock(t)

	cases := map[string]url.Values{
		"missing phenomenon": {"bbox": {testBBox}},
		"blank phenomenon":   {"phenomenon": {"   "}, "bbox": {testBBox}},
		"missing bbox":       {"phenomenon": {"PM10"}},
		"short bbox":         {"phenomenon": {"PM10"}, "bbox": {"1,2,3"}},
		"bbox not a number":  {"phenomenon": {"PM10"}, "bbox": {"a,2,3,4"}},
		"bbox out of range":  {"phenomenon": {"PM10"}, "bbox": {"-200,0,1,1"}},
		"bad exposure":       {"phenomenon": {"PM10"}, "bbox": {testBBox}, "exposure": {"mobile"}},
		"bad gridType":       {"phenomenon": {"PM10"}, "bbox": {testBBox}, "gridType": {"circle"}},
		"bad cellUnit":       {"phenomenon": {"PM10"}, "bbox": {testBBox}, "cellUnit": {"feet"}},
		"bad cellWidth":      {"phenomenon": {"PM10"}, "bbox": {testBBox}, "cellWidth": {"wide"}},
		"NaN power":          {"phenomenon": {"PM10"}, "bbox": {testBBox}, "power": {"NaN"}},
		"fractional classes": {"phenomenon": {"PM10"}, "bbox": {testBBox}, "numClasses": {"2.5"}},
		"bad from-date":      {"phenomenon": {"PM10"}, "bbox": {testBBox}, "from-date": {"yesterday"}},
		"inverted window": {
			"phenomenon": {"PM10"}, "bbox": {testBBox},
			"from-date": {"2024-04-22T00:00:00Z"}, "to-date": {"2024-04-21T00:00:00Z"},
		},
	}

	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseInterpolationRequest(q, 48*time.Hour)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadInput)
		})
	}
}

func TestParseInterpolationRequest_RangeChecksDeferredToEngine(t *testing.T) {
	freezeClock(t)

	req, err := ParseInterpolationRequest(url.Values{
		"phenomenon": {"PM10"},
		"bbox":       {testBBox},
		"power":      {"0"},
		"numClasses": {"0"},
		"cellWidth":  {"-1"},
	}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0.0, req.Power)
	assert.Equal(t, 0, req.NumClasses)
	assert.Equal(t, -1.0, req.CellWidth)
}

func TestUnitToKilometers(t *testing.T) {
	assert.Equal(t, 5.0, Kilometers.ToKilometers(5))
	assert.InDelta(t, 16.09344, Miles.ToKilometers(10), 1e-12)
}

func TestRegionPolygon(t *testing.T) {
	r := Region{West: 1, South: 2, East: 3, North: 4}
	ring := r.Polygon()[0]

	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4], "ring must be closed")
	assert.False(t, r.Degenerate())
	assert.True(t, Region{West: 1, South: 2, East: 1, North: 4}.Degenerate())
	assert.True(t, Region{West: 3, South: 2, East: 1, North: 4}.Degenerate())
}

func TestClassBreaksNumClasses(t *testing.T) {
	assert.Equal(t, 0, ClassBreaks(nil).NumClasses())
	assert.Equal(t, 3, ClassBreaks{0, 1, 2, 3}.NumClasses())
}
