package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
	"github.com/couchcryptid/sensor-idw-service/internal/pipeline"
)

func runScenario(t *testing.T, pts []domain.MeasurementPoint) *pipeline.Result {
	t.Helper()
	ip, _ := newInterpolator(t, pipeline.Params{
		Region: squareKm(10), Shape: domain.GridSquare, CellWidth: 5, Unit: domain.Kilometers,
		Power: 1, NumClasses: 4,
	})
	res, err := ip.Run(context.Background(), pipeline.NewSliceSource(pts).Open)
	require.NoError(t, err)
	return res
}

func TestWriteFeatureCollection_Shape(t *testing.T) {
	res := runScenario(t, []domain.MeasurementPoint{
		{SensorID: "a", Value: 10, Lat: 0.02, Lng: 0.02},
		{SensorID: "b", Value: 20, Lat: 0.07, Lng: 0.07},
	})

	var buf bytes.Buffer
	n, err := pipeline.WriteFeatureCollection(context.Background(), &buf, res, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 4)
	for _, f := range fc.Features {
		assert.Equal(t, "Polygon", f.Geometry.GeoJSONType())
		assert.Contains(t, f.Properties, "value")
		assert.Contains(t, f.Properties, "class")
	}

	var doc struct {
		Type   string    `json:"type"`
		Breaks []float64 `json:"breaks"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Len(t, doc.Breaks, 5)
}

func TestWriteFeatureCollection_Empty(t *testing.T) {
	res := runScenario(t, nil)

	var buf bytes.Buffer
	n, err := pipeline.WriteFeatureCollection(context.Background(), &buf, res, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[],"breaks":[]}`, buf.String())
}

func TestWriteFeatureCollection_FlushesHTTP(t *testing.T) {
	res := runScenario(t, []domain.MeasurementPoint{{SensorID: "a", Value: 3, Lat: 0.05, Lng: 0.05}})

	rec := httptest.NewRecorder()
	_, err := pipeline.WriteFeatureCollection(context.Background(), rec, res, 1)
	require.NoError(t, err)
	assert.True(t, rec.Flushed)
}

func TestWriteFeatureCollection_Cancelled(t *testing.T) {
	res := runScenario(t, []domain.MeasurementPoint{{SensorID: "a", Value: 3, Lat: 0.05, Lng: 0.05}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	n, err := pipeline.WriteFeatureCollection(ctx, &buf, res, 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestFeatureJSON(t *testing.T) {
	ring := squareKm(1).Polygon()
	data, err := pipeline.FeatureJSON(domain.InterpolatedFeature{
		Cell:           domain.GridCell{Polygon: ring},
		EstimatedValue: 12.5,
		ClassIndex:     3,
	})
	require.NoError(t, err)

	f, err := geojson.UnmarshalFeature(data)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, f.Properties.MustFloat64("value"), 0)
	assert.Equal(t, 3, f.Properties.MustInt("class"))
}
