package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

// DefaultFlushEvery is how many features are buffered between flushes when
// the caller does not choose a value.
const DefaultFlushEvery = 100

// FeatureJSON renders one interpolated feature as a GeoJSON Feature with
// "value" and "class" properties.
func FeatureJSON(f domain.InterpolatedFeature) ([]byte, error) {
	gf := geojson.NewFeature(f.Cell.Polygon)
	gf.Properties["value"] = f.EstimatedValue
	gf.Properties["class"] = f.ClassIndex
	return json.Marshal(gf)
}

// WriteFeatureCollection streams res as
// {"type":"FeatureCollection","features":[...],"breaks":[...]}.
//
// Features are pulled from res.Features one at a time, so a slow writer
// paces production. When w is an http.Flusher it is flushed every
// flushEvery features. The context is checked between features. It returns
// the number of features written.
func WriteFeatureCollection(ctx context.Context, w io.Writer, res *Result, flushEvery int) (int, error) {
	if flushEvery < 1 {
		flushEvery = DefaultFlushEvery
	}
	flusher, _ := w.(http.Flusher)
	bw := bufio.NewWriter(w)

	flush := func() error {
		if err := bw.Flush(); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	if _, err := bw.WriteString(`{"type":"FeatureCollection","features":[`); err != nil {
		return 0, err
	}

	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		f, ok := res.Features.Next()
		if !ok {
			break
		}
		data, err := FeatureJSON(f)
		if err != nil {
			return n, fmt.Errorf("encode feature %d: %w", f.Cell.Index, err)
		}
		if n > 0 {
			if err := bw.WriteByte(','); err != nil {
				return n, err
			}
		}
		if _, err := bw.Write(data); err != nil {
			return n, err
		}
		n++
		if n%flushEvery == 0 {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}

	breaks := res.Breaks
	if breaks == nil {
		breaks = domain.ClassBreaks{}
	}
	data, err := json.Marshal(breaks)
	if err != nil {
		return n, fmt.Errorf("encode breaks: %w", err)
	}
	if _, err := bw.WriteString(`],"breaks":`); err != nil {
		return n, err
	}
	if _, err := bw.Write(data); err != nil {
		return n, err
	}
	if err := bw.WriteByte('}'); err != nil {
		return n, err
	}
	return n, flush()
}
