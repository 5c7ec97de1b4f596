// Command interpolate runs the IDW engine offline. Points come either from a
// JSON array of {sensorId, value, lat, lng} objects or from a measurement
// database written by the service; the FeatureCollection goes to a file or
// stdout.
//
// Usage:
//
//	go run ./cmd/interpolate \
//	  -in testdata/points.json \
//	  -bbox 7.55,51.90,7.70,52.02 \
//	  -grid square -cell-width 1 -power 2 \
//	  -out idw.geojson
//
//	go run ./cmd/interpolate -db idw.db -phenomenon temperature \
//	  -from 2024-04-24T00:00:00Z -to 2024-04-26T00:00:00Z -bbox 7.55,51.90,7.70,52.02
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/couchcryptid/sensor-idw-service/internal/adapter/sqlite"
	"github.com/couchcryptid/sensor-idw-service/internal/config"
	"github.com/couchcryptid/sensor-idw-service/internal/domain"
	"github.com/couchcryptid/sensor-idw-service/internal/observability"
	"github.com/couchcryptid/sensor-idw-service/internal/pipeline"
)

type options struct {
	in, out, db string
	phenomenon  string
	exposure    string
	from, to    string
	bbox        string
	grid, unit  string
	cellWidth   float64
	power       float64
	classes     int
	workers     int
	verbose     bool
}

func main() {
	var o options
	flag.StringVar(&o.in, "in", "", "JSON array of measurement points (\"-\" for stdin)")
	flag.StringVar(&o.db, "db", "", "measurement database to read instead of -in")
	flag.StringVar(&o.out, "out", "", "output path (default stdout)")
	flag.StringVar(&o.phenomenon, "phenomenon", "", "phenomenon to read from -db")
	flag.StringVar(&o.exposure, "exposure", "", "indoor|outdoor filter for -db")
	flag.StringVar(&o.from, "from", "", "RFC3339 start of the -db time window (default to-48h)")
	flag.StringVar(&o.to, "to", "", "RFC3339 end of the -db time window (default now)")
	flag.StringVar(&o.bbox, "bbox", "", "west,south,east,north")
	flag.StringVar(&o.grid, "grid", string(domain.DefaultGridShape), "hex|square|triangle")
	flag.StringVar(&o.unit, "unit", string(domain.DefaultUnit), "kilometers|miles")
	flag.Float64Var(&o.cellWidth, "cell-width", domain.DefaultCellWidth, "cell width in -unit")
	flag.Float64Var(&o.power, "power", domain.DefaultPower, "IDW power")
	flag.IntVar(&o.classes, "classes", domain.DefaultNumClasses, "number of classes")
	flag.IntVar(&o.workers, "workers", runtime.GOMAXPROCS(0), "estimation workers")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Parse()

	level := "info"
	if o.verbose {
		level = "debug"
	}
	logger := observability.NewLogger(&config.Config{LogLevel: level, LogFormat: "text"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, logger); err != nil {
		logger.Error("interpolation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, logger *slog.Logger) error {
	if (o.in == "") == (o.db == "") {
		return fmt.Errorf("exactly one of -in or -db is required")
	}
	if o.bbox == "" {
		return fmt.Errorf("-bbox is required")
	}
	region, err := domain.ParseBBox(o.bbox)
	if err != nil {
		return err
	}
	shape, err := domain.ParseGridShape(o.grid)
	if err != nil {
		return err
	}
	unit, err := domain.ParseUnit(o.unit)
	if err != nil {
		return err
	}

	ip, err := pipeline.NewInterpolator(pipeline.Params{
		Region:     region,
		Shape:      shape,
		CellWidth:  o.cellWidth,
		Unit:       unit,
		Power:      o.power,
		NumClasses: o.classes,
		Workers:    o.workers,
	}, logger, observability.NewMetrics())
	if err != nil {
		return err
	}

	open, closeSource, err := source(ctx, o, region, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	start := time.Now()
	res, err := ip.Run(ctx, open)
	if err != nil {
		return err
	}

	w, closeOut, err := output(o.out)
	if err != nil {
		return err
	}
	n, err := pipeline.WriteFeatureCollection(ctx, w, res, pipeline.DefaultFlushEvery)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write feature collection: %w", err)
	}

	logger.Info("interpolation written",
		"features", n,
		"cells", res.Cells,
		"known_points", res.KnownPoints,
		"breaks", []float64(res.Breaks),
		"duration", time.Since(start),
	)
	return nil
}

// source returns the point opener for -in or -db.
func source(ctx context.Context, o options, region domain.Region, logger *slog.Logger) (pipeline.OpenFunc, func(), error) {
	if o.in != "" {
		pts, err := readPoints(o.in)
		if err != nil {
			return nil, nil, err
		}
		return pipeline.NewSliceSource(pts).Open, func() {}, nil
	}

	if o.phenomenon == "" {
		return nil, nil, fmt.Errorf("-phenomenon is required with -db")
	}
	q := domain.MeasurementQuery{Phenomenon: o.phenomenon, Exposure: o.exposure, Region: region}
	q.To = time.Now().UTC()
	if o.to != "" {
		t, err := time.Parse(time.RFC3339, o.to)
		if err != nil {
			return nil, nil, fmt.Errorf("-to: %w", err)
		}
		q.To = t.UTC()
	}
	q.From = q.To.Add(-48 * time.Hour)
	if o.from != "" {
		t, err := time.Parse(time.RFC3339, o.from)
		if err != nil {
			return nil, nil, fmt.Errorf("-from: %w", err)
		}
		q.From = t.UTC()
	}

	store, err := sqlite.Open(ctx, o.db, logger)
	if err != nil {
		return nil, nil, err
	}
	return store.Opener(q), func() { _ = store.Close() }, nil
}

func readPoints(path string) ([]domain.MeasurementPoint, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open points: %w", err)
		}
		defer f.Close()
		r = f
	}
	var pts []domain.MeasurementPoint
	if err := json.NewDecoder(bufio.NewReader(r)).Decode(&pts); err != nil {
		return nil, fmt.Errorf("decode points: %w", err)
	}
	return pts, nil
}

func output(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
