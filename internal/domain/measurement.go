package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// MeasurementPoint is the projection of a stored measurement consumed by the
// interpolation engine.
type MeasurementPoint struct {
	SensorID string  `json:"sensorId"`
	Value    float64 `json:"value"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// KnownPoint is the mean of all measurement points sharing one coordinate.
type KnownPoint struct {
	Lat   float64
	Lng   float64
	Value float64
}

// Measurement is a fully attributed reading as accepted by the ingest path.
type Measurement struct {
	SensorID   string    `json:"sensorId"`
	Phenomenon string    `json:"phenomenon"`
	Exposure   string    `json:"exposure,omitempty"`
	Value      float64   `json:"value"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Point returns the engine projection of m.
func (m Measurement) Point() MeasurementPoint {
	return MeasurementPoint{SensorID: m.SensorID, Value: m.Value, Lat: m.Lat, Lng: m.Lng}
}

// RawMessage is an unprocessed ingest payload with its transport metadata.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ParseMeasurement decodes and validates one ingest payload. A missing
// createdAt is filled from the clock.
func ParseMeasurement(payload []byte) (Measurement, error) {
	return parseMeasurement(payload, time.Time{})
}

// ParseRawMessage is ParseMeasurement for a transport message: a missing
// createdAt falls back to the message timestamp before the clock.
func ParseRawMessage(raw RawMessage) (Measurement, error) {
	return parseMeasurement(raw.Value, raw.Timestamp)
}

func parseMeasurement(payload []byte, received time.Time) (Measurement, error) {
	var m Measurement
	if err := json.Unmarshal(payload, &m); err != nil {
		return Measurement{}, fmt.Errorf("%w: parse measurement: %w", ErrBadInput, err)
	}

	m.SensorID = strings.TrimSpace(m.SensorID)
	m.Phenomenon = strings.TrimSpace(m.Phenomenon)
	m.Exposure = strings.ToLower(strings.TrimSpace(m.Exposure))

	if err := validateMeasurement(m); err != nil {
		return Measurement{}, err
	}
	switch {
	case !m.CreatedAt.IsZero():
		m.CreatedAt = m.CreatedAt.UTC()
	case !received.IsZero():
		m.CreatedAt = received.UTC()
	default:
		m.CreatedAt = Now()
	}
	return m, nil
}

func validateMeasurement(m Measurement) error {
	if m.SensorID == "" {
		return fmt.Errorf("%w: sensorId is required", ErrBadInput)
	}
	if m.Phenomenon == "" {
		return fmt.Errorf("%w: phenomenon is required", ErrBadInput)
	}
	switch m.Exposure {
	case "", ExposureIndoor, ExposureOutdoor:
	default:
		return fmt.Errorf("%w: exposure %q must be indoor or outdoor", ErrBadInput, m.Exposure)
	}
	if !isFinite(m.Value) {
		return fmt.Errorf("%w: value must be finite", ErrBadInput)
	}
	if !isFinite(m.Lat) || m.Lat < -90 || m.Lat > 90 {
		return fmt.Errorf("%w: lat %v out of range", ErrBadInput, m.Lat)
	}
	if !isFinite(m.Lng) || m.Lng < -180 || m.Lng > 180 {
		return fmt.Errorf("%w: lng %v out of range", ErrBadInput, m.Lng)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
