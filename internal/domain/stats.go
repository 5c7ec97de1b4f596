package domain

import "encoding/json"

// DatabaseStats summarizes the measurement store for GET /stats.
type DatabaseStats struct {
	Boxes                  int64
	Measurements           int64
	MeasurementsLastMinute int64
}

// MarshalJSON encodes the stats as [boxes, measurements, lastMinute].
func (s DatabaseStats) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int64{s.Boxes, s.Measurements, s.MeasurementsLastMinute})
}
