package domain

import "time"

// InterpolationSummary is the completion event published after a
// FeatureCollection has been written. It never carries the grid itself.
type InterpolationSummary struct {
	RequestID   string      `json:"requestId"`
	Phenomenon  string      `json:"phenomenon"`
	GridType    GridShape   `json:"gridType"`
	Cells       int         `json:"cells"`
	Features    int         `json:"features"`
	KnownPoints int         `json:"knownPoints"`
	Breaks      ClassBreaks `json:"breaks"`
	DurationMs  int64       `json:"durationMs"`
	ComputedAt  time.Time   `json:"computedAt"`
}
