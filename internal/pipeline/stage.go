package pipeline

// Stage is a step of the interpolation state machine. Stages run strictly in
// order and each consumes the complete output of the one before it.
type Stage int

const (
	StageStart Stage = iota
	StageCostCheck
	StageAggregatePoints
	StageBuildGrid
	StageEstimateAll
	StageClassify
	StageEmitFeatures
	StageDone

	// Terminal states reached instead of StageDone.
	StageRejected
	StageFailed
)

var stageNames = [...]string{
	StageStart:           "start",
	StageCostCheck:       "cost_check",
	StageAggregatePoints: "aggregate_points",
	StageBuildGrid:       "build_grid",
	StageEstimateAll:     "estimate_all",
	StageClassify:        "classify",
	StageEmitFeatures:    "emit_features",
	StageDone:            "done",
	StageRejected:        "rejected",
	StageFailed:          "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Terminal reports whether no further transition is possible from s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageRejected || s == StageFailed
}
