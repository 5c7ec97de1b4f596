package domain

import "errors"

var (
	// ErrBadInput marks a request the caller can fix: missing phenomenon,
	// malformed bbox, unparsable numbers.
	ErrBadInput = errors.New("bad input")

	// ErrInvalidParameter marks an out-of-range engine parameter
	// (power, numClasses or cellWidth).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidGrid marks a region that cannot be tessellated.
	ErrInvalidGrid = errors.New("invalid grid")

	// ErrCostRejected marks a request whose area/cellWidth ratio exceeds the
	// cost ceiling. It is a policy decision, not a fault.
	ErrCostRejected = errors.New("computation too expensive")

	// ErrComputationFailed wraps unexpected faults during aggregation or
	// estimation. Its details are logged, never returned to clients.
	ErrComputationFailed = errors.New("computation failed")
)

// Outcome labels used in logs, metrics and HTTP status mapping.
const (
	OutcomeOK           = "ok"
	OutcomeBadInput     = "bad_input"
	OutcomeCostRejected = "cost_rejected"
	OutcomeFailed       = "failed"
)

// Outcome classifies err into one of the Outcome* labels. A nil error is OK;
// anything not recognised is treated as a computation failure.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrCostRejected):
		return OutcomeCostRejected
	case errors.Is(err, ErrBadInput), errors.Is(err, ErrInvalidParameter), errors.Is(err, ErrInvalidGrid):
		return OutcomeBadInput
	default:
		return OutcomeFailed
	}
}
