package interpolation

import (
	"fmt"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

// CostCeiling is the maximum permitted ratio of region area in square
// kilometers to cell width in kilometers.
const CostCeiling = 2500.0

// CheckCost rejects requests whose area/cellWidth ratio exceeds CostCeiling.
// It runs before any grid is built or any point is read.
func CheckCost(areaSqKm, cellWidthKm float64) error {
	if !(cellWidthKm > 0) {
		return fmt.Errorf("%w: cellWidth must be > 0, got %v", domain.ErrInvalidParameter, cellWidthKm)
	}
	if ratio := areaSqKm / cellWidthKm; ratio > CostCeiling {
		return fmt.Errorf("%w: (area in square kilometers / cellWidth) = %.1f > %.0f", domain.ErrCostRejected, ratio, CostCeiling)
	}
	return nil
}
