package interpolation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

func TestCheckCost(t *testing.T) {
	assert.ErrorIs(t, CheckCost(30000, 1), domain.ErrCostRejected)
	assert.NoError(t, CheckCost(100, 50))

	// The ceiling itself is allowed.
	assert.NoError(t, CheckCost(2500, 1))
	assert.ErrorIs(t, CheckCost(2500.1, 1), domain.ErrCostRejected)
}

func TestCheckCost_InvalidWidth(t *testing.T) {
	assert.ErrorIs(t, CheckCost(100, 0), domain.ErrInvalidParameter)
	assert.ErrorIs(t, CheckCost(100, -3), domain.ErrInvalidParameter)
}
