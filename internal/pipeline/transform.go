package pipeline

import (
	"context"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

// MeasurementTransformer implements Transformer using domain.ParseRawMessage.
type MeasurementTransformer struct{}

// NewTransformer creates a MeasurementTransformer.
func NewTransformer() *MeasurementTransformer {
	return &MeasurementTransformer{}
}

func (*MeasurementTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.Measurement, error) {
	return domain.ParseRawMessage(raw)
}
