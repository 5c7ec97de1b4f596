package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

// StatsSource reports counts over the measurement store.
type StatsSource interface {
	Stats(ctx context.Context) (domain.DatabaseStats, error)
}

// StatsHandler serves GET /stats as [boxes, measurements, measurementsLastMinute].
type StatsHandler struct {
	source StatsSource
	logger *slog.Logger
}

func NewStatsHandler(source StatsSource, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{source: source, logger: logger}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st, err := h.source.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats query failed", "error", err, "request_id", r.Header.Get(requestIDHeader))
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "InternalServerError", Message: "statistics unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}
