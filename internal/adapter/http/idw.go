package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
	"github.com/couchcryptid/sensor-idw-service/internal/observability"
	"github.com/couchcryptid/sensor-idw-service/internal/pipeline"
)

// MeasurementStore opens point streams for interpolation requests.
type MeasurementStore interface {
	Opener(q domain.MeasurementQuery) pipeline.OpenFunc
}

// SummaryPublisher receives one event per successfully written response.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, s domain.InterpolationSummary) error
}

// IDWOptions tunes the interpolation endpoint.
type IDWOptions struct {
	Workers    int
	FlushEvery int
	Window     time.Duration
	Summaries  SummaryPublisher
}

// IDWHandler serves GET /statistics/idw.
type IDWHandler struct {
	store   MeasurementStore
	opts    IDWOptions
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewIDWHandler creates the interpolation handler.
func NewIDWHandler(store MeasurementStore, opts IDWOptions, metrics *observability.Metrics, logger *slog.Logger) *IDWHandler {
	return &IDWHandler{store: store, opts: opts, metrics: metrics, logger: logger}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *IDWHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := r.Header.Get(requestIDHeader)
	logger := h.logger.With("request_id", reqID)
	ctx := r.Context()

	req, err := domain.ParseInterpolationRequest(r.URL.Query(), h.opts.Window)
	if err != nil {
		h.fail(w, logger, err)
		return
	}
	logger = logger.With("phenomenon", req.Phenomenon, "grid_type", req.Shape)

	ip, err := pipeline.NewInterpolator(pipeline.ParamsFromRequest(req, h.opts.Workers), logger, h.metrics)
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	res, err := ip.Run(ctx, h.store.Opener(req.MeasurementQuery()))
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	n, err := pipeline.WriteFeatureCollection(ctx, w, res, h.opts.FlushEvery)
	if err != nil {
		// Headers are gone; the client sees a truncated body.
		h.metrics.InterpolationRequests.WithLabelValues(domain.OutcomeFailed).Inc()
		if ctx.Err() != nil {
			logger.Info("feature stream aborted by client", "error", err, "features_written", n)
			return
		}
		logger.Error("feature stream failed",
			"error", err,
			"features_written", n,
			"cells", res.Cells,
			"known_points", res.KnownPoints,
			"breaks", []float64(res.Breaks),
		)
		return
	}
	h.metrics.InterpolationRequests.WithLabelValues(domain.OutcomeOK).Inc()

	elapsed := time.Since(start)
	logger.Info("interpolation complete",
		"cells", res.Cells,
		"features", n,
		"known_points", res.KnownPoints,
		"duration", elapsed,
	)

	if h.opts.Summaries != nil {
		h.publish(ctx, logger, domain.InterpolationSummary{
			RequestID:   reqID,
			Phenomenon:  req.Phenomenon,
			GridType:    req.Shape,
			Cells:       res.Cells,
			Features:    n,
			KnownPoints: res.KnownPoints,
			Breaks:      res.Breaks,
			DurationMs:  elapsed.Milliseconds(),
			ComputedAt:  time.Now().UTC(),
		})
	}
}

func (h *IDWHandler) publish(ctx context.Context, logger *slog.Logger, s domain.InterpolationSummary) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.opts.Summaries.PublishSummary(ctx, s); err != nil {
		logger.Warn("publish interpolation summary failed", "error", err)
	}
}

// fail maps err to a status code and writes the error body. Internal
// failures are logged in full and reported opaquely.
func (h *IDWHandler) fail(w http.ResponseWriter, logger *slog.Logger, err error) {
	outcome := domain.Outcome(err)
	h.metrics.InterpolationRequests.WithLabelValues(outcome).Inc()

	if errors.Is(err, context.Canceled) {
		logger.Info("interpolation cancelled by client")
		return
	}

	switch outcome {
	case domain.OutcomeBadInput:
		logger.Info("interpolation rejected", "outcome", outcome, "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "BadRequest", Message: err.Error()})
	case domain.OutcomeCostRejected:
		logger.Info("interpolation rejected", "outcome", outcome, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Code: "UnprocessableEntity", Message: err.Error()})
	default:
		logger.Error("interpolation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "InternalServerError", Message: "computation failed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort error response
}
