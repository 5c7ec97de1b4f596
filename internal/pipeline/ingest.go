package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
	"github.com/couchcryptid/sensor-idw-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw measurement messages from a source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// Transformer turns a raw message into a validated measurement.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawMessage) (domain.Measurement, error)
}

// BatchLoader persists a batch of measurements.
type BatchLoader interface {
	InsertBatch(ctx context.Context, batch []domain.Measurement) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Ingest runs the extract-transform-load loop that fills the measurement store.
type Ingest struct {
	name        string
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// NewIngest creates an ingest loop. name identifies the source in logs.
func NewIngest(name string, e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Ingest {
	return &Ingest{
		name:        name,
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger.With("source", name),
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once at least one batch has been stored.
func (p *Ingest) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New(p.name + " ingest has not stored any measurements yet")
	}
	return nil
}

// Run executes the batch ingest loop until the context is cancelled.
func (p *Ingest) Run(ctx context.Context) error {
	p.logger.Info("ingest started", "batch_size", p.batchSize)
	p.metrics.IngestRunning.Set(1)
	defer p.metrics.IngestRunning.Set(0)

	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("ingest stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the loop should stop.
func (p *Ingest) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MeasurementsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	stored, ok := p.transformAndLoad(ctx, rawBatch, backoff)
	if !ok {
		return false
	}

	if stored > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndLoad parses each message, stores the valid ones in one batch
// and commits offsets. Poison messages are committed immediately so they are
// not redelivered. Returns the number of stored measurements and false if the
// loop should stop.
func (p *Ingest) transformAndLoad(ctx context.Context, rawBatch []domain.RawMessage, backoff *time.Duration) (int, bool) {
	batch := make([]domain.Measurement, 0, len(rawBatch))
	accepted := make([]domain.RawMessage, 0, len(rawBatch))

	for _, raw := range rawBatch {
		m, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("invalid measurement, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.IngestErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		batch = append(batch, m)
		accepted = append(accepted, raw)
	}

	if len(batch) == 0 {
		return 0, true
	}

	if err := p.loader.InsertBatch(ctx, batch); err != nil {
		p.logger.Error("store batch failed", "error", err, "batch_size", len(batch))
		return 0, p.backoffOrStop(ctx, backoff)
	}

	p.metrics.MeasurementsStored.Add(float64(len(batch)))

	for _, raw := range accepted {
		p.commit(ctx, raw)
	}

	return len(batch), true
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the context ended first.
func (p *Ingest) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func (p *Ingest) commit(ctx context.Context, raw domain.RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
