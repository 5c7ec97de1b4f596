package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

func TestMapMessageToRawMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"sensorId":"s-1"}`),
		Topic:     "measurements",
		Partition: 2,
		Offset:    42,
		Time:      now,
	}

	raw := mapMessageToRawMessage(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"sensorId":"s-1"}`, string(raw.Value))
	assert.Equal(t, "measurements", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	s := domain.InterpolationSummary{
		RequestID:   "req-1",
		Phenomenon:  "temperature",
		GridType:    domain.GridHex,
		Cells:       12,
		Features:    12,
		KnownPoints: 3,
		Breaks:      domain.ClassBreaks{1, 2, 3},
		DurationMs:  7,
		ComputedAt:  now,
	}

	msg, err := serializeToMessage(s)
	require.NoError(t, err)

	assert.Equal(t, []byte("req-1"), msg.Key)
	assert.JSONEq(t, `{"requestId":"req-1","phenomenon":"temperature","gridType":"hex","cells":12,
		"features":12,"knownPoints":3,"breaks":[1,2,3],"durationMs":7,"computedAt":"2024-04-26T15:10:00Z"}`,
		string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "phenomenon", msg.Headers[0].Key)
	assert.Equal(t, []byte("temperature"), msg.Headers[0].Value)
	assert.Equal(t, "computed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

// --- fakes ---

type fakeFetcher struct {
	msgs      []kafkago.Message
	err       error
	committed []kafkago.Message
}

func (f *fakeFetcher) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(f.msgs) == 0 {
		if f.err != nil {
			return kafkago.Message{}, f.err
		}
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeFetcher) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeFetcher) Close() error { return nil }

func newTestReader(f *fakeFetcher) *Reader {
	return &Reader{reader: f, flushInterval: 50 * time.Millisecond, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestReader_ExtractBatchFull(t *testing.T) {
	f := &fakeFetcher{msgs: []kafkago.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}}}
	r := newTestReader(f)

	batch, err := r.ExtractBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, int64(1), batch[0].Offset)

	require.NoError(t, batch[1].Commit(context.Background()))
	require.Len(t, f.committed, 1)
	assert.Equal(t, int64(2), f.committed[0].Offset)
}

func TestReader_ExtractBatchPartialOnFlushInterval(t *testing.T) {
	f := &fakeFetcher{msgs: []kafkago.Message{{Offset: 7}}}
	r := newTestReader(f)

	batch, err := r.ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestReader_ExtractBatchEmpty(t *testing.T) {
	r := newTestReader(&fakeFetcher{})

	batch, err := r.ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestReader_ExtractBatchError(t *testing.T) {
	r := newTestReader(&fakeFetcher{err: errors.New("broker unavailable")})

	_, err := r.ExtractBatch(context.Background(), 10)
	assert.EqualError(t, err, "broker unavailable")
}

func TestReader_ExtractBatchCancelled(t *testing.T) {
	r := newTestReader(&fakeFetcher{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ExtractBatch(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeWriter struct {
	written []kafkago.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestSummaryWriter_Publish(t *testing.T) {
	fw := &fakeWriter{}
	w := &SummaryWriter{writer: fw, logger: slog.Default()}

	require.NoError(t, w.PublishSummary(context.Background(), domain.InterpolationSummary{
		RequestID: "req-9", Phenomenon: "pm10", Breaks: domain.ClassBreaks{},
	}))
	require.Len(t, fw.written, 1)
	assert.Equal(t, []byte("req-9"), fw.written[0].Key)
	assert.Contains(t, string(fw.written[0].Value), `"breaks":[]`)
}
