package mqtt

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sensor-idw-service/internal/config"
	"github.com/couchcryptid/sensor-idw-service/internal/pipeline"
)

var _ pipeline.BatchExtractor = (*Subscriber)(nil)

func newTestSubscriber() *Subscriber {
	return newSubscriber("measurements/#", 50*time.Millisecond, slog.Default())
}

func TestSubscriber_BatchesQueuedMessages(t *testing.T) {
	s := newTestSubscriber()
	s.handleMessage("measurements/box-1", []byte(`{"sensorId":"a"}`))
	s.handleMessage("measurements/box-2", []byte(`{"sensorId":"b"}`))
	s.handleMessage("measurements/box-3", []byte(`{"sensorId":"c"}`))

	batch, err := s.ExtractBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "measurements/box-1", batch[0].Topic)
	assert.JSONEq(t, `{"sensorId":"a"}`, string(batch[0].Value))
	assert.False(t, batch[0].Timestamp.IsZero())
	assert.Nil(t, batch[0].Commit)

	batch, err = s.ExtractBatch(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestSubscriber_EmptyAfterFlushInterval(t *testing.T) {
	s := newTestSubscriber()
	start := time.Now()
	batch, err := s.ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestSubscriber_PayloadCopied(t *testing.T) {
	s := newTestSubscriber()
	buf := []byte(`{"v":1}`)
	s.handleMessage("t", buf)
	buf[2] = 'x'

	batch, err := s.ExtractBatch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(batch[0].Value))
}

func TestSubscriber_Cancelled(t *testing.T) {
	s := newTestSubscriber()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.ExtractBatch(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubscriber_Stopped(t *testing.T) {
	s := newTestSubscriber()
	s.Disconnect()
	s.Disconnect()

	_, err := s.ExtractBatch(context.Background(), 10)
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, s.Connect(context.Background()), ErrStopped)
	assert.Error(t, s.CheckReadiness(context.Background()))
}

func TestNewSubscriber_NotConnected(t *testing.T) {
	s := NewSubscriber(&config.Config{
		MQTTBroker:         "localhost",
		MQTTPort:           1883,
		MQTTTopic:          "measurements/#",
		MQTTClientID:       "idw-test",
		BatchFlushInterval: time.Second,
	}, slog.Default())
	assert.False(t, s.IsConnected())
}
