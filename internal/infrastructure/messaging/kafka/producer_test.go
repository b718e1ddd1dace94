package kafka

import (
	"context"
	"strings"
	"testing"

	stderrors "errors"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orthoatlas/orthoatlas/internal/config"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// captureWriter records everything written to it.  Set failWith to make
// every write fail, onClose to observe shutdown.
type captureWriter struct {
	failWith error
	onClose  func() error

	written []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.written = append(w.written, msgs...)
	return w.failWith
}

func (w *captureWriter) Close() error {
	if w.onClose != nil {
		return w.onClose()
	}
	return nil
}

func (w *captureWriter) Stats() kafka.WriterStats { return kafka.WriterStats{} }

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(config.KafkaConfig{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestNewProducer_Defaults(t *testing.T) {
	p, err := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	require.NoError(t, err)
	defer p.Close()
	assert.NotNil(t, p)
}

func TestPublish_Success(t *testing.T) {
	mock := &captureWriter{}
	p := NewProducerWithWriter(mock, logging.NewNopLogger())

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   "ortho.dataset.reloaded",
		Key:     []byte("version-1"),
		Value:   []byte(`{"ok":true}`),
		Headers: map[string]string{"trace_id": "abc"},
	})
	require.NoError(t, err)

	require.Len(t, mock.written, 1)
	msg := mock.written[0]
	assert.Equal(t, "ortho.dataset.reloaded", msg.Topic)
	assert.Equal(t, "version-1", string(msg.Key))
	assert.Equal(t, `{"ok":true}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "trace_id", msg.Headers[0].Key)
	assert.False(t, msg.Time.IsZero())

	assert.Equal(t, int64(1), p.GetMetrics().MessagesSent)
	assert.Equal(t, int64(len(`{"ok":true}`)), p.GetMetrics().BytesSent)
}

func TestPublish_WriteFailure(t *testing.T) {
	mock := &captureWriter{failWith: stderrors.New("broker unreachable")}
	p := NewProducerWithWriter(mock, logging.NewNopLogger())

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEventPublishFailed))
	assert.Equal(t, int64(1), p.GetMetrics().MessagesFailed)
}

func TestPublish_Validation(t *testing.T) {
	p := NewProducerWithWriter(&captureWriter{}, logging.NewNopLogger())

	err := p.Publish(context.Background(), &ProducerMessage{Value: []byte("v")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	err = p.Publish(context.Background(), &ProducerMessage{Topic: "t"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	err = p.Publish(context.Background(), &ProducerMessage{
		Topic: "t",
		Value: []byte(strings.Repeat("x", maxMessageBytes+1)),
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestPublish_AfterClose(t *testing.T) {
	p := NewProducerWithWriter(&captureWriter{}, logging.NewNopLogger())
	require.NoError(t, p.Close())

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEventPublishFailed))
}

func TestClose_Idempotent(t *testing.T) {
	closes := 0
	mock := &captureWriter{onClose: func() error { closes++; return nil }}
	p := NewProducerWithWriter(mock, logging.NewNopLogger())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, closes)
}

func TestGetMetrics_Snapshot(t *testing.T) {
	p := NewProducerWithWriter(&captureWriter{}, logging.NewNopLogger())
	require.NoError(t, p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")}))

	m := p.GetMetrics()
	assert.Equal(t, int64(1), m.MessagesSent)
	assert.Equal(t, int64(0), m.MessagesFailed)
	assert.Equal(t, int64(1), m.BytesSent)
	assert.False(t, m.LastSentAt.IsZero())
}
