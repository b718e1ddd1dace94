// Package kafka publishes dataset lifecycle events.  The engine only emits;
// consumers (dashboards, cache invalidators) live in other systems.
package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/orthoatlas/orthoatlas/internal/config"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// maxMessageBytes caps a single event payload.
const maxMessageBytes = 1024 * 1024

// ProducerMessage is a single message to publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

func (m *ProducerMessage) validate() error {
	switch {
	case m.Topic == "":
		return errors.New(errors.ErrCodeValidation, "topic required")
	case len(m.Value) == 0:
		return errors.New(errors.ErrCodeValidation, "value required")
	case len(m.Value) > maxMessageBytes:
		return errors.Newf(errors.ErrCodeValidation, "message exceeds %d bytes", maxMessageBytes)
	}
	return nil
}

// kafkaMessage converts to the wire type, stamping the send time if the
// caller left it zero.
func (m *ProducerMessage) kafkaMessage() kafka.Message {
	out := kafka.Message{Topic: m.Topic, Key: m.Key, Value: m.Value, Time: m.Timestamp}
	if out.Time.IsZero() {
		out.Time = time.Now()
	}
	for k, v := range m.Headers {
		out.Headers = append(out.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

// MessageWriter is the part of kafka.Writer the producer needs.  Tests
// substitute a capturing implementation.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.WriterStats
}

// counters accumulate over the producer lifetime.  GetMetrics copies
// them out.
type counters struct {
	sent     atomic.Int64
	failed   atomic.Int64
	bytes    atomic.Int64
	lastSent atomic.Value // time.Time
}

// MetricsSnapshot is a point-in-time copy of the producer counters.
type MetricsSnapshot struct {
	MessagesSent   int64
	MessagesFailed int64
	BytesSent      int64
	LastSentAt     time.Time
}

// Producer manages event publication.
type Producer struct {
	writer MessageWriter
	logger logging.Logger
	closed atomic.Bool
	stats  *counters
}

// NewProducer creates a Producer from the engine configuration.  Events are
// rare, so the writer sends each message immediately instead of batching.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: 50 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: timeout,
		Transport:    &kafka.Transport{DialTimeout: 10 * time.Second, ClientID: cfg.ClientID},
	}
	return newProducer(w, log), nil
}

// NewProducerWithWriter wires an existing writer; used by tests.
func NewProducerWithWriter(w MessageWriter, log logging.Logger) *Producer {
	return newProducer(w, log)
}

func newProducer(w MessageWriter, log logging.Logger) *Producer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Producer{writer: w, logger: log.Named("kafka.producer"), stats: &counters{}}
}

// Publish sends a single message and updates the counters.
func (p *Producer) Publish(ctx context.Context, msg *ProducerMessage) error {
	if p.closed.Load() {
		return errors.New(errors.ErrCodeEventPublishFailed, "producer closed")
	}
	if err := msg.validate(); err != nil {
		return err
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msg.kafkaMessage()); err != nil {
		p.stats.failed.Add(1)
		return errors.Wrap(err, errors.ErrCodeEventPublishFailed, "publishing to "+msg.Topic)
	}

	p.stats.sent.Add(1)
	p.stats.bytes.Add(int64(len(msg.Value)))
	p.stats.lastSent.Store(time.Now())

	p.logger.Debug("event published",
		logging.String("topic", msg.Topic), logging.Int64("latency_ms", time.Since(start).Milliseconds()))
	return nil
}

// GetMetrics returns a snapshot of the producer counters.
func (p *Producer) GetMetrics() MetricsSnapshot {
	snap := MetricsSnapshot{
		MessagesSent:   p.stats.sent.Load(),
		MessagesFailed: p.stats.failed.Load(),
		BytesSent:      p.stats.bytes.Load(),
	}
	if ts, ok := p.stats.lastSent.Load().(time.Time); ok {
		snap.LastSentAt = ts
	}
	return snap
}

// Close closes the producer.  Further publishes fail.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("kafka producer closed", logging.Int64("sent", p.stats.sent.Load()))
	return err
}
