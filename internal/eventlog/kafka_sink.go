// Package eventlog implements the "single-writer queue external to the
// core" of spec §5: an EventSink that publishes each worker's lifecycle
// events to Kafka. Publish sends synchronously: the calling worker waits
// until the broker acknowledges the message or the producer gives up.
//
// Grounded on internal/fraud/kafka_producer.go's KafkaAlertProducer: same
// sarama.SyncProducer setup, the same stats-under-mutex bookkeeping, and
// the same best-effort "record the error, don't propagate it" posture —
// adapted from fraud alerts to wipe.Event.
package eventlog

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"wipeengine/internal/wipe"
)

// KafkaSinkConfig configures the Kafka-backed EventSink.
type KafkaSinkConfig struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
	RequiredAcks sarama.RequiredAcks
}

// DefaultKafkaSinkConfig returns sane defaults for a local or CI broker.
func DefaultKafkaSinkConfig() KafkaSinkConfig {
	return KafkaSinkConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "wipeengine.events",
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		RequiredAcks: sarama.WaitForLocal,
	}
}

// SinkStats tracks best-effort delivery counters, mirroring the teacher's
// ProducerStats.
type SinkStats struct {
	EventsSent      int64
	EventsFailed    int64
	BytesSent       int64
	LastEventTime   time.Time
	LastError       error
}

// KafkaSink publishes wipe.Events to Kafka. A publish failure is recorded
// in stats and otherwise swallowed: event delivery is diagnostic, never
// load-bearing for the wipe itself.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string

	mu    sync.Mutex
	stats SinkStats
}

// NewKafkaSink dials brokers and returns a ready-to-use sink.
func NewKafkaSink(cfg KafkaSinkConfig) (*KafkaSink, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.Retry.Max = cfg.MaxRetries
	saramaCfg.Producer.Retry.Backoff = cfg.RetryBackoff
	saramaCfg.Producer.RequiredAcks = cfg.RequiredAcks

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("eventlog: failed to create Kafka producer: %w", err)
	}

	return &KafkaSink{producer: producer, topic: cfg.Topic}, nil
}

// Publish implements worker.EventSink and supervisor.EventSink.
func (k *KafkaSink) Publish(e wipe.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		k.recordFailure(err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(e.DevicePath),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(e.Kind)},
		},
		Timestamp: e.At,
	}

	_, _, err = k.producer.SendMessage(msg)
	if err != nil {
		k.recordFailure(err)
		return
	}

	k.mu.Lock()
	k.stats.EventsSent++
	k.stats.BytesSent += int64(len(data))
	k.stats.LastEventTime = time.Now()
	k.mu.Unlock()
}

func (k *KafkaSink) recordFailure(err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stats.EventsFailed++
	k.stats.LastError = err
}

// Stats returns a snapshot of delivery counters.
func (k *KafkaSink) Stats() SinkStats {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.stats
}

// Close releases the underlying Kafka connection.
func (k *KafkaSink) Close() error {
	return k.producer.Close()
}
