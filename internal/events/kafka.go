package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/roadsafety/backend/internal/domain"
	"github.com/roadsafety/backend/internal/metrics"
)

// HotspotCreatedType is carried in the event-type header
const HotspotCreatedType = "hotspot.created"

const (
	writeTimeout = 5 * time.Second
	queueSize    = 256
)

// ErrQueueFull is returned by Dispatch when the publisher is backed up
var ErrQueueFull = errors.New("events: publish queue full")

// ErrClosed is returned by Dispatch after Close
var ErrClosed = errors.New("events: dispatcher closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes hotspot events to a Kafka topic. Dispatch only
// enqueues; a single goroutine writes to the broker and reports delivery
// failures to the log and metrics.
type KafkaDispatcher struct {
	writer  messageWriter
	queue   chan kafka.Message
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewKafkaDispatcher creates a dispatcher writing to topic on brokers
func NewKafkaDispatcher(brokers []string, topic string, m *metrics.Metrics, log *slog.Logger) *KafkaDispatcher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        false,
	}
	return newKafkaDispatcher(w, queueSize, m, log.With(slog.String("topic", topic)))
}

func newKafkaDispatcher(w messageWriter, size int, m *metrics.Metrics, log *slog.Logger) *KafkaDispatcher {
	d := &KafkaDispatcher{
		writer:  w,
		queue:   make(chan kafka.Message, size),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		metrics: m,
		log:     log.With(slog.String("component", "kafka-dispatcher")),
	}
	go d.run()
	return d
}

// Encode turns an event into a Kafka message keyed by location so events for
// one location stay on one partition
func Encode(event domain.HotspotCreated) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("events: failed to encode hotspot %s: %w", event.Hotspot.ID, err)
	}
	return kafka.Message{
		Key:   []byte(event.Hotspot.Location.String()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(HotspotCreatedType)},
			{Key: "hotspot-id", Value: []byte(event.Hotspot.ID)},
		},
	}, nil
}

// Dispatch implements service.EventDispatcher. It never waits on the broker.
func (d *KafkaDispatcher) Dispatch(_ context.Context, event domain.HotspotCreated) error {
	msg, err := Encode(event)
	if err != nil {
		return err
	}

	select {
	case <-d.stop:
		return ErrClosed
	default:
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		return fmt.Errorf("%w: dropping hotspot %s", ErrQueueFull, event.Hotspot.ID)
	}
}

func (d *KafkaDispatcher) run() {
	defer close(d.done)
	for {
		select {
		case msg := <-d.queue:
			d.publish(msg)
		case <-d.stop:
			for {
				select {
				case msg := <-d.queue:
					d.publish(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *KafkaDispatcher) publish(msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		d.metrics.DispatchFailed()
		d.log.Warn("failed to publish event",
			slog.String("hotspot_id", header(msg, "hotspot-id")),
			slog.String("key", string(msg.Key)),
			slog.Any("error", err),
		)
		return
	}
	d.log.Debug("event published", slog.String("hotspot_id", header(msg, "hotspot-id")))
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Close publishes whatever is queued, then closes the writer
func (d *KafkaDispatcher) Close() error {
	d.once.Do(func() { close(d.stop) })
	<-d.done
	return d.writer.Close()
}

// LogDispatcher writes events to the log. Used when no broker is configured.
type LogDispatcher struct {
	log *slog.Logger
}

func NewLogDispatcher(log *slog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log.With(slog.String("component", "events"))}
}

// Dispatch implements service.EventDispatcher
func (d *LogDispatcher) Dispatch(_ context.Context, event domain.HotspotCreated) error {
	d.log.Info(HotspotCreatedType,
		slog.String("hotspot_id", event.Hotspot.ID),
		slog.String("location", event.Hotspot.Location.String()),
		slog.Float64("risk_score", event.Hotspot.RiskScore),
	)
	return nil
}
