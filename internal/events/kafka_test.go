package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadsafety/backend/internal/domain"
	"github.com/roadsafety/backend/internal/metrics"
)

func TestEncode(t *testing.T) {
	now := time.Date(2024, time.May, 4, 10, 0, 0, 0, time.UTC)
	event := domain.HotspotCreated{
		Hotspot: domain.Hotspot{
			ID:              "hs-9",
			Location:        domain.RoadSegment(12, 40),
			Period:          domain.Period{Start: now.AddDate(-1, 0, 0), End: now},
			Observed:        domain.ObservedCrashes{PropertyDamageOnly: 3, Injury: 2},
			ExpectedCrashes: 2,
			RiskScore:       2.5,
			Status:          domain.HotspotOpen,
		},
		OccurredAt: now,
	}

	msg, err := Encode(event)
	require.NoError(t, err)

	assert.Equal(t, "road_segment:12@40", string(msg.Key))
	assert.Equal(t, now, msg.Time)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{"event-type": HotspotCreatedType, "hotspot-id": "hs-9"}, headers)

	var decoded domain.HotspotCreated
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.Hotspot.ID, decoded.Hotspot.ID)
	assert.Equal(t, event.Hotspot.Location, decoded.Hotspot.Location)
	assert.Equal(t, event.Hotspot.Observed, decoded.Hotspot.Observed)
}

func TestLogDispatcher(t *testing.T) {
	d := NewLogDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := d.Dispatch(context.Background(), domain.HotspotCreated{Hotspot: domain.Hotspot{ID: "x", Location: domain.Intersection(1)}})
	assert.NoError(t, err)
}

type stubWriter struct {
	mu      sync.Mutex
	release chan struct{}
	err     error
	written []kafka.Message
	closed  bool
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.release != nil {
		<-w.release
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func created(id string) domain.HotspotCreated {
	return domain.HotspotCreated{Hotspot: domain.Hotspot{ID: id, Location: domain.Intersection(3)}}
}

func TestKafkaDispatcher_DoesNotWaitForBroker(t *testing.T) {
	w := &stubWriter{release: make(chan struct{})}
	d := newKafkaDispatcher(w, 8, nil, discard())

	started := time.Now()
	for _, id := range []string{"hs-1", "hs-2", "hs-3"} {
		require.NoError(t, d.Dispatch(context.Background(), created(id)))
	}
	assert.Less(t, time.Since(started), time.Second)

	close(w.release)
	require.NoError(t, d.Close())

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.written, 3)
	assert.Equal(t, "hs-1", header(w.written[0], "hotspot-id"))
	assert.Equal(t, "hs-3", header(w.written[2], "hotspot-id"))
	assert.True(t, w.closed)
}

func TestKafkaDispatcher_QueueFull(t *testing.T) {
	w := &stubWriter{release: make(chan struct{})}
	d := newKafkaDispatcher(w, 1, nil, discard())

	// one message in flight plus one queued at most
	var full int
	for _, id := range []string{"hs-1", "hs-2", "hs-3"} {
		if err := d.Dispatch(context.Background(), created(id)); err != nil {
			assert.ErrorIs(t, err, ErrQueueFull)
			full++
		}
	}
	assert.GreaterOrEqual(t, full, 1)

	close(w.release)
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Dispatch(context.Background(), created("hs-4")), ErrClosed)
}

func TestKafkaDispatcher_CountsDeliveryFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := &stubWriter{err: errors.New("broker unreachable")}
	d := newKafkaDispatcher(w, 8, metrics.New(reg), discard())

	require.NoError(t, d.Dispatch(context.Background(), created("hs-1")))
	require.NoError(t, d.Dispatch(context.Background(), created("hs-2")))
	require.NoError(t, d.Close())

	families, err := reg.Gather()
	require.NoError(t, err)

	var failures float64
	for _, f := range families {
		if f.GetName() == "roadsafety_events_dispatch_failures_total" {
			failures = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, failures)
}
