package observerbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBufferSize is the per-subscriber bounded buffer capacity.
const DefaultBufferSize = 64

const instrumentationName = "github.com/seiggy/lucia/observerbus"

// Handler receives events in publication order. A handler that panics has
// its panic recovered and logged; it never reaches other subscribers or the
// publisher.
type Handler func(Event)

type subscriber struct {
	id      uint64
	handler Handler
	ch      chan Event
	dropped atomic.Uint64
	done    chan struct{}
}

// Bus fans out Events to every registered subscriber. Each subscriber is
// delivered to via its own buffered channel and goroutine, so a blocked or
// slow handler never blocks the publisher or other subscribers.
type Bus struct {
	mu         sync.RWMutex
	subs       map[uint64]*subscriber
	nextSubID  uint64
	nextSeq    atomic.Uint64
	bufferSize int
	dropped    metric.Int64Counter
}

// New builds a Bus with the given per-subscriber buffer size (DefaultBufferSize
// if bufferSize <= 0).
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"lucia_observer_dropped_total",
		metric.WithDescription("events dropped for overflow per observer bus subscriber"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("observer_dropped_counter_init_failed")
	}
	return &Bus{
		subs:       make(map[uint64]*subscriber),
		bufferSize: bufferSize,
		dropped:    counter,
	}
}

// Subscribe registers handler and returns a subscription id for Unsubscribe.
func (b *Bus) Subscribe(handler Handler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSubID++
	id := b.nextSubID
	sub := &subscriber{
		id:      id,
		handler: handler,
		ch:      make(chan Event, b.bufferSize),
		done:    make(chan struct{}),
	}
	b.subs[id] = sub
	go sub.run()
	return id
}

// Unsubscribe removes a subscriber and stops its delivery goroutine.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if ok {
		close(sub.done)
	}
}

// Publish stamps event with a monotonic sequence number and delivers it to
// every current subscriber. Delivery never blocks the caller: if a
// subscriber's buffer is full, the oldest buffered event for that subscriber
// is dropped (counted) to make room.
func (b *Bus) Publish(event Event) {
	b.publish(context.Background(), event)
}

// PublishCtx behaves like Publish, and additionally records event as a span
// event on ctx's active span (if any), so a request's trace and its observer
// stream can be correlated. Span recording is best-effort: a missing or
// no-op span never affects delivery.
func (b *Bus) PublishCtx(ctx context.Context, event Event) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(event.Kind.String())
	}
	b.publish(ctx, event)
}

func (b *Bus) publish(ctx context.Context, event Event) {
	event.Seq = b.nextSeq.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		sub.send(ctx, b.dropped, event)
	}
}

func (s *subscriber) send(ctx context.Context, dropped metric.Int64Counter, event Event) {
	select {
	case s.ch <- event:
		return
	default:
	}
	// Buffer full: drop the oldest queued event to make room, never the
	// caller's event — delivery order to this subscriber is preserved.
	select {
	case <-s.ch:
		s.dropped.Add(1)
		s.recordDrop(ctx, dropped)
	default:
	}
	select {
	case s.ch <- event:
	default:
		s.dropped.Add(1)
		s.recordDrop(ctx, dropped)
	}
}

func (s *subscriber) recordDrop(ctx context.Context, counter metric.Int64Counter) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1)
}

// DroppedFor returns how many events subscriber id has had dropped for
// overflow, or 0 for an unknown id.
func (b *Bus) DroppedFor(id uint64) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sub, ok := b.subs[id]
	if !ok {
		return 0
	}
	return sub.dropped.Load()
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.ch:
			s.deliver(event)
		}
	}
}

func (s *subscriber) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Uint64("subscriber_id", s.id).
				Str("request_id", event.RequestID).Msg("observer_handler_panic")
		}
	}()
	s.handler(event)
}
