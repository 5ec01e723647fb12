package tracking

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	// queueSize is the buffer size for the event queue.
	queueSize = 1000

	// maxResponseBodySize limits how much of an error response we log (1KB).
	maxResponseBodySize = 1024
)

// Dispatcher delivers tracking events to the configured endpoint from a
// single background worker. Delivery is fire-and-forget: a failed POST is
// logged and the event is gone. Callers never block and never see errors.
type Dispatcher struct {
	endpoint string
	client   *http.Client
	queue    chan Event
	done     chan struct{}
	closed   int32 // atomic flag to prevent double-close
	dropped  func()
	log      zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithDropCounter installs a callback invoked once per dropped event.
func WithDropCounter(fn func()) Option {
	return func(d *Dispatcher) { d.dropped = fn }
}

// NewDispatcher creates a dispatcher posting to endpoint. An empty endpoint
// yields a dispatcher that accepts and discards every event, so callers need
// no nil checks when tracking is unconfigured.
func NewDispatcher(endpoint string, log zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		queue:    make(chan Event, queueSize),
		done:     make(chan struct{}),
		log:      log.With().Str("component", "tracking").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start begins processing events from the queue.
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close shuts the dispatcher down after draining already-queued events.
// Safe to call multiple times; subsequent calls are no-ops.
func (d *Dispatcher) Close() error {
	if !atomic.CompareAndSwapInt32(&d.closed, 0, 1) {
		return nil
	}
	close(d.queue)
	<-d.done
	return nil
}

// Dispatch queues an event for delivery. Non-blocking: when the queue is
// full the event is dropped and counted, never delivered late.
func (d *Dispatcher) Dispatch(event Event) {
	if atomic.LoadInt32(&d.closed) == 1 {
		return
	}
	select {
	case d.queue <- event:
	default:
		d.log.Warn().
			Str("event", event.EventName).
			Str("session", event.SessionID).
			Int("queue_size", queueSize).
			Msg("tracking queue full, dropping event")
		if d.dropped != nil {
			d.dropped()
		}
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver makes exactly one attempt. No retries: a lost analytics event is
// acceptable, a stalled queue is not.
func (d *Dispatcher) deliver(event Event) {
	if d.endpoint == "" {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Error().Err(err).Str("event", event.EventName).Msg("failed to marshal tracking event")
		return
	}

	start := time.Now()
	resp, err := d.client.Post(d.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		d.log.Warn().Err(err).
			Str("event", event.EventName).
			Str("event_id", event.EventID).
			Msg("tracking delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		d.log.Warn().
			Int("status", resp.StatusCode).
			Str("event", event.EventName).
			Str("event_id", event.EventID).
			Str("body", string(body)).
			Msg("tracking endpoint rejected event")
		return
	}

	d.log.Debug().
		Str("event", event.EventName).
		Str("event_id", event.EventID).
		Dur("duration", time.Since(start)).
		Msg("tracking event delivered")
}
