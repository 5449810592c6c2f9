// Package analytics records journey funnel events. Tracking is
// fire-and-forget: callers never see delivery errors.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Funnel event names.
const (
	EventPageview         = "pageview"
	EventSharedLinkOpened = "Shared Link Opened"
	EventSecuritySelected = "Security Selected"
	EventAmountSelected   = "Amount Selected"
	EventPeriodSelected   = "Period Selected"
	EventResultViewed     = "Result Viewed"
	EventOverviewViewed   = "Overview Page Viewed"
)

const DefaultProject = "tid-er-penge"

var events = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "journey_analytics_events_total",
	Help: "Analytics events by delivery outcome (sent, failed, dropped)",
}, []string{"outcome"})

// Event is one tracked occurrence, in the dashboard's wire format.
type Event struct {
	Project    string         `json:"project"`
	Event      string         `json:"event"`
	VisitorID  string         `json:"visitor_id"`
	SessionID  string         `json:"session_id"`
	Referrer   *string        `json:"referrer"`
	Pathname   string         `json:"pathname"`
	Properties map[string]any `json:"properties"`
	Timestamp  time.Time      `json:"-"`
}

// Tracker is what the journey calls into.
type Tracker interface {
	Track(event string, props map[string]any)
}

// Sink delivers events somewhere durable.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Noop discards everything.
type Noop struct{}

func (Noop) Track(string, map[string]any)      {}
func (Noop) Send(context.Context, Event) error { return nil }

// Multi fans an event out to every sink and returns the first error.
type Multi []Sink

func (m Multi) Send(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.Send(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Dispatcher hands events to a sink on a background goroutine. When the
// buffer is full new events are dropped rather than blocking the caller.
type Dispatcher struct {
	sink    Sink
	queue   chan Event
	timeout time.Duration
	log     *slog.Logger

	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewDispatcher(sink Sink, buffer int, logger *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan Event, buffer),
		timeout: 5 * time.Second,
		log:     logger.With("component", "analytics"),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for e := range d.queue {
		if err := d.send(e); err != nil {
			events.WithLabelValues("failed").Inc()
			d.log.Warn("event delivery failed", "event", e.Event, "error", err)
			continue
		}
		events.WithLabelValues("sent").Inc()
	}
}

// send delivers one event. A panicking sink counts as a failed delivery.
func (d *Dispatcher) send(e Event) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("sink panicked: %v", v)
		}
	}()
	return d.sink.Send(ctx, e)
}

// Dispatch queues e without blocking.
func (d *Dispatcher) Dispatch(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Properties == nil {
		e.Properties = map[string]any{}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		events.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case d.queue <- e:
	default:
		events.WithLabelValues("dropped").Inc()
		d.log.Warn("event queue full, dropping", "event", e.Event)
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	d.wg.Wait()
}

// Client is a Tracker bound to one visitor and session.
type Client struct {
	d         *Dispatcher
	project   string
	visitorID string
	sessionID string
	pathname  string
	referrer  *string
}

type ClientOption func(*Client)

// WithVisitor reuses a known visitor id instead of minting one.
func WithVisitor(id string) ClientOption {
	return func(c *Client) { c.visitorID = id }
}

func WithPathname(p string) ClientOption {
	return func(c *Client) { c.pathname = p }
}

func WithReferrer(r string) ClientOption {
	return func(c *Client) {
		if r != "" {
			c.referrer = &r
		}
	}
}

func NewClient(d *Dispatcher, project string, opts ...ClientOption) *Client {
	c := &Client{
		d:         d,
		project:   project,
		visitorID: uuid.NewString(),
		sessionID: uuid.NewString(),
		pathname:  "/",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) VisitorID() string { return c.visitorID }
func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) Track(event string, props map[string]any) {
	c.d.Dispatch(Event{
		Project:    c.project,
		Event:      event,
		VisitorID:  c.visitorID,
		SessionID:  c.sessionID,
		Referrer:   c.referrer,
		Pathname:   c.pathname,
		Properties: props,
	})
}
