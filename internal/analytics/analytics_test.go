package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *memorySink) Send(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *memorySink) all() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func TestClient_TrackDeliversInOrder(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(sink, 16, nil)
	c := NewClient(d, DefaultProject, WithPathname("/journey"), WithReferrer("https://news.example"))

	c.Track(EventPageview, nil)
	c.Track(EventSecuritySelected, map[string]any{"security": "NVDA"})
	d.Close()

	got := sink.all()
	require.Len(t, got, 2)
	assert.Equal(t, EventPageview, got[0].Event)
	assert.Equal(t, "NVDA", got[1].Properties["security"])
	assert.NotNil(t, got[0].Properties)
	assert.Equal(t, "/journey", got[0].Pathname)
	require.NotNil(t, got[0].Referrer)
	assert.Equal(t, "https://news.example", *got[0].Referrer)

	_, err := uuid.Parse(c.VisitorID())
	assert.NoError(t, err)
	assert.NotEqual(t, c.VisitorID(), c.SessionID())
	assert.Equal(t, c.SessionID(), got[1].SessionID)
}

func TestDispatcher_FailuresAndCloseAreSilent(t *testing.T) {
	sink := &memorySink{err: errors.New("dashboard down")}
	d := NewDispatcher(sink, 4, nil)
	c := NewClient(d, DefaultProject, WithVisitor("v-1"))

	c.Track(EventResultViewed, map[string]any{"period": 5})
	d.Close()
	d.Close()

	// after close events are dropped, not panicking on a closed channel
	c.Track(EventResultViewed, nil)
	assert.Len(t, sink.all(), 1)
	assert.Equal(t, "v-1", sink.all()[0].VisitorID)
}

// panicSink blows up on one event name and records the rest.
type panicSink struct {
	memorySink
	on string
}

func (p *panicSink) Send(ctx context.Context, e Event) error {
	if e.Event == p.on {
		panic("sink bug")
	}
	return p.memorySink.Send(ctx, e)
}

func TestDispatcher_PanickingSinkCountsAsFailure(t *testing.T) {
	sink := &panicSink{on: EventSecuritySelected}
	failed := testutil.ToFloat64(events.WithLabelValues("failed"))

	d := NewDispatcher(sink, 4, nil)
	d.Dispatch(Event{Event: EventSecuritySelected})
	d.Dispatch(Event{Event: EventResultViewed})
	d.Close()

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, EventResultViewed, got[0].Event)
	assert.Equal(t, failed+1, testutil.ToFloat64(events.WithLabelValues("failed")))
}

func TestMulti(t *testing.T) {
	a, b := &memorySink{}, &memorySink{err: errors.New("nope")}
	err := Multi{a, b}.Send(context.Background(), Event{Event: "x"})
	assert.Error(t, err)
	assert.Len(t, a.all(), 1)
	assert.Len(t, b.all(), 1)

	assert.NoError(t, Noop{}.Send(context.Background(), Event{}))
}

func TestHTTPSink(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/track", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL+"/", srv.Client())
	err := sink.Send(context.Background(), Event{Project: DefaultProject, Event: EventPeriodSelected, Properties: map[string]any{"period": "10y"}})
	require.NoError(t, err)
	assert.Equal(t, EventPeriodSelected, got.Event)
	assert.Equal(t, "10y", got.Properties["period"])
	assert.Nil(t, got.Referrer)
}

func TestHTTPSink_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewHTTPSink(srv.URL, srv.Client()).Send(context.Background(), Event{Event: "x"})
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "events.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	d := NewDispatcher(store, 16, nil)
	c := NewClient(d, DefaultProject)
	c.Track(EventPageview, nil)
	c.Track(EventAmountSelected, map[string]any{"amount": 5000})
	c.Track(EventAmountSelected, map[string]any{"amount": 10000})
	d.Close()

	counts, err := store.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{EventPageview: 1, EventAmountSelected: 2}, counts)
}
