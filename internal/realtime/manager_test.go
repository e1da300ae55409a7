package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkoutso/portico/internal/domain"
)

// fakeTransport records subscriptions and lets tests drive sink callbacks.
type fakeTransport struct {
	mu      sync.Mutex
	subs    []*fakeSubscription
	dialErr error
}

type fakeSubscription struct {
	portfolioID string
	sink        Sink
	closed      bool
	mu          sync.Mutex
}

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (t *fakeTransport) Subscribe(_ context.Context, portfolioID string, sink Sink) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	sub := &fakeSubscription{portfolioID: portfolioID, sink: sink}
	t.subs = append(t.subs, sub)
	return sub, nil
}

// last returns the most recent subscription once the async dial completed.
func (t *fakeTransport) last(test *testing.T) *fakeSubscription {
	test.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		t.mu.Lock()
		n := len(t.subs)
		var sub *fakeSubscription
		if n > 0 {
			sub = t.subs[n-1]
		}
		t.mu.Unlock()
		if sub != nil {
			return sub
		}
		time.Sleep(5 * time.Millisecond)
	}
	test.Fatal("no subscription established")
	return nil
}

func (t *fakeTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// fakeDirectory is a static portfolio→assets mapping.
type fakeDirectory map[string][]string

func (d fakeDirectory) IDs(portfolioID string) ([]string, error) {
	return d[portfolioID], nil
}

func newTestManager(transport Transport, dir AssetDirectory) *Manager {
	return NewManager(transport, dir, NewPriceBook(), time.Minute, zerolog.Nop())
}

func waitForStatus(t *testing.T, m *Manager, want Status) ConnectionState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := m.State(); st.Status == want {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("manager never reached status %q, currently %q", want, m.State().Status)
	return ConnectionState{}
}

func TestManager_ConnectLifecycle(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(transport, fakeDirectory{"p1": {"a1"}})

	assert.Equal(t, StatusDisconnected, m.State().Status)

	m.Start("p1")
	assert.Equal(t, StatusConnecting, m.State().Status)

	sub := transport.last(t)
	sub.sink.OnOpen()

	st := waitForStatus(t, m, StatusConnected)
	assert.Empty(t, st.LastError)
	assert.Equal(t, "p1", st.PortfolioID)

	m.Stop()
	assert.Equal(t, StatusDisconnected, m.State().Status)
	assert.True(t, sub.isClosed())
}

func TestManager_EventApplication(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(transport, fakeDirectory{"p1": {"a1", "a2"}})
	m.Start("p1")
	sub := transport.last(t)
	sub.sink.OnOpen()

	ts := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	sub.sink.OnEvent(domain.PriceEvent{AssetID: "a1", Price: 101.5, Timestamp: ts})

	p, ok := m.Book().Get("a1")
	require.True(t, ok)
	assert.Equal(t, 101.5, p.Price)
	assert.Equal(t, ts, p.At)

	st := m.State()
	require.NotNil(t, st.LastUpdated)
	assert.Equal(t, ts, *st.LastUpdated)

	// Arrival order wins, even when timestamps run backwards.
	earlier := ts.Add(-time.Hour)
	sub.sink.OnEvent(domain.PriceEvent{AssetID: "a1", Price: 99, Timestamp: earlier})
	p, _ = m.Book().Get("a1")
	assert.Equal(t, 99.0, p.Price)
}

func TestManager_EventWithoutTimestampUsesReceiptTime(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(transport, fakeDirectory{"p1": {"a1"}})
	m.Start("p1")
	sub := transport.last(t)
	sub.sink.OnOpen()

	before := time.Now().UTC()
	sub.sink.OnEvent(domain.PriceEvent{AssetID: "a1", Price: 5})
	after := time.Now().UTC()

	p, ok := m.Book().Get("a1")
	require.True(t, ok)
	assert.False(t, p.At.Before(before))
	assert.False(t, p.At.After(after))
}

func TestManager_DropsUnknownAndMalformedEvents(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(transport, fakeDirectory{"p1": {"a1"}})
	m.Start("p1")
	sub := transport.last(t)
	sub.sink.OnOpen()

	sub.sink.OnEvent(domain.PriceEvent{AssetID: "deleted-asset", Price: 10})
	sub.sink.OnEvent(domain.PriceEvent{AssetID: "", Price: 10})
	sub.sink.OnEvent(domain.PriceEvent{AssetID: "a1", Price: -1})

	assert.Zero(t, m.Book().Len())
	// Dropped events are not connection failures.
	assert.Equal(t, StatusConnected, m.State().Status)
	assert.Nil(t, m.State().LastUpdated)
}

func TestManager_ReconnectAfterError(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(transport, fakeDirectory{"p1": {"a1"}})
	m.Start("p1")
	first := transport.last(t)
	first.sink.OnOpen()
	waitForStatus(t, m, StatusConnected)

	// Forced close puts the channel into error with a message.
	first.sink.OnClose(errors.New("connection reset"))
	st := waitForStatus(t, m, StatusError)
	assert.Contains(t, st.LastError, "connection reset")

	m.Reconnect()
	assert.Equal(t, StatusConnecting, m.State().Status)

	require.Eventually(t, func() bool { return transport.count() == 2 },
		2*time.Second, 5*time.Millisecond)
	second := transport.last(t)
	second.sink.OnOpen()

	st = waitForStatus(t, m, StatusConnected)
	assert.Empty(t, st.LastError, "lastError must clear on successful reconnect")
}

func TestManager_StaleGenerationEventsIgnored(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(transport, fakeDirectory{
		"p1": {"a1"},
		"p2": {"b1"},
	})

	m.Start("p1")
	oldSub := transport.last(t)
	oldSub.sink.OnOpen()

	// Switch portfolios; the old subscription must be closed first.
	m.Start("p2")
	assert.True(t, oldSub.isClosed())

	require.Eventually(t, func() bool { return transport.count() == 2 },
		2*time.Second, 5*time.Millisecond)
	newSub := transport.last(t)
	newSub.sink.OnOpen()
	waitForStatus(t, m, StatusConnected)

	// An event from the torn-down subscription must not touch state, even
	// for an asset ID the new portfolio tracks.
	oldSub.sink.OnEvent(domain.PriceEvent{AssetID: "b1", Price: 123})
	assert.Zero(t, m.Book().Len())

	// A stale close must not flip the new connection into error.
	oldSub.sink.OnClose(errors.New("late close"))
	assert.Equal(t, StatusConnected, m.State().Status)

	// The live subscription still works.
	newSub.sink.OnEvent(domain.PriceEvent{AssetID: "b1", Price: 123})
	p, ok := m.Book().Get("b1")
	require.True(t, ok)
	assert.Equal(t, 123.0, p.Price)
}

func TestManager_DialFailureBecomesErrorState(t *testing.T) {
	transport := &fakeTransport{dialErr: errors.New("dns failure")}
	m := newTestManager(transport, fakeDirectory{"p1": {"a1"}})

	m.Start("p1")
	st := waitForStatus(t, m, StatusError)
	assert.Contains(t, st.LastError, "dns failure")
}

func TestManager_ConnectTimeout(t *testing.T) {
	// A transport that dials fine but never reports open.
	transport := &fakeTransport{}
	m := NewManager(transport, fakeDirectory{"p1": {"a1"}}, NewPriceBook(),
		30*time.Millisecond, zerolog.Nop())

	m.Start("p1")
	st := waitForStatus(t, m, StatusError)
	assert.Contains(t, st.LastError, "timed out")
}

func TestManager_StopDiscardsConnectTimer(t *testing.T) {
	transport := &fakeTransport{}
	m := NewManager(transport, fakeDirectory{"p1": {"a1"}}, NewPriceBook(),
		30*time.Millisecond, zerolog.Nop())

	m.Start("p1")
	m.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StatusDisconnected, m.State().Status,
		"a cancelled connect timer must not fire after Stop")
}

func TestManager_ReconnectWithoutPortfolioIsNoop(t *testing.T) {
	transport := &fakeTransport{}
	m := newTestManager(transport, fakeDirectory{})

	m.Reconnect()
	assert.Equal(t, StatusDisconnected, m.State().Status)
	assert.Zero(t, transport.count())
}

func TestManager_RefreshTracked(t *testing.T) {
	dir := fakeDirectory{"p1": {"a1"}}
	transport := &fakeTransport{}
	m := newTestManager(transport, dir)
	m.Start("p1")
	sub := transport.last(t)
	sub.sink.OnOpen()

	sub.sink.OnEvent(domain.PriceEvent{AssetID: "a2", Price: 7})
	assert.Zero(t, m.Book().Len())

	// Asset a2 gets added to the portfolio mid-session.
	dir["p1"] = []string{"a1", "a2"}
	require.NoError(t, m.RefreshTracked())

	sub.sink.OnEvent(domain.PriceEvent{AssetID: "a2", Price: 7})
	assert.Equal(t, 1, m.Book().Len())
}
