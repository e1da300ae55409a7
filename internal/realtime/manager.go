package realtime

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoutso/portico/internal/domain"
)

// Status is the connection state of the realtime channel.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// ConnectionState is the read-only view of channel health exposed to the UI.
type ConnectionState struct {
	Status      Status     `json:"status"`
	PortfolioID string     `json:"portfolioId,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// Sink receives transport callbacks. The manager hands one to the transport
// per subscription attempt; callbacks from a superseded subscription are
// discarded by generation check.
type Sink interface {
	OnOpen()
	OnEvent(ev domain.PriceEvent)
	OnClose(err error)
}

// Subscription is a live handle to a per-portfolio price stream.
type Subscription interface {
	Close() error
}

// Transport dials the upstream price channel. Implementations deliver
// events and lifecycle callbacks to the sink until Close is called on the
// returned subscription or the context is cancelled. Subscription.Close
// must not invoke sink callbacks synchronously; the manager calls it while
// holding its own lock.
type Transport interface {
	Subscribe(ctx context.Context, portfolioID string, sink Sink) (Subscription, error)
}

// AssetDirectory tells the manager which asset IDs belong to a portfolio,
// so events for deleted or foreign assets can be dropped.
type AssetDirectory interface {
	IDs(portfolioID string) ([]string, error)
}

// Manager owns at most one live subscription and the connection state
// machine around it:
//
//	disconnected → connecting → connected
//	                   ↘ error → connecting (manual Reconnect only)
//
// Every subscription attempt gets a new generation number; callbacks and
// events carrying a stale generation are ignored, which makes portfolio
// switches and teardown race-free without ordering assumptions on the
// transport. The manager never retries on its own; after an error it stays
// put until Reconnect or Start is called.
type Manager struct {
	transport Transport
	directory AssetDirectory
	book      *PriceBook
	log       zerolog.Logger

	connectTimeout time.Duration

	mu           sync.Mutex
	generation   uint64
	state        ConnectionState
	portfolioID  string
	tracked      map[string]struct{}
	sub          Subscription
	cancel       context.CancelFunc
	connectTimer *time.Timer
}

// NewManager creates a channel manager. The transport and directory are
// injected so the state machine is unit-testable without a network.
func NewManager(transport Transport, directory AssetDirectory, book *PriceBook, connectTimeout time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		transport:      transport,
		directory:      directory,
		book:           book,
		connectTimeout: connectTimeout,
		log:            log.With().Str("component", "realtime_manager").Logger(),
		state:          ConnectionState{Status: StatusDisconnected},
	}
}

// Start begins tracking a portfolio. Any previous subscription is torn down
// first so events can never leak across portfolios. Start returns once the
// state is "connecting"; the transition to "connected" or "error" happens
// asynchronously.
func (m *Manager) Start(portfolioID string) {
	m.mu.Lock()
	gen := m.teardownLocked()
	m.portfolioID = portfolioID
	m.state = ConnectionState{Status: StatusConnecting, PortfolioID: portfolioID, LastUpdated: m.state.LastUpdated}

	tracked, err := m.loadTracked(portfolioID)
	if err != nil {
		m.state.Status = StatusError
		m.state.LastError = fmt.Sprintf("failed to load portfolio assets: %v", err)
		m.mu.Unlock()
		return
	}
	m.tracked = tracked
	m.armConnectTimerLocked(gen)
	m.mu.Unlock()

	m.log.Info().Str("portfolio_id", portfolioID).Uint64("generation", gen).Msg("Starting realtime subscription")
	go m.dial(gen, portfolioID)
}

// Stop tears down the subscription and returns to "disconnected". Safe to
// call repeatedly. After Stop returns, no callback from the old
// subscription can mutate state: its generation is already stale.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.teardownLocked()
	m.portfolioID = ""
	m.tracked = nil
	m.state = ConnectionState{Status: StatusDisconnected, LastUpdated: m.state.LastUpdated}
	m.mu.Unlock()

	m.log.Info().Msg("Realtime subscription stopped")
}

// Reconnect re-dials the currently tracked portfolio. It is the UI's
// "Reconnect" affordance; a no-op when nothing is tracked.
func (m *Manager) Reconnect() {
	m.mu.Lock()
	portfolioID := m.portfolioID
	m.mu.Unlock()

	if portfolioID == "" {
		m.log.Debug().Msg("Reconnect requested with no tracked portfolio")
		return
	}
	m.log.Info().Str("portfolio_id", portfolioID).Msg("Manual reconnect requested")
	m.Start(portfolioID)
}

// State returns a copy of the current connection state.
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Book exposes the shadow price book for read-side overlays.
func (m *Manager) Book() *PriceBook {
	return m.book
}

// RefreshTracked reloads the tracked asset set for the current portfolio.
// Called after assets are added or removed while a subscription is live.
func (m *Manager) RefreshTracked() error {
	m.mu.Lock()
	portfolioID := m.portfolioID
	m.mu.Unlock()
	if portfolioID == "" {
		return nil
	}

	tracked, err := m.loadTracked(portfolioID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.portfolioID == portfolioID {
		m.tracked = tracked
	}
	m.mu.Unlock()
	return nil
}

// teardownLocked closes any live subscription, stops the connect timer and
// bumps the generation so in-flight callbacks become stale. Returns the new
// generation. Caller holds m.mu.
func (m *Manager) teardownLocked() uint64 {
	m.generation++
	if m.connectTimer != nil {
		m.connectTimer.Stop()
		m.connectTimer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.sub != nil {
		// Close errors on teardown are expected (the peer may already be gone).
		_ = m.sub.Close()
		m.sub = nil
	}
	return m.generation
}

func (m *Manager) loadTracked(portfolioID string) (map[string]struct{}, error) {
	ids, err := m.directory.IDs(portfolioID)
	if err != nil {
		return nil, err
	}
	tracked := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		tracked[id] = struct{}{}
	}
	return tracked, nil
}

// armConnectTimerLocked schedules the connecting→error timeout transition.
// Caller holds m.mu.
func (m *Manager) armConnectTimerLocked(gen uint64) {
	if m.connectTimeout <= 0 {
		return
	}
	m.connectTimer = time.AfterFunc(m.connectTimeout, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.generation || m.state.Status != StatusConnecting {
			return
		}
		m.state.Status = StatusError
		m.state.LastError = fmt.Sprintf("connection attempt timed out after %s", m.connectTimeout)
		m.log.Warn().Str("portfolio_id", m.portfolioID).Msg("Realtime connection attempt timed out")
	})
}

// dial runs the subscription attempt for one generation.
func (m *Manager) dial(gen uint64, portfolioID string) {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancel = cancel
	m.mu.Unlock()

	sub, err := m.transport.Subscribe(ctx, portfolioID, &generationSink{m: m, gen: gen})

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		// Superseded while dialing; discard whatever we got.
		if sub != nil {
			_ = sub.Close()
		}
		return
	}
	if err != nil {
		m.state.Status = StatusError
		m.state.LastError = fmt.Sprintf("failed to connect: %v", err)
		m.log.Error().Err(err).Str("portfolio_id", portfolioID).Msg("Realtime connection failed")
		return
	}
	m.sub = sub
}

// generationSink forwards transport callbacks tagged with the generation
// they belong to.
type generationSink struct {
	m   *Manager
	gen uint64
}

func (s *generationSink) OnOpen()                      { s.m.onOpen(s.gen) }
func (s *generationSink) OnEvent(ev domain.PriceEvent) { s.m.onEvent(s.gen, ev) }
func (s *generationSink) OnClose(err error)            { s.m.onClose(s.gen, err) }

func (m *Manager) onOpen(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	if m.connectTimer != nil {
		m.connectTimer.Stop()
		m.connectTimer = nil
	}
	m.state.Status = StatusConnected
	m.state.LastError = ""
	m.log.Info().Str("portfolio_id", m.portfolioID).Msg("Realtime channel connected")
}

func (m *Manager) onClose(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	m.state.Status = StatusError
	if err != nil {
		m.state.LastError = fmt.Sprintf("channel closed: %v", err)
	} else {
		m.state.LastError = "channel closed unexpectedly"
	}
	m.sub = nil
	m.log.Warn().Err(err).Str("portfolio_id", m.portfolioID).Msg("Realtime channel closed")
}

// onEvent applies one price event to the shadow book. Events are applied in
// arrival order, last write wins per asset. Malformed events and events for
// unknown assets are dropped without touching the subscription.
func (m *Manager) onEvent(gen uint64, ev domain.PriceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}

	if ev.AssetID == "" || math.IsNaN(ev.Price) || math.IsInf(ev.Price, 0) || ev.Price < 0 {
		m.log.Warn().
			Str("asset_id", ev.AssetID).
			Float64("price", ev.Price).
			Msg("Dropping malformed price event")
		return
	}
	if _, ok := m.tracked[ev.AssetID]; !ok {
		// Not an error: the asset may have been deleted, or the event raced
		// a portfolio switch.
		m.log.Debug().Str("asset_id", ev.AssetID).Msg("Dropping price event for untracked asset")
		return
	}

	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	m.book.Apply(ev.AssetID, ev.Price, at)
	m.state.LastUpdated = &at
}
