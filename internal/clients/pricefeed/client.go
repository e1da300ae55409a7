// Package pricefeed implements the realtime transport against the upstream
// price feed websocket.
package pricefeed

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/nkoutso/portico/internal/domain"
	"github.com/nkoutso/portico/internal/realtime"
)

const writeWait = 10 * time.Second

// Client dials the upstream price feed. One Subscribe call maps to one
// websocket connection scoped to a single portfolio. The client never
// retries on its own; reconnect policy lives with the caller.
type Client struct {
	url        string
	httpClient *http.Client
	log        zerolog.Logger
}

// createHTTP1Client creates an HTTP client that forces HTTP/1.1.
// Required because Cloudflare negotiates HTTP/2 via TLS ALPN,
// but WebSocket requires HTTP/1.1 for the upgrade handshake.
func createHTTP1Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				NextProtos: []string{"http/1.1"},
			},
			ForceAttemptHTTP2: false,
		},
	}
}

// New creates a price feed client for the given websocket URL.
func New(url string, log zerolog.Logger) *Client {
	return &Client{
		url:        url,
		httpClient: createHTTP1Client(),
		log:        log.With().Str("component", "pricefeed").Logger(),
	}
}

// subscribeMessage is the frame sent right after the upgrade handshake.
type subscribeMessage struct {
	Action      string `json:"action"`
	PortfolioID string `json:"portfolio_id"`
}

// priceFrame is one pushed price update.
type priceFrame struct {
	AssetID   string  `json:"asset_id"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds, 0 when absent
}

// Subscribe dials the feed, subscribes to the portfolio's channel and starts
// a read loop feeding the sink. The passed context bounds the dial; closing
// the returned Subscription ends the connection without a sink callback from
// the Close call itself (the read loop reports the shutdown asynchronously).
func (c *Client) Subscribe(ctx context.Context, portfolioID string, sink realtime.Sink) (realtime.Subscription, error) {
	c.log.Info().Str("url", c.url).Str("portfolio_id", portfolioID).Msg("Connecting to price feed")

	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial price feed: %w", err)
	}

	if err := c.subscribe(ctx, conn, portfolioID); err != nil {
		conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		return nil, err
	}

	readCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{conn: conn, cancel: cancel}

	sink.OnOpen()
	go c.readLoop(readCtx, conn, sub, sink)

	c.log.Info().Str("portfolio_id", portfolioID).Msg("Price feed subscription established")
	return sub, nil
}

func (c *Client) subscribe(ctx context.Context, conn *websocket.Conn, portfolioID string) error {
	data, err := json.Marshal(subscribeMessage{Action: "subscribe", PortfolioID: portfolioID})
	if err != nil {
		return fmt.Errorf("failed to marshal subscribe message: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send subscribe message: %w", err)
	}
	return nil
}

// readLoop reads frames until the connection dies or the subscription is
// closed. The terminating OnClose carries nil on a local close so the caller
// can tell a requested shutdown from a feed failure.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, sub *subscription, sink realtime.Sink) {
	for {
		msgType, message, err := conn.Read(ctx)
		if err != nil {
			if sub.wasClosed() || ctx.Err() != nil {
				c.log.Debug().Msg("Price feed read loop stopped")
				sink.OnClose(nil)
				return
			}
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				c.log.Info().Int("status", int(closeStatus)).Msg("Price feed closed by server")
			} else {
				c.log.Error().Err(err).Msg("Price feed read error")
			}
			sink.OnClose(err)
			return
		}

		if msgType != websocket.MessageText {
			c.log.Debug().Int("type", int(msgType)).Msg("Ignoring non-text frame")
			continue
		}

		var frame priceFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			// One garbled frame does not kill the channel.
			c.log.Warn().Err(err).Msg("Dropping undecodable price frame")
			continue
		}

		ev := domain.PriceEvent{AssetID: frame.AssetID, Price: frame.Price}
		if frame.Timestamp > 0 {
			ev.Timestamp = time.UnixMilli(frame.Timestamp).UTC()
		}
		sink.OnEvent(ev)
	}
}

// subscription ties one websocket connection to its read loop.
type subscription struct {
	conn   *websocket.Conn
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Close cancels the read loop and closes the connection. It never invokes
// sink callbacks itself.
func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

func (s *subscription) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
