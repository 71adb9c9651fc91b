package mdd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// RawMessage is an unparsed inbound WebSocket frame, tagged with the
// exchange it arrived from and the moment it was received (the clock used
// to budget L1 ingestion).
type RawMessage struct {
	Exchange  string
	Payload   []byte
	ReceivedAt time.Time
}

// Session owns one WebSocket connection to one (exchange, endpoint) pair,
// following the teacher's Kraken client: dial, heartbeat loop, reconnect
// with the capped backoff table from §4.1.
type Session struct {
	Exchange string
	URL      string

	heartbeatInterval time.Duration
	reconnectDelays   []time.Duration

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	degraded  bool
	attempt   int
	lastBeat  time.Time

	out chan RawMessage
	log zerolog.Logger
}

// NewSession builds a session; reconnectDelays should be the §4.1 table
// (0, 1, 2, 4, 8s, capped thereafter).
func NewSession(exchange, url string, heartbeat time.Duration, reconnectDelays []time.Duration, log zerolog.Logger) *Session {
	return &Session{
		Exchange:          exchange,
		URL:               url,
		heartbeatInterval: heartbeat,
		reconnectDelays:   reconnectDelays,
		out:               make(chan RawMessage, 4096),
		log:               log.With().Str("exchange", exchange).Logger(),
	}
}

// Messages returns the channel L1 ingestion reads raw frames from.
func (s *Session) Messages() <-chan RawMessage { return s.out }

// Run dials and redials the session until ctx is cancelled, feeding Messages
// with every received frame. It never returns before ctx is done except on
// an unrecoverable dial error during the very first connect attempt inside
// a configuration error (surfaced, not retried — §7).
func (s *Session) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			close(s.out)
			return ctx.Err()
		}

		if err := s.connectAndServe(ctx); err != nil {
			s.log.Warn().Err(err).Int("attempt", s.attempt+1).Msg("session disconnected")
		}

		if ctx.Err() != nil {
			close(s.out)
			return ctx.Err()
		}

		delay := s.backoffDelay()
		s.mu.Lock()
		s.attempt++
		if s.attempt > len(s.reconnectDelays) {
			s.degraded = true
		}
		s.mu.Unlock()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			close(s.out)
			return ctx.Err()
		}
	}
}

func (s *Session) backoffDelay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.attempt >= len(s.reconnectDelays) {
		return s.reconnectDelays[len(s.reconnectDelays)-1]
	}
	return s.reconnectDelays[s.attempt]
}

func (s *Session) connectAndServe(ctx context.Context) error {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.URL, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.degraded = false
	s.attempt = 0
	s.lastBeat = time.Now()
	s.mu.Unlock()
	s.log.Info().Str("url", s.URL).Msg("session connected")

	defer func() {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		conn.Close()
	}()

	conn.SetPongHandler(func(string) error {
		s.mu.Lock()
		s.lastBeat = time.Now()
		s.mu.Unlock()
		return nil
	})

	go s.heartbeatLoop(ctx, conn)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		select {
		case s.out <- RawMessage{Exchange: s.Exchange, Payload: payload, ReceivedAt: time.Now()}:
		default:
			s.log.Warn().Msg("inbound channel full, dropping frame")
		}
	}
}

func (s *Session) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Healthy reports whether a heartbeat round-trip happened within the
// configured interval (§4.1 health monitoring).
func (s *Session) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return false
	}
	return time.Since(s.lastBeat) <= s.heartbeatInterval*2
}

// Degraded reports whether reconnection attempts have exceeded attempt 5
// (§4.1 reconnection protocol).
func (s *Session) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}
