// Package feed keeps the live alert connection of a worker identity.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventRegister = "register"
	EventNewAlert = "new-alert"
)

// ErrNoIdentity is returned by Subscribe for a blank identity; nothing is dialed.
var ErrNoIdentity = errors.New("feed: identity required")

// Frame is one named event exchanged on the event channel.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the payload of every new-alert event, unvalidated.
type Handler func(payload json.RawMessage)

// Policy decides how a dropped connection is re-established. MaxAttempts counts
// consecutive failed connections; it resets after every successful register. Zero
// disables reconnection.
type Policy struct {
	Backoff     time.Duration
	MaxAttempts int
}

// Subscription is one registered identity on the event channel.
type Subscription struct {
	identity string
	dialer   Dialer
	handler  Handler
	policy   Policy
	logger   zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	mu     sync.Mutex
	conn   Conn
	closed bool
	err    error
}

// Subscribe connects identity to the event channel and invokes onAlert for every
// new-alert event until Close. The connection is established in the background.
func Subscribe(ctx context.Context, dialer Dialer, identity string, onAlert Handler, policy Policy, logger zerolog.Logger) (*Subscription, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrNoIdentity
	}
	if dialer == nil || onAlert == nil {
		return nil, errors.New("feed: dialer and handler required")
	}
	if policy.MaxAttempts < 0 {
		policy.MaxAttempts = 0
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		identity: identity,
		dialer:   dialer,
		handler:  onAlert,
		policy:   policy,
		logger:   logger.With().Str("component", "feed").Str("identity", identity).Logger(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run(runCtx)
	return s, nil
}

// Identity returns the registered identity.
func (s *Subscription) Identity() string { return s.identity }

// Done is closed when the subscription stops for good.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the failure that ended the subscription, nil after Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close terminates the connection and returns once the handler can no longer be
// invoked. It must not be called from inside the handler.
func (s *Subscription) Close() {
	s.mu.Lock()
	s.closed = true
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

func (s *Subscription) run(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.done)

	failures := 0
	for {
		registered, err := s.session(ctx)
		if ctx.Err() != nil || s.isClosed() {
			return
		}
		if registered {
			failures = 0
		}
		failures++
		if failures > s.policy.MaxAttempts {
			s.logger.Warn().Err(err).Int("attempts", failures).Msg("feed: giving up")
			s.setErr(err)
			return
		}

		s.logger.Info().Err(err).Int("attempt", failures).Dur("backoff", s.policy.Backoff).Msg("feed: reconnecting")
		timer := time.NewTimer(s.policy.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session dials, registers and reads until the connection drops.
func (s *Subscription) session(ctx context.Context) (bool, error) {
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		return false, err
	}
	if !s.attach(conn) {
		_ = conn.Close()
		return false, context.Canceled
	}
	defer s.detach(conn)

	identity, _ := json.Marshal(s.identity)
	if err := conn.WriteJSON(Frame{Event: EventRegister, Data: identity}); err != nil {
		return false, err
	}
	s.logger.Debug().Msg("feed: registered")

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return true, err
		}
		if frame.Event != EventNewAlert {
			continue
		}
		if s.isClosed() {
			return true, context.Canceled
		}
		s.handler(frame.Data)
	}
}

func (s *Subscription) attach(conn Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conn = conn
	return true
}

func (s *Subscription) detach(conn Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
