package feed

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/airflowfield/dashboard/internal/backend"
)

const listenerBuffer = 16

// Sink stores alerts pushed by the event channel.
type Sink interface {
	Push(ctx context.Context, identity string, alert backend.Alert) error
}

// Listener receives the alerts pushed to one identity. C is closed on release, when
// the subscription gives up reconnecting, or when the manager shuts down.
type Listener struct {
	ID       string
	Identity string
	C        <-chan backend.Alert
	release  func()
}

// Release detaches the listener; the last release of an identity closes its
// subscription. Safe to call more than once.
func (l *Listener) Release() { l.release() }

type entry struct {
	sub       *Subscription
	listeners map[string]chan backend.Alert
}

// Manager keeps one subscription per identity, shared by all of its listeners.
type Manager struct {
	dialer Dialer
	policy Policy
	sink   Sink
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

func NewManager(dialer Dialer, policy Policy, sink Sink, logger zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		dialer:  dialer,
		policy:  policy,
		sink:    sink,
		logger:  logger.With().Str("component", "feed-manager").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
}

// Acquire registers a listener for identity, subscribing on first use.
func (m *Manager) Acquire(identity string) (*Listener, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrNoIdentity
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("feed: manager closed")
	}

	e, ok := m.entries[identity]
	if ok && stopped(e.sub) {
		m.retire(identity, e)
		ok = false
	}
	if !ok {
		sub, err := Subscribe(m.ctx, m.dialer, identity, m.handlerFor(identity), m.policy, m.logger)
		if err != nil {
			return nil, err
		}
		e = &entry{sub: sub, listeners: make(map[string]chan backend.Alert)}
		m.entries[identity] = e
		go m.watch(identity, e)
		m.logger.Info().Str("identity", identity).Msg("feed: subscribed")
	}

	id := uuid.NewString()
	ch := make(chan backend.Alert, listenerBuffer)
	e.listeners[id] = ch

	var once sync.Once
	return &Listener{
		ID:       id,
		Identity: identity,
		C:        ch,
		release:  func() { once.Do(func() { m.release(identity, id) }) },
	}, nil
}

// Listeners returns the number of listeners attached to identity.
func (m *Manager) Listeners(identity string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[identity]; ok {
		return len(e.listeners)
	}
	return 0
}

// watch retires e once its subscription stops on its own, so listeners see their
// channel close and the next Acquire dials again.
func (m *Manager) watch(identity string, e *entry) {
	select {
	case <-e.sub.Done():
	case <-m.ctx.Done():
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[identity] == e {
		m.retire(identity, e)
		m.logger.Warn().Err(e.sub.Err()).Str("identity", identity).Msg("feed: subscription ended, listeners closed")
	}
}

// retire drops e and closes its listener channels. m.mu must be held.
func (m *Manager) retire(identity string, e *entry) {
	if m.entries[identity] == e {
		delete(m.entries, identity)
	}
	for id, ch := range e.listeners {
		delete(e.listeners, id)
		close(ch)
	}
}

func stopped(sub *Subscription) bool {
	select {
	case <-sub.Done():
		return true
	default:
		return false
	}
}

func (m *Manager) release(identity, id string) {
	m.mu.Lock()
	e, ok := m.entries[identity]
	if !ok {
		m.mu.Unlock()
		return
	}
	ch, ok := e.listeners[id]
	if !ok {
		// already closed by retire
		m.mu.Unlock()
		return
	}
	delete(e.listeners, id)
	close(ch)
	var sub *Subscription
	if len(e.listeners) == 0 {
		delete(m.entries, identity)
		sub = e.sub
	}
	m.mu.Unlock()

	if sub != nil {
		sub.Close()
		m.logger.Info().Str("identity", identity).Msg("feed: unsubscribed")
	}
}

func (m *Manager) handlerFor(identity string) Handler {
	return func(payload json.RawMessage) {
		var alert backend.Alert
		if err := json.Unmarshal(payload, &alert); err != nil {
			m.logger.Warn().Err(err).Str("identity", identity).Msg("feed: undecodable alert payload")
			return
		}
		if m.sink != nil {
			if err := m.sink.Push(m.ctx, identity, alert); err != nil {
				m.logger.Error().Err(err).Str("identity", identity).Msg("feed: store alert failed")
			}
		}
		m.broadcast(identity, alert)
	}
}

func (m *Manager) broadcast(identity string, alert backend.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[identity]
	if !ok {
		return
	}
	for id, ch := range e.listeners {
		select {
		case ch <- alert:
		default:
			m.logger.Warn().Str("identity", identity).Str("listener", id).Msg("feed: listener full, alert dropped")
		}
	}
}

// Close tears down every subscription and closes all listener channels.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	entries := m.entries
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	m.cancel()
	for _, e := range entries {
		e.sub.Close()
		for _, ch := range e.listeners {
			close(ch)
		}
	}
}
