// Package alerts keeps the ordered alert collection shown to each worker.
package alerts

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/airflowfield/dashboard/internal/backend"
	"github.com/airflowfield/dashboard/internal/fetch"
)

// Entry is one stored alert. Pushed marks alerts that arrived on the live feed and
// were not part of the last installed backlog.
type Entry struct {
	backend.Alert
	Pushed bool `json:"pushed,omitempty"`
}

// Store persists the collection of one identity, most recent first, one entry per
// alert id.
type Store interface {
	Replace(ctx context.Context, identity string, list []Entry) error
	// Prepend reports false when the alert id was already present.
	Prepend(ctx context.Context, identity string, entry Entry) (bool, error)
	Remove(ctx context.Context, identity, id string) error
	List(ctx context.Context, identity string) ([]Entry, error)
}

// Inbox merges the fetched backlog and the live pushes of every identity.
type Inbox struct {
	store  Store
	logger zerolog.Logger

	mu     sync.Mutex
	states map[string]*state
}

// state serializes the writers of one identity so a push never lands between the
// read and the rewrite of a backlog load.
type state struct {
	mu   sync.Mutex
	slot fetch.Slot[[]backend.Alert]
}

func NewInbox(store Store, logger zerolog.Logger) *Inbox {
	return &Inbox{
		store:  store,
		logger: logger.With().Str("component", "alerts").Logger(),
		states: make(map[string]*state),
	}
}

func (i *Inbox) stateFor(identity string) *state {
	i.mu.Lock()
	defer i.mu.Unlock()
	s, ok := i.states[identity]
	if !ok {
		s = &state{}
		i.states[identity] = s
	}
	return s
}

// Begin marks the start of a backlog fetch for identity. Pass the ticket to LoadAt
// once the fetch returns.
func (i *Inbox) Begin(identity string) fetch.Ticket {
	return i.stateFor(normalize(identity)).slot.Begin()
}

// Load installs a backlog fetched outside any ticket.
func (i *Inbox) Load(ctx context.Context, identity string, backlog []backend.Alert) ([]backend.Alert, error) {
	return i.LoadAt(ctx, identity, i.Begin(identity), backlog)
}

// LoadAt installs a freshly fetched backlog. It replaces everything previously
// loaded; only pushed alerts the backlog does not contain yet stay in front. A
// backlog whose fetch began before a newer one is discarded and the current
// collection is returned instead.
func (i *Inbox) LoadAt(ctx context.Context, identity string, ticket fetch.Ticket, backlog []backend.Alert) ([]backend.Alert, error) {
	identity = normalize(identity)
	st := i.stateFor(identity)
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.slot.Commit(ticket, backlog, nil) {
		i.logger.Debug().Str("identity", identity).Msg("alerts: stale backlog discarded")
		return i.list(ctx, identity)
	}

	current, err := i.store.List(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("alerts: load: %w", err)
	}

	inBacklog := make(map[backend.ID]struct{}, len(backlog))
	for _, a := range backlog {
		inBacklog[a.ID] = struct{}{}
	}
	merged := make([]Entry, 0, len(current)+len(backlog))
	for _, e := range current {
		if _, ok := inBacklog[e.ID]; e.Pushed && !ok {
			merged = append(merged, e)
		}
	}
	for _, a := range backlog {
		merged = append(merged, Entry{Alert: a})
	}
	merged = dedupe(merged)

	if err := i.store.Replace(ctx, identity, merged); err != nil {
		return nil, fmt.Errorf("alerts: load: %w", err)
	}
	return alertsOf(merged), nil
}

// Push prepends an alert received from the live feed. Repeated ids are ignored.
func (i *Inbox) Push(ctx context.Context, identity string, alert backend.Alert) error {
	identity = normalize(identity)
	st := i.stateFor(identity)
	st.mu.Lock()
	defer st.mu.Unlock()

	added, err := i.store.Prepend(ctx, identity, Entry{Alert: alert, Pushed: true})
	if err != nil {
		return fmt.Errorf("alerts: push: %w", err)
	}
	if !added {
		i.logger.Debug().Str("alert", alert.ID.String()).Msg("alerts: duplicate ignored")
	}
	return nil
}

func (i *Inbox) Remove(ctx context.Context, identity, id string) error {
	identity = normalize(identity)
	st := i.stateFor(identity)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := i.store.Remove(ctx, identity, id); err != nil {
		return fmt.Errorf("alerts: remove: %w", err)
	}
	return nil
}

func (i *Inbox) List(ctx context.Context, identity string) ([]backend.Alert, error) {
	return i.list(ctx, normalize(identity))
}

func (i *Inbox) list(ctx context.Context, identity string) ([]backend.Alert, error) {
	list, err := i.store.List(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("alerts: list: %w", err)
	}
	return alertsOf(list), nil
}

func normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func alertsOf(list []Entry) []backend.Alert {
	out := make([]backend.Alert, len(list))
	for i, e := range list {
		out[i] = e.Alert
	}
	return out
}

// dedupe keeps the first occurrence of every id; alerts without id are kept as is.
func dedupe(list []Entry) []Entry {
	seen := make(map[backend.ID]struct{}, len(list))
	out := list[:0]
	for _, e := range list {
		if e.ID != "" {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
		}
		out = append(out, e)
	}
	return out
}
