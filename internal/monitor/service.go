// Package monitor watches the remote API and tells operators when it goes away.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Config tunes the watch loop. FailureThreshold consecutive failed rounds mark the
// upstream as down.
type Config struct {
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold int
}

// Snapshot is the state after the last round.
type Snapshot struct {
	Up        bool
	CheckedAt time.Time
	Failures  int
	LastError string
}

// Service runs the checks periodically and notifies on up/down transitions.
type Service struct {
	checks   map[string]Check
	cfg      Config
	notifier Notifier
	logger   zerolog.Logger

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.RWMutex
	state Snapshot
}

// NewService builds the watcher; notifier may be nil.
func NewService(checks map[string]Check, cfg Config, notifier Notifier, logger zerolog.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	return &Service{
		checks:   checks,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger.With().Str("component", "monitor").Logger(),
		done:     make(chan struct{}),
		state:    Snapshot{Up: true},
	}
}

// Start launches the loop. Safe to call more than once.
func (s *Service) Start(parent context.Context) {
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.cancel = cancel
		go s.runLoop(ctx)
	})
}

// Stop ends the loop and waits for it.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Snapshot returns the state after the last round.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) runLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("monitor: loop started")
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("monitor: loop stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check once and updates the snapshot.
func (s *Service) RunOnce(ctx context.Context) Snapshot {
	var firstErr error
	for name, check := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		err := check(checkCtx)
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Str("check", name).Msg("monitor: check failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	if ctx.Err() != nil {
		return s.Snapshot()
	}

	s.mu.Lock()
	prev := s.state
	next := Snapshot{Up: prev.Up, CheckedAt: time.Now()}
	if firstErr != nil {
		next.Failures = prev.Failures + 1
		next.LastError = firstErr.Error()
		if next.Failures >= s.cfg.FailureThreshold {
			next.Up = false
		}
	} else {
		next.Up = true
	}
	s.state = next
	s.mu.Unlock()

	switch {
	case prev.Up && !next.Up:
		s.notify(ctx, Message{
			Title:    "API no disponible",
			Text:     fmt.Sprintf("%d comprobaciones fallidas: %s", next.Failures, next.LastError),
			Severity: SeverityCritical,
		})
	case !prev.Up && next.Up:
		s.notify(ctx, Message{Title: "API recuperada", Text: "Las comprobaciones vuelven a responder", Severity: SeverityInfo})
	}
	return next
}

func (s *Service) notify(ctx context.Context, msg Message) {
	s.logger.Warn().Str("title", msg.Title).Str("severity", msg.Severity).Msg("monitor: state changed")
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Error().Err(err).Msg("monitor: notification failed")
	}
}
