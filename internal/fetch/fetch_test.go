package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAllWaitsForEveryTask(t *testing.T) {
	var done atomic.Int32
	slow := func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		done.Add(1)
		return nil
	}
	fast := func(ctx context.Context) error {
		done.Add(1)
		return nil
	}

	if err := All(context.Background(), slow, fast, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Load() != 2 {
		t.Fatalf("expected both tasks to finish, got %d", done.Load())
	}
}

func TestAllReturnsFirstErrorAndCancels(t *testing.T) {
	boom := errors.New("boom")
	cancelled := make(chan struct{})

	err := All(context.Background(),
		func(ctx context.Context) error { return boom },
		func(ctx context.Context) error {
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	select {
	case <-cancelled:
	default:
		t.Fatal("sibling task should observe cancellation")
	}
}

func TestInto(t *testing.T) {
	var users []string
	task := Into(&users, func(ctx context.Context) ([]string, error) {
		return []string{"ana"}, nil
	})
	if err := All(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || users[0] != "ana" {
		t.Fatalf("unexpected users %v", users)
	}
}

func TestSlotDiscardsStaleCommit(t *testing.T) {
	var s Slot[string]

	first := s.Begin()
	second := s.Begin()

	if !s.Commit(second, "new", nil) {
		t.Fatal("latest ticket should commit")
	}
	if s.Commit(first, "old", nil) {
		t.Fatal("stale ticket must be discarded")
	}
	if v, _ := s.Get(); v != "new" {
		t.Fatalf("expected new, got %q", v)
	}
	if s.Loading() {
		t.Fatal("no load should be pending")
	}
}

func TestSlotClosedDiscards(t *testing.T) {
	var s Slot[int]
	ticket := s.Begin()
	if !s.Loading() {
		t.Fatal("slot should be loading")
	}
	s.Close()
	if s.Commit(ticket, 3, nil) {
		t.Fatal("commit after close must be discarded")
	}
	if v, _ := s.Get(); v != 0 {
		t.Fatalf("closed slot kept value %d", v)
	}
}
