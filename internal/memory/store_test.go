package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestHistoryBoundedToCapacity(t *testing.T) {
	s := NewStore(5)

	// Seven user/assistant pairs; only the most recent five turns survive.
	for i := 0; i < 7; i++ {
		s.Append("s1",
			NewTurn(RoleUser, fmt.Sprintf("user-%d", i)),
			NewTurn(RoleAssistant, fmt.Sprintf("assistant-%d", i)),
		)
	}

	got := s.History("s1")
	if len(got) != 5 {
		t.Fatalf("history length = %d, want 5", len(got))
	}
	want := []string{"assistant-4", "user-5", "assistant-5", "user-6", "assistant-6"}
	for i, turn := range got {
		if turn.Content != want[i] {
			t.Fatalf("history[%d] = %q, want %q", i, turn.Content, want[i])
		}
	}
}

func TestZeroCapacityRetainsNothing(t *testing.T) {
	s := NewStore(0)
	s.Append("s1", NewTurn(RoleUser, "hello"))
	if got := s.History("s1"); len(got) != 0 {
		t.Fatalf("history length = %d, want 0", len(got))
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	s := NewStore(5)
	s.Append("b", NewTurn(RoleUser, "before"))
	beforeLen := len(s.History("b"))

	s.Append("a", NewTurn(RoleUser, "noise"), NewTurn(RoleAssistant, "more noise"))

	got := s.History("b")
	if len(got) != beforeLen {
		t.Fatalf("history(b) length = %d, want %d", len(got), beforeLen)
	}
	if got[0].Content != "before" {
		t.Fatalf("history(b)[0] = %q, want %q", got[0].Content, "before")
	}
}

func TestUnknownSessionYieldsEmptyHistory(t *testing.T) {
	s := NewStore(5)
	if got := s.History("never-seen"); len(got) != 0 {
		t.Fatalf("history length = %d, want 0", len(got))
	}
}

func TestHistorySnapshotIsDetached(t *testing.T) {
	s := NewStore(5)
	s.Append("s1", NewTurn(RoleUser, "original"))

	snap := s.History("s1")
	snap[0].Content = "mutated"

	if got := s.History("s1")[0].Content; got != "original" {
		t.Fatalf("stored content = %q, want %q", got, "original")
	}
}

func TestExchangeCommitsOnSuccess(t *testing.T) {
	s := NewStore(5)
	err := s.Exchange(context.Background(), "s1", func(history []Turn) ([]Turn, error) {
		if len(history) != 0 {
			t.Fatalf("snapshot length = %d, want 0", len(history))
		}
		return []Turn{
			NewTurn(RoleUser, "I had a stressful day"),
			NewTurn(RoleAssistant, "That sounds hard"),
		}, nil
	})
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	got := s.History("s1")
	if len(got) != 2 {
		t.Fatalf("history length = %d, want 2", len(got))
	}
	if got[0].Role != RoleUser || got[1].Role != RoleAssistant {
		t.Fatalf("roles = %v/%v, want user/assistant", got[0].Role, got[1].Role)
	}
}

func TestExchangeFailureLeavesHistoryUntouched(t *testing.T) {
	s := NewStore(5)
	s.Append("s1", NewTurn(RoleUser, "earlier"))
	before := s.History("s1")

	wantErr := errors.New("provider down")
	err := s.Exchange(context.Background(), "s1", func([]Turn) ([]Turn, error) {
		return []Turn{NewTurn(RoleUser, "must not appear")}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Exchange() error = %v, want %v", err, wantErr)
	}

	after := s.History("s1")
	if len(after) != len(before) {
		t.Fatalf("history length = %d, want %d", len(after), len(before))
	}
	for i := range after {
		if after[i].Content != before[i].Content {
			t.Fatalf("history[%d] = %q, want %q", i, after[i].Content, before[i].Content)
		}
	}
}

func TestExchangeCancelledContextCommitsNothing(t *testing.T) {
	s := NewStore(5)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Exchange(ctx, "s1", func([]Turn) ([]Turn, error) {
		// Caller disconnects while the provider call is in flight.
		cancel()
		return []Turn{NewTurn(RoleUser, "abandoned")}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Exchange() error = %v, want context.Canceled", err)
	}
	if got := s.History("s1"); len(got) != 0 {
		t.Fatalf("history length = %d, want 0", len(got))
	}
}

func TestExchangesForSameSessionSerialize(t *testing.T) {
	s := NewStore(10)
	var inFlight, maxInFlight int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Exchange(context.Background(), "s1", func([]Turn) ([]Turn, error) {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				inFlight--
				mu.Unlock()
				return []Turn{NewTurn(RoleUser, "x"), NewTurn(RoleAssistant, "y")}, nil
			})
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Fatalf("max concurrent exchanges = %d, want 1", maxInFlight)
	}
}

func TestConcurrentAppendsAcrossSessions(t *testing.T) {
	s := NewStore(5)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", n)
			for j := 0; j < 20; j++ {
				s.Append(id, NewTurn(RoleUser, "m"))
			}
		}(i)
	}
	wg.Wait()

	if got := s.SessionCount(); got != 16 {
		t.Fatalf("session count = %d, want 16", got)
	}
	for i := 0; i < 16; i++ {
		id := fmt.Sprintf("session-%d", i)
		if got := len(s.History(id)); got != 5 {
			t.Fatalf("history(%s) length = %d, want 5", id, got)
		}
	}
}

func TestJanitorEvictsIdleSessions(t *testing.T) {
	s := NewStore(5)
	s.Append("stale", NewTurn(RoleUser, "old"))

	time.Sleep(15 * time.Millisecond)
	s.evictIdle(10 * time.Millisecond)

	if got := s.SessionCount(); got != 0 {
		t.Fatalf("session count = %d, want 0", got)
	}
	if got := s.History("stale"); len(got) != 0 {
		t.Fatalf("history length = %d, want 0", len(got))
	}
}
