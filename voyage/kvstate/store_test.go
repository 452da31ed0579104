package kvstate

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTryAcquire(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *MemoryStore)
		ttl   time.Duration
		want  bool
	}{
		{
			name: "free lock acquires",
			ttl:  time.Second,
			want: true,
		},
		{
			name: "held lock rejects",
			setup: func(s *MemoryStore) {
				s.TryAcquire("k", time.Minute)
			},
			ttl:  time.Second,
			want: false,
		},
		{
			name: "expired holder is stolen",
			setup: func(s *MemoryStore) {
				s.TryAcquire("k", -time.Second)
			},
			ttl:  time.Second,
			want: true,
		},
		{
			name: "released lock acquires",
			setup: func(s *MemoryStore) {
				s.TryAcquire("k", time.Minute)
				s.Release("k")
			},
			ttl:  time.Second,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore()
			if tt.setup != nil {
				tt.setup(s)
			}
			if got := s.TryAcquire("k", tt.ttl); got != tt.want {
				t.Errorf("TryAcquire() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTryAcquireExpiredStealIsExclusive(t *testing.T) {
	s := NewMemoryStore()
	s.TryAcquire("k", -time.Second)

	const callers = 64
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryAcquire("k", time.Minute) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one caller to steal the expired lock, got %d", got)
	}
}

func TestIncrWindow(t *testing.T) {
	s := NewMemoryStore()

	count, resetAt := s.IncrWindow("chat:1", time.Minute)
	if count != 1 {
		t.Fatalf("first increment = %d, want 1", count)
	}
	if !resetAt.After(time.Now()) {
		t.Fatalf("reset time %v should be in the future", resetAt)
	}

	for i := 0; i < 4; i++ {
		count, _ = s.IncrWindow("chat:1", time.Minute)
	}
	if count != 5 {
		t.Fatalf("count after five increments = %d, want 5", count)
	}

	if count, _ = s.IncrWindow("chat:2", time.Minute); count != 1 {
		t.Fatalf("separate key should count independently, got %d", count)
	}
}

func TestCooldown(t *testing.T) {
	s := NewMemoryStore()

	if got := s.CooldownRemaining("w"); got != 0 {
		t.Fatalf("expected no cooldown, got %v", got)
	}

	s.SetCooldown("w", time.Minute)
	if got := s.CooldownRemaining("w"); got <= 0 || got > time.Minute {
		t.Fatalf("expected remaining in (0, 1m], got %v", got)
	}

	s.SetCooldown("w", -time.Second)
	if got := s.CooldownRemaining("w"); got != 0 {
		t.Fatalf("expected expired cooldown to read 0, got %v", got)
	}
}

func TestGetIfFresh(t *testing.T) {
	s := NewMemoryStore()

	if _, ok := s.GetIfFresh("tx", time.Minute); ok {
		t.Fatal("expected miss on empty store")
	}

	s.Put("tx", "payload")
	v, ok := s.GetIfFresh("tx", time.Minute)
	if !ok || v.(string) != "payload" {
		t.Fatalf("expected fresh payload, got %v ok=%v", v, ok)
	}

	if _, ok := s.GetIfFresh("tx", -time.Second); ok {
		t.Fatal("expected stale read to miss")
	}
}
