package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"spesewa/internal/core"
)

// trackingStore records the maximum number of concurrent appends per user.
type trackingStore struct {
	mu       sync.Mutex
	active   map[string]int
	maxSeen  map[string]int
	total    int32
	items    []core.Expense
	overall  int32
	maxTotal int32
}

func newTrackingStore() *trackingStore {
	return &trackingStore{active: map[string]int{}, maxSeen: map[string]int{}}
}

func (s *trackingStore) Append(_ context.Context, e core.Expense) (string, error) {
	s.mu.Lock()
	s.active[e.UserID]++
	if s.active[e.UserID] > s.maxSeen[e.UserID] {
		s.maxSeen[e.UserID] = s.active[e.UserID]
	}
	s.mu.Unlock()

	cur := atomic.AddInt32(&s.overall, 1)
	for {
		prev := atomic.LoadInt32(&s.maxTotal)
		if cur <= prev || atomic.CompareAndSwapInt32(&s.maxTotal, prev, cur) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	atomic.AddInt32(&s.overall, -1)

	s.mu.Lock()
	s.active[e.UserID]--
	s.items = append(s.items, e)
	s.mu.Unlock()
	n := atomic.AddInt32(&s.total, 1)
	return fmt.Sprintf("t:%d", n), nil
}

func (s *trackingStore) ReadAll(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestSerializedOrdersAppendsPerUser(t *testing.T) {
	inner := newTrackingStore()
	s := Serialized(inner)

	var wg sync.WaitGroup
	users := []string{"+391", "+392", "+393"}
	for _, u := range users {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(u string) {
				defer wg.Done()
				e := core.Expense{ID: "x", UserID: u, Amount: core.Money{Cents: 100}, Category: "Other", Note: "n", Date: time.Now()}
				if _, err := s.Append(context.Background(), e); err != nil {
					t.Errorf("append: %v", err)
				}
			}(u)
		}
	}
	wg.Wait()

	for _, u := range users {
		if got := inner.maxSeen[u]; got != 1 {
			t.Errorf("user %s: max concurrent appends = %d, want 1", u, got)
		}
		items, _ := s.ReadAll(context.Background(), u)
		if len(items) != 10 {
			t.Errorf("user %s: got %d items, want 10", u, len(items))
		}
	}
	if n := s.users.size(); n != 0 {
		t.Errorf("expected lock table to be empty after use, got %d entries", n)
	}
}

func TestSerializedCanceledContext(t *testing.T) {
	s := Serialized(newTrackingStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Append(ctx, core.Expense{UserID: "u"}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestSerializedListUsersWithoutSupport(t *testing.T) {
	s := Serialized(newTrackingStore())
	users, err := s.ListUsers(context.Background())
	if err != nil || users != nil {
		t.Fatalf("ListUsers() = %v, %v; want nil, nil", users, err)
	}
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
