// Package memory is an in-process ledger used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"spesewa/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

func New() *Store {
	return &Store{}
}

// NewWithExpenses seeds the store, skipping invalid entries.
func NewWithExpenses(seed []core.Expense) *Store {
	s := New()
	for _, e := range seed {
		if e.Validate() == nil {
			s.items = append(s.items, e)
		}
	}
	return s
}

// Append stores the expense and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// ReadAll returns a copy of the user's expenses.
func (s *Store) ReadAll(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0)
	for _, e := range s.items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListUsers returns the distinct user ids, sorted.
func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, e := range s.items {
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		out = append(out, e.UserID)
	}
	sort.Strings(out)
	return out, nil
}

// Len reports how many expenses are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
