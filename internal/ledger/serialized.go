package ledger

import (
	"context"

	"spesewa/internal/core"
)

// SerializedStore orders appends per user. Two messages from the same sender
// are written one after the other; different senders do not wait on each
// other.
type SerializedStore struct {
	inner Store
	users KeyedMutex
}

// Serialized wraps s with per-user write serialization.
func Serialized(s Store) *SerializedStore {
	return &SerializedStore{inner: s}
}

func (s *SerializedStore) Append(ctx context.Context, e core.Expense) (string, error) {
	unlock := s.users.Lock(e.UserID)
	defer unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.inner.Append(ctx, e)
}

func (s *SerializedStore) ReadAll(ctx context.Context, userID string) ([]core.Expense, error) {
	return s.inner.ReadAll(ctx, userID)
}

// ListUsers delegates when the wrapped store supports it.
func (s *SerializedStore) ListUsers(ctx context.Context) ([]string, error) {
	if ul, ok := s.inner.(UserLister); ok {
		return ul.ListUsers(ctx)
	}
	return nil, nil
}
