// Package ledger defines the persistence ports for recorded expenses.
package ledger

import (
	"context"
	"errors"

	"spesewa/internal/core"
)

// ErrUnavailable is returned by backends that cannot reach their storage
// yet, for example a spreadsheet store without OAuth credentials.
var ErrUnavailable = errors.New("ledger unavailable")

// Ports for outbound adapters.
type (
	ExpenseWriter interface {
		// Append persists e and returns a backend-specific reference to it
		// (row range, file path, database id).
		Append(ctx context.Context, e core.Expense) (ref string, err error)
	}

	ExpenseReader interface {
		// ReadAll returns every expense recorded for userID in insertion order.
		ReadAll(ctx context.Context, userID string) ([]core.Expense, error)
	}

	Store interface {
		ExpenseWriter
		ExpenseReader
	}

	// UserLister is implemented by stores that can enumerate the users they
	// hold expenses for.
	UserLister interface {
		ListUsers(ctx context.Context) ([]string, error)
	}
)
