package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	Money struct {
		Cents int64
	}

	// ParsedExpenseInput is the transient result of parsing one chat message.
	ParsedExpenseInput struct {
		Amount   Money
		Category string
		Note     string
		// Known reports whether Category is one of the fixed categories.
		Known bool
	}

	Expense struct {
		ID       string
		Date     time.Time
		Amount   Money
		Category string
		Note     string
		UserID   string // sender identifier, e.g. a phone number
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("date cannot be zero")
	ErrEmptyUser     = errors.New("empty user id")
	ErrEmptyCategory = errors.New("empty category")
	ErrNoteTooLong   = errors.New("note too long (max 500 characters)")
)

const maxNoteLen = 500

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewExpense turns a parsed message into a persistable expense recorded at now.
func NewExpense(in ParsedExpenseInput, userID string, now time.Time) Expense {
	return Expense{
		ID:       uuid.NewString(),
		Date:     now,
		Amount:   in.Amount,
		Category: strings.TrimSpace(in.Category),
		Note:     strings.TrimSpace(in.Note),
		UserID:   strings.TrimSpace(userID),
	}
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Note) > maxNoteLen {
		return ErrNoteTooLong
	}
	return nil
}
