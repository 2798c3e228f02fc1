// Package services holds the application use cases: recording expenses
// from chat messages or the dashboard, and reading them back.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spesewa/internal/cache"
	"spesewa/internal/core"
	"spesewa/internal/ledger"
	"spesewa/internal/log"
	"spesewa/internal/messaging"
)

// Outcome tells the webhook how an inbound message was handled.
type Outcome int

const (
	OutcomeAcknowledged Outcome = iota // delivery status, nothing parsed
	OutcomeUnparsed                    // help text sent
	OutcomeRecorded                    // expense stored, confirmation sent
	OutcomeFailed                      // storage failed, failure text sent
	OutcomeRejected                    // parsed but invalid, reason sent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAcknowledged:
		return "acknowledged"
	case OutcomeUnparsed:
		return "unparsed"
	case OutcomeRecorded:
		return "recorded"
	case OutcomeFailed:
		return "failed"
	case OutcomeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ErrInvalidInput wraps validation failures of dashboard input.
var ErrInvalidInput = errors.New("invalid input")

// SyncPublisher announces stored expenses to the sync worker.
type SyncPublisher interface {
	PublishExpenseSync(ctx context.Context, id, userID string) error
}

const (
	readCacheSize = 256
	readCacheTTL  = 2 * time.Minute
	allKey        = "all"
)

// ExpenseService orchestrates parsing, storage and user notifications.
type ExpenseService struct {
	store     ledger.Store
	sender    messaging.Sender
	publisher SyncPublisher
	reads     *cache.UserLRU[[]core.Expense]
	now       func() time.Time
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewExpenseService wires the service. publisher may be nil when no sync
// worker is deployed.
func NewExpenseService(store ledger.Store, sender messaging.Sender, publisher SyncPublisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentExpense)
	return &ExpenseService{
		store:     store,
		sender:    sender,
		publisher: publisher,
		reads:     cache.NewUserLRU[[]core.Expense](readCacheSize, readCacheTTL),
		now:       time.Now,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

// ReadCache exposes the read cache so callers can schedule its cleanup.
func (s *ExpenseService) ReadCache() cache.Cleaner {
	return s.reads
}

// HandleInbound processes one chat webhook callback.
func (s *ExpenseService) HandleInbound(ctx context.Context, in messaging.Inbound) (Outcome, error) {
	if in.IsStatusEvent() {
		s.logger.DebugContext(ctx, "Delivery status received", log.FieldUserID, in.From, "status", in.Status)
		return OutcomeAcknowledged, nil
	}

	parsed, ok := core.ParseExpenseMessage(in.Body)
	if !ok {
		s.logger.InfoContext(ctx, "Unparseable expense message", log.FieldOperation, log.OpParse, log.FieldUserID, in.From)
		s.sender.Send(ctx, in.From, messaging.HelpText)
		return OutcomeUnparsed, nil
	}

	e := core.NewExpense(parsed, in.From, s.now())
	if err := e.Validate(); err != nil {
		s.logger.InfoContext(ctx, "Rejected expense message", log.FieldUserID, in.From, log.FieldError, err)
		s.sender.Send(ctx, in.From, messaging.RejectedText(err))
		return OutcomeRejected, nil
	}
	if _, err := s.record(ctx, e); err != nil {
		s.sender.Send(ctx, in.From, messaging.FailureText)
		return OutcomeFailed, err
	}

	if !parsed.Known {
		s.logger.InfoContext(ctx, "Expense with free-text category", log.FieldCategory, parsed.Category, log.FieldKnown, false)
	}
	s.sender.Send(ctx, in.From, messaging.ConfirmationText(parsed))
	return OutcomeRecorded, nil
}

// CreateExpense records an expense entered on the dashboard. A zero date
// means now; known categories are stored in canonical spelling.
func (s *ExpenseService) CreateExpense(ctx context.Context, userID, amount, category, note string, date time.Time) (core.Expense, error) {
	m, err := core.ParseAmount(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	cat, _ := core.NormalizeCategory(category)
	if date.IsZero() {
		date = s.now()
	}

	e := core.NewExpense(core.ParsedExpenseInput{Amount: m, Category: cat, Note: note}, userID, date)
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if _, err := s.record(ctx, e); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *ExpenseService) record(ctx context.Context, e core.Expense) (string, error) {
	ref, err := s.store.Append(ctx, e)
	if err != nil {
		s.events.LogError(ctx, "Failed to save expense", err, log.ComponentExpense, log.OpAppend,
			log.NewFields().WithExpense(e.ID, e.UserID, e.Amount.Cents, e.Category))
		return "", fmt.Errorf("save expense: %w", err)
	}
	s.reads.InvalidateUser(e.UserID)
	s.events.LogExpenseRecorded(ctx, e.ID, e.UserID, e.Amount.Cents, e.Category, ref)

	if s.publisher != nil {
		// The expense is already stored; the worker's pending scan picks it
		// up if this message is lost.
		if err := s.publisher.PublishExpenseSync(ctx, e.ID, e.UserID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish sync message", log.FieldExpenseID, e.ID, log.FieldError, err)
		}
	}
	return ref, nil
}

// ListExpenses returns userID's expenses dated within [start, end]; zero
// bounds are open.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID string, start, end time.Time) ([]core.Expense, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, core.ErrEmptyUser)
	}

	all, ok := s.reads.Get(userID, allKey)
	if !ok {
		var err error
		all, err = s.store.ReadAll(ctx, userID)
		if err != nil {
			s.events.LogError(ctx, "Failed to read expenses", err, log.ComponentExpense, log.OpRead,
				log.LogFields{log.FieldUserID: userID})
			return nil, fmt.Errorf("read expenses: %w", err)
		}
		s.reads.Set(userID, allKey, all)
	}
	return core.FilterByDateRange(all, start, end), nil
}

// Summary aggregates the expenses ListExpenses would return.
func (s *ExpenseService) Summary(ctx context.Context, userID string, start, end time.Time) (core.ExpenseSummary, error) {
	items, err := s.ListExpenses(ctx, userID, start, end)
	if err != nil {
		return core.ExpenseSummary{}, err
	}
	return core.Summarize(items), nil
}
