// Package worker copies expenses stored in SQLite to the spreadsheet ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spesewa/internal/amqp"
	"spesewa/internal/core"
	"spesewa/internal/ledger"
	"spesewa/internal/log"
	"spesewa/internal/storage"
)

// Source is the part of the SQLite repository the worker needs.
type Source interface {
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	SyncStatus(ctx context.Context, id string) (string, error)
	GetPendingSyncExpenses(ctx context.Context, limit, maxAttempts int) ([]storage.PendingSyncExpense, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

var _ Source = (*storage.SQLiteRepository)(nil)

// SyncWorker handles synchronization of expenses from SQLite to Google Sheets
type SyncWorker struct {
	source      Source
	target      ledger.ExpenseWriter
	batchSize   int
	maxAttempts int
	logger      *log.Logger
	// The AMQP consumer and the pending scan may pick the same id at once.
	inflight ledger.KeyedMutex
}

func NewSyncWorker(source Source, target ledger.ExpenseWriter, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &SyncWorker{
		source:      source,
		target:      target,
		batchSize:   batchSize,
		maxAttempts: 5,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSyncMessage processes a single expense sync message from AMQP.
// Already synced expenses are skipped so redelivered messages do not create
// duplicate rows.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message", log.FieldExpenseID, msg.ID, log.FieldUserID, msg.UserID)

	_, err := w.syncOne(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// Nothing to retry; the message is dropped.
		w.logger.WarnContext(ctx, "Sync message for unknown expense", log.FieldExpenseID, msg.ID)
		return nil
	}
	return err
}

// ProcessPendingExpenses syncs expenses whose messages were lost or failed.
// It returns how many were synced.
func (w *SyncWorker) ProcessPendingExpenses(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger pending pass at worker startup.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", log.FieldOperation, log.OpStartup, "synced", synced)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.source.GetPendingSyncExpenses(ctx, limit, w.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	synced := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		appended, err := w.syncOne(ctx, p.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync expense", log.FieldExpenseID, p.ID, "attempt", p.Attempts+1, log.FieldError, err)
			continue
		}
		if appended {
			synced++
		}
	}
	return synced, nil
}

// Run polls for pending expenses every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.ProcessPendingExpenses(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Pending sync pass failed", log.FieldError, err)
			}
		}
	}
}

// syncOne appends id to the target unless it is already synced. It reports
// whether a row was written.
func (w *SyncWorker) syncOne(ctx context.Context, id string) (bool, error) {
	unlock := w.inflight.Lock(id)
	defer unlock()

	status, err := w.source.SyncStatus(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get sync status: %w", err)
	}
	if status == storage.SyncSynced {
		w.logger.DebugContext(ctx, "Expense already synced", log.FieldExpenseID, id)
		return false, nil
	}

	e, err := w.source.GetExpense(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get expense from storage: %w", err)
	}

	ref, err := w.target.Append(ctx, e)
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, id); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", log.FieldExpenseID, id, log.FieldError, markErr)
		}
		return false, fmt.Errorf("append to sheets: %w", err)
	}

	// The row exists now; a failed status update only risks one duplicate.
	if err := w.source.MarkSynced(ctx, id); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark as synced", log.FieldExpenseID, id, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Successfully synced expense",
		log.FieldOperation, log.OpSync,
		log.FieldExpenseID, id,
		log.FieldLedgerRef, ref,
		log.FieldAmountCents, e.Amount.Cents)
	return true, nil
}
