package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"spesewa/internal/core"
	"spesewa/internal/ledger"
	"spesewa/internal/log"
)

// ErrNotFound is returned when an expense id is unknown.
var ErrNotFound = errors.New("expense not found")

// Sync states of a stored expense.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

const expensesTable = "expenses"

var expenseColumns = []string{"id", "user_id", "occurred_at", "amount_cents", "category", "note"}

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

var (
	_ ledger.Store      = (*SQLiteRepository)(nil)
	_ ledger.UserLister = (*SQLiteRepository)(nil)
)

// PendingSyncExpense is the minimal data needed to enqueue a sync.
type PendingSyncExpense struct {
	ID        string
	UserID    string
	Attempts  int
	CreatedAt time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time avoids SQLITE_BUSY under concurrent webhooks.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Info("SQLite ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append implements ledger.ExpenseWriter. The expense is stored as pending
// sync; the returned reference is its id.
func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if e.ID == "" {
		return "", errors.New("expense id is required")
	}

	query, args, err := squirrel.Insert(expensesTable).
		Columns(append(expenseColumns, "created_at", "sync_status")...).
		Values(e.ID, e.UserID, e.Date.UnixNano(), e.Amount.Cents, e.Category, e.Note, r.now().UnixNano(), SyncPending).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, e.ID,
		log.FieldUserID, e.UserID,
		log.FieldAmountCents, e.Amount.Cents)
	return e.ID, nil
}

// ReadAll implements ledger.ExpenseReader.
func (r *SQLiteRepository) ReadAll(ctx context.Context, userID string) ([]core.Expense, error) {
	query, args, err := squirrel.Select(expenseColumns...).
		From(expensesTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("occurred_at ASC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListUsers implements ledger.UserLister.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	query, args, err := squirrel.Select("DISTINCT user_id").
		From(expensesTable).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetExpense retrieves a single expense by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	query, args, err := squirrel.Select(expenseColumns...).
		From(expensesTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return core.Expense{}, err
	}
	e, err := scanExpense(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

// SyncStatus returns the sync state of an expense.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, id string) (string, error) {
	query, args, err := squirrel.Select("sync_status").
		From(expensesTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return "", err
	}
	var status string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return "", fmt.Errorf("get sync status: %w", err)
	}
	return status, nil
}

// GetPendingSyncExpenses returns expenses not yet copied to the spreadsheet,
// oldest first. Expenses in error state are retried until maxAttempts.
func (r *SQLiteRepository) GetPendingSyncExpenses(ctx context.Context, limit, maxAttempts int) ([]PendingSyncExpense, error) {
	query, args, err := squirrel.Select("id", "user_id", "sync_attempts", "created_at").
		From(expensesTable).
		Where(squirrel.Or{
			squirrel.Eq{"sync_status": SyncPending},
			squirrel.And{
				squirrel.Eq{"sync_status": SyncError},
				squirrel.Lt{"sync_attempts": maxAttempts},
			},
		}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	defer rows.Close()

	out := make([]PendingSyncExpense, 0)
	for rows.Next() {
		var p PendingSyncExpense
		var created int64
		if err := rows.Scan(&p.ID, &p.UserID, &p.Attempts, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(0, created)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks an expense as successfully synced
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	query, args, err := squirrel.Update(expensesTable).
		Set("sync_status", SyncSynced).
		Set("synced_at", r.now().UnixNano()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	r.logger.InfoContext(ctx, "Expense marked as synced", log.FieldExpenseID, id)
	return nil
}

// MarkSyncError records a failed sync attempt.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	query, args, err := squirrel.Update(expensesTable).
		Set("sync_status", SyncError).
		Set("sync_attempts", squirrel.Expr("sync_attempts + 1")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	r.logger.WarnContext(ctx, "Expense marked with sync error", log.FieldExpenseID, id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e        core.Expense
		occurred int64
		cents    int64
	)
	if err := s.Scan(&e.ID, &e.UserID, &occurred, &cents, &e.Category, &e.Note); err != nil {
		return core.Expense{}, err
	}
	e.Date = time.Unix(0, occurred).UTC()
	e.Amount = core.Money{Cents: cents}
	return e, nil
}
