// Package backend builds the ledger store selected by DATA_BACKEND, along
// with the collaborators that backend needs.
package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"spesewa/internal/amqp"
	"spesewa/internal/auth"
	"spesewa/internal/config"
	"spesewa/internal/ledger"
	"spesewa/internal/ledger/google"
	"spesewa/internal/ledger/memory"
	"spesewa/internal/ledger/xlsx"
	"spesewa/internal/log"
	"spesewa/internal/services"
	"spesewa/internal/storage"
)

// Result holds the opened backend. Optional fields are nil when the
// backend does not provide them.
type Result struct {
	Type  string
	Store *ledger.SerializedStore
	// Publisher announces new SQLite rows to the sync worker.
	Publisher services.SyncPublisher
	// Auth drives the Google OAuth flow for the sheets backend.
	Auth *auth.Manager
	// Sheets is the spreadsheet store of the sheets backend.
	Sheets      *google.Store
	ReadyChecks map[string]func(context.Context) error

	closers []func() error
}

// Close releases every resource the backend opened.
func (r *Result) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open creates the backend named by cfg.DataBackend.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	res := &Result{Type: cfg.DataBackend, ReadyChecks: map[string]func(context.Context) error{}}
	var store ledger.Store

	switch cfg.DataBackend {
	case config.BackendMemory:
		store = memory.New()

	case config.BackendXLSX:
		store = xlsx.New(cfg.DataDir, logger)

	case config.BackendSheets:
		gs, mgr, err := OpenGoogleLedger(cfg, logger)
		if err != nil {
			return nil, err
		}
		store = gs
		res.Auth = mgr
		res.Sheets = gs
		res.ReadyChecks["google_auth"] = func(context.Context) error {
			if !mgr.Authenticated() {
				return auth.ErrNotAuthenticated
			}
			return nil
		}

	case config.BackendSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		res.closers = append(res.closers, repo.Close)
		res.ReadyChecks["sqlite"] = repo.Ping

		if cfg.AMQPURL != "" {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
			if err != nil {
				// Rows stay pending; the worker's periodic scan syncs them.
				logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync messages", log.FieldError, err)
			} else {
				res.Publisher = client
				res.closers = append(res.closers, client.Close)
				logger.InfoContext(ctx, "Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			}
		}

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}

	res.Store = ledger.Serialized(store)
	logger.InfoContext(ctx, "Initialized backend", log.FieldBackend, cfg.DataBackend)
	return res, nil
}

// OpenGoogleLedger builds the OAuth manager and the spreadsheet store. The
// store works once the account is authorized through the web flow or
// cmd/oauth-init.
func OpenGoogleLedger(cfg *config.Config, logger *log.Logger) (*google.Store, *auth.Manager, error) {
	secret, err := cfg.GoogleClientSecret()
	if err != nil {
		return nil, nil, err
	}
	mgr, err := auth.NewManager(secret, cfg.GoogleRedirectURL, cfg.GoogleOAuthTokenFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Google OAuth: %w", err)
	}

	sessionFile := cfg.GoogleSessionFile
	if sessionFile == "" && cfg.DataDir != "" {
		sessionFile = filepath.Join(cfg.DataDir, "spreadsheet-config.json")
	}
	gs := google.New(mgr, google.Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
		Session:       auth.NewSpreadsheetSession(sessionFile),
	}, logger)
	return gs, mgr, nil
}
