// Package google stores expenses in a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spesewa/internal/auth"
	"spesewa/internal/core"
	"spesewa/internal/ledger"
	"spesewa/internal/log"
)

const (
	DefaultTitle     = "Expense Tracker Data"
	DefaultSheetName = "Expenses"
)

// Header is the first row of a spreadsheet created by Store.
var Header = []any{"Date", "Amount", "Category", "Note", "UserID", "ID"}

// HTTPClientProvider yields an authorized client. *auth.Manager implements it.
type HTTPClientProvider interface {
	HTTPClient(ctx context.Context) (*http.Client, error)
}

type Options struct {
	// SpreadsheetID of an existing spreadsheet. When empty the id saved in
	// Session is used, and when that is empty too a new spreadsheet is created.
	SpreadsheetID string
	SheetName     string
	Title         string
	Session       *auth.SpreadsheetSession
	// Endpoint overrides the API base URL.
	Endpoint      string
	RetryAttempts uint
	RetryDelay    time.Duration
}

type Store struct {
	clients HTTPClientProvider
	opts    Options
	logger  *log.Logger

	mu            sync.Mutex
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var (
	_ ledger.Store      = (*Store)(nil)
	_ ledger.UserLister = (*Store)(nil)
)

// New does not contact Google. The service is built on first use, so the
// server can start before the account has been authorized.
func New(clients HTTPClientProvider, opts Options, logger *log.Logger) *Store {
	if opts.SheetName == "" {
		opts.SheetName = DefaultSheetName
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Store{
		clients:       clients,
		opts:          opts,
		logger:        logger.WithComponent(log.ComponentSheets),
		spreadsheetID: opts.SpreadsheetID,
	}
}

// SpreadsheetID returns the id in use, or "" before the first call.
func (s *Store) SpreadsheetID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spreadsheetID
}

// SetSpreadsheetID switches writes to an existing spreadsheet and remembers
// the choice in the session file.
func (s *Store) SetSpreadsheetID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("empty spreadsheet id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.Session != nil {
		if err := s.opts.Session.Save(id); err != nil {
			return fmt.Errorf("save spreadsheet session: %w", err)
		}
	}
	s.spreadsheetID = id
	s.logger.Info("Connected spreadsheet", "spreadsheet_id", id)
	return nil
}

func (s *Store) service(ctx context.Context) (*gsheet.Service, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.svc == nil {
		httpClient, err := s.clients.HTTPClient(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ledger.ErrUnavailable, err)
		}
		opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
		if s.opts.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(s.opts.Endpoint))
		}
		svc, err := gsheet.NewService(context.Background(), opts...)
		if err != nil {
			return nil, "", fmt.Errorf("create sheets service: %w", err)
		}
		s.svc = svc
	}

	if s.spreadsheetID == "" && s.opts.Session != nil {
		id, err := s.opts.Session.Load()
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to read spreadsheet session", log.FieldError, err)
		}
		s.spreadsheetID = id
	}
	if s.spreadsheetID == "" {
		id, err := s.createSpreadsheet(ctx, s.svc)
		if err != nil {
			return nil, "", err
		}
		s.spreadsheetID = id
	}
	return s.svc, s.spreadsheetID, nil
}

func (s *Store) createSpreadsheet(ctx context.Context, svc *gsheet.Service) (string, error) {
	created, err := svc.Spreadsheets.Create(&gsheet.Spreadsheet{
		Properties: &gsheet.SpreadsheetProperties{Title: s.opts.Title},
		Sheets: []*gsheet.Sheet{
			{Properties: &gsheet.SheetProperties{Title: s.opts.SheetName}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating spreadsheet: %w", err)
	}

	headerRange := fmt.Sprintf("%s!A1:F1", s.opts.SheetName)
	_, err = svc.Spreadsheets.Values.Update(created.SpreadsheetId, headerRange, &gsheet.ValueRange{Values: [][]any{Header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("writing headers: %w", err)
	}

	if s.opts.Session != nil {
		if err := s.opts.Session.Save(created.SpreadsheetId); err != nil {
			s.logger.WarnContext(ctx, "Failed to persist spreadsheet id", log.FieldError, err)
		}
	}
	s.logger.InfoContext(ctx, "Created spreadsheet", "title", s.opts.Title, "spreadsheet_id", created.SpreadsheetId)
	return created.SpreadsheetId, nil
}

func (s *Store) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	svc, id, err := s.service(ctx)
	if err != nil {
		return "", err
	}

	writeRange := fmt.Sprintf("%s!A:F", s.opts.SheetName)
	vr := &gsheet.ValueRange{Values: [][]any{RowFromExpense(e)}}

	var resp *gsheet.AppendValuesResponse
	err = retry.Do(
		func() error {
			var callErr error
			// RAW keeps notes such as "=1+1" from being evaluated as formulas.
			resp, callErr = svc.Spreadsheets.Values.Append(id, writeRange, vr).
				ValueInputOption("RAW").
				InsertDataOption("INSERT_ROWS").
				Context(ctx).
				Do()
			return callErr
		},
		retry.RetryIf(func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				s.logger.WarnContext(ctx, "Rate limited, will retry", log.FieldError, err)
				return true
			}
			return false
		}),
		retry.Attempts(s.opts.RetryAttempts),
		retry.Delay(s.opts.RetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", s.opts.SheetName, err)
	}

	ref := writeRange
	if resp != nil && resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

func (s *Store) readRows(ctx context.Context) ([][]any, error) {
	svc, id, err := s.service(ctx)
	if err != nil {
		return nil, err
	}
	rng := fmt.Sprintf("%s!A:F", s.opts.SheetName)
	resp, err := svc.Spreadsheets.Values.Get(id, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// ReadAll lists the user's expenses. Header and malformed rows are skipped.
func (s *Store) ReadAll(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0)
	for _, row := range rows {
		e, ok := ExpenseFromRow(row)
		if !ok || e.UserID != userID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ListUsers returns the distinct users found in the sheet, first-seen order.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, row := range rows {
		e, ok := ExpenseFromRow(row)
		if !ok {
			continue
		}
		if _, dup := seen[e.UserID]; dup {
			continue
		}
		seen[e.UserID] = struct{}{}
		out = append(out, e.UserID)
	}
	return out, nil
}
