// Package xlsx keeps one local Excel workbook per user.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"spesewa/internal/core"
	"spesewa/internal/ledger"
	"spesewa/internal/log"
)

const (
	SheetName  = "Expenses"
	fileSuffix = "_expenses.xlsx"
)

// The UserID column tells apart users whose ids sanitize to the same file.
var header = []any{"Date", "Amount", "Category", "Note", "ID", "UserID"}

const userCol = 5

type Store struct {
	dir    string
	logger *log.Logger
	// keyed by file name, not user id
	files ledger.KeyedMutex
}

var (
	_ ledger.Store      = (*Store)(nil)
	_ ledger.UserLister = (*Store)(nil)
)

// New stores workbooks under dir/expenses.
func New(dataDir string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Nop()
	}
	return &Store{
		dir:    filepath.Join(dataDir, "expenses"),
		logger: logger.WithComponent(log.ComponentXLSX),
	}
}

// Path returns the workbook path for a user. Characters outside
// [A-Za-z0-9+_-] are replaced so a user id can never escape the directory.
func (s *Store) Path(userID string) string {
	return filepath.Join(s.dir, fileName(userID))
}

func fileName(userID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '+', r == '-', r == '_':
			return r
		}
		return '_'
	}, userID)
	return safe + fileSuffix
}

func (s *Store) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	unlock := s.files.Lock(fileName(e.UserID))
	defer unlock()

	path := s.Path(e.UserID)
	f, err := s.openOrCreate(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	next := len(rows) + 1
	cell, err := excelize.CoordinatesToCellName(1, next)
	if err != nil {
		return "", err
	}
	row := []any{e.Date.UTC().Format(time.RFC3339), e.Amount.Float(), e.Category, e.Note, e.ID, e.UserID}
	if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
		return "", fmt.Errorf("write row: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return fmt.Sprintf("%s#%s!A%d", filepath.Base(path), SheetName, next), nil
}

func (s *Store) openOrCreate(path string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	f, err = newWorkbook()
	if err != nil {
		return nil, err
	}
	s.logger.Info("Created workbook", "path", path)
	return f, nil
}

func newWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", "F1", style); err != nil {
		f.Close()
		return nil, err
	}
	for col, width := range map[string]float64{"A": 22, "B": 12, "C": 20, "D": 40, "E": 38, "F": 18} {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// ReadAll returns the user's expenses; a user without a workbook has none.
// Rows written without a UserID belong to the workbook's user.
func (s *Store) ReadAll(ctx context.Context, userID string) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := s.files.Lock(fileName(userID))
	defer unlock()

	path := s.Path(userID)
	f, err := excelize.OpenFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []core.Expense{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out := make([]core.Expense, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		e, ok := parseRow(row)
		if !ok {
			s.logger.Debug("Skipping malformed row", "path", path, "row", i+1)
			continue
		}
		if e.UserID == "" {
			e.UserID = userID
		} else if e.UserID != userID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ListUsers collects the UserID column of every workbook. Workbooks
// without that column contribute their file name.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	seen := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		users, err := s.usersIn(name)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable workbook", "file", name, log.FieldError, err)
			continue
		}
		for _, u := range users {
			seen[u] = true
		}
	}
	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) usersIn(name string) ([]string, error) {
	unlock := s.files.Lock(name)
	defer unlock()

	f, err := excelize.OpenFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, err
	}

	var users []string
	legacy := false
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) > userCol && strings.TrimSpace(row[userCol]) != "" {
			users = append(users, row[userCol])
		} else {
			legacy = true
		}
	}
	if legacy || len(users) == 0 {
		users = append(users, strings.TrimSuffix(name, fileSuffix))
	}
	return users, nil
}

func parseRow(row []string) (core.Expense, bool) {
	if len(row) < 3 {
		return core.Expense{}, false
	}
	date, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
	if err != nil {
		return core.Expense{}, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		return core.Expense{}, false
	}
	amount := core.MoneyFromFloat(f)
	if amount.Validate() != nil {
		return core.Expense{}, false
	}
	e := core.Expense{Date: date, Amount: amount, Category: strings.TrimSpace(row[2])}
	if len(row) > 3 {
		e.Note = row[3]
	}
	if len(row) > 4 {
		e.ID = row[4]
	}
	if len(row) > userCol {
		e.UserID = strings.TrimSpace(row[userCol])
	}
	return e, true
}
