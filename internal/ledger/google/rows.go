package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"spesewa/internal/core"
)

// RowFromExpense lays out one sheet row: Date, Amount, Category, Note, UserID, ID.
func RowFromExpense(e core.Expense) []any {
	return []any{
		e.Date.UTC().Format(time.RFC3339),
		e.Amount.Float(),
		e.Category,
		e.Note,
		e.UserID,
		e.ID,
	}
}

// ExpenseFromRow parses a sheet row. Rows without a parseable date and
// amount, or without a user, are rejected.
func ExpenseFromRow(row []any) (core.Expense, bool) {
	cols := toStrings(row)
	if len(cols) < 5 {
		return core.Expense{}, false
	}
	date, ok := parseDate(cols[0])
	if !ok {
		return core.Expense{}, false
	}
	amount, ok := parseAmountCell(row[1])
	if !ok {
		return core.Expense{}, false
	}
	e := core.Expense{
		Date:     date,
		Amount:   amount,
		Category: cols[2],
		Note:     cols[3],
		UserID:   cols[4],
		ID:       safeGet(cols, 5),
	}
	if e.UserID == "" || e.Category == "" {
		return core.Expense{}, false
	}
	return e, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", core.DateKeyLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmountCell accepts a number or a decimal string with dot or comma.
func parseAmountCell(v any) (core.Money, bool) {
	switch n := v.(type) {
	case float64:
		m := core.MoneyFromFloat(n)
		return m, m.Cents > 0
	case int:
		return core.Money{Cents: int64(n) * 100}, n > 0
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return core.Money{}, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return core.Money{}, false
	}
	m := core.MoneyFromFloat(f)
	return m, m.Cents > 0
}
