package google

import (
	"testing"
	"time"

	"spesewa/internal/core"
)

func TestRowRoundTrip(t *testing.T) {
	e := core.Expense{
		ID:       "abc",
		Date:     time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC),
		Amount:   core.Money{Cents: 4599},
		Category: core.CategoryBills,
		Note:     "electricity",
		UserID:   "+3912345",
	}
	got, ok := ExpenseFromRow(RowFromExpense(e))
	if !ok {
		t.Fatal("row did not parse back")
	}
	if !got.Date.Equal(e.Date) || got.Amount != e.Amount || got.Category != e.Category ||
		got.Note != e.Note || got.UserID != e.UserID || got.ID != e.ID {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, e)
	}
}

func TestExpenseFromRow(t *testing.T) {
	tests := []struct {
		name      string
		row       []any
		wantOK    bool
		wantCents int64
	}{
		{"header row", []any{"Date", "Amount", "Category", "Note", "UserID", "ID"}, false, 0},
		{"too short", []any{"2024-01-02", 10.0}, false, 0},
		{"number amount", []any{"2024-01-02T10:00:00Z", 12.5, "Health", "pills", "+39"}, true, 1250},
		{"string amount with comma", []any{"2024-01-02", "7,30", "Other", "x", "+39"}, true, 730},
		{"zero amount", []any{"2024-01-02", 0.0, "Other", "x", "+39"}, false, 0},
		{"bad amount", []any{"2024-01-02", "abc", "Other", "x", "+39"}, false, 0},
		{"missing user", []any{"2024-01-02", 1.0, "Other", "x", ""}, false, 0},
		{"date only", []any{"2024-01-02", 3.0, "Shopping", "socks", "+39", "id-1"}, true, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := ExpenseFromRow(tt.row)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (%+v)", ok, tt.wantOK, e)
			}
			if ok && e.Amount.Cents != tt.wantCents {
				t.Errorf("cents = %d, want %d", e.Amount.Cents, tt.wantCents)
			}
		})
	}
}
