package core

import (
	"testing"
	"time"
)

func day(d, h int) time.Time {
	return time.Date(2025, 7, d, h, 0, 0, 0, time.UTC)
}

func TestSummarize(t *testing.T) {
	items := []Expense{
		{Date: day(1, 9), Amount: Money{Cents: 1000}, Category: CategoryFood},
		{Date: day(1, 20), Amount: Money{Cents: 550}, Category: CategoryTransport},
		{Date: day(2, 8), Amount: Money{Cents: 250}, Category: CategoryFood},
		{Date: day(3, 8), Amount: Money{Cents: 100}, Category: "Gifts"},
	}
	s := Summarize(items)
	if s.Total.Cents != 1900 || s.Count != 4 {
		t.Fatalf("unexpected total: %+v", s)
	}
	if s.ByCategory[CategoryFood].Cents != 1250 {
		t.Fatalf("food total: %d", s.ByCategory[CategoryFood].Cents)
	}
	if s.ByDate["2025-07-01"].Cents != 1550 {
		t.Fatalf("day total: %d", s.ByDate["2025-07-01"].Cents)
	}

	rows := s.CategoryTotals()
	if len(rows) != 3 || rows[0].Name != CategoryFood || rows[1].Name != CategoryTransport || rows[2].Name != "Gifts" {
		t.Fatalf("unexpected order: %+v", rows)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total.Cents != 0 || len(s.ByCategory) != 0 || len(s.ByDate) != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
}

func TestFilterByDateRange(t *testing.T) {
	items := []Expense{
		{ID: "a", Date: day(1, 9)},
		{ID: "b", Date: day(2, 23)},
		{ID: "c", Date: day(3, 0)},
	}
	got := FilterByDateRange(items, day(2, 0), day(2, 0))
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("whole end day should be included: %+v", got)
	}
	got = FilterByDateRange(items, time.Time{}, day(2, 12))
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("open start: %+v", got)
	}
	got = FilterByDateRange(items, day(2, 0), time.Time{})
	if len(got) != 2 {
		t.Fatalf("open end: %+v", got)
	}
}
