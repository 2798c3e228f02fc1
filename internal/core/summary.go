package core

import (
	"sort"
	"time"
)

// DateKeyLayout is the day bucket format used by ExpenseSummary.ByDate.
const DateKeyLayout = "2006-01-02"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// ExpenseSummary aggregates a set of expenses for the dashboard.
type ExpenseSummary struct {
	Total      Money
	Count      int
	ByCategory map[string]Money
	ByDate     map[string]Money
}

// Summarize totals expenses overall, per category and per calendar day.
func Summarize(items []Expense) ExpenseSummary {
	s := ExpenseSummary{
		ByCategory: make(map[string]Money),
		ByDate:     make(map[string]Money),
	}
	for _, e := range items {
		s.Total.Cents += e.Amount.Cents
		s.Count++

		c := s.ByCategory[e.Category]
		c.Cents += e.Amount.Cents
		s.ByCategory[e.Category] = c

		day := e.Date.Format(DateKeyLayout)
		d := s.ByDate[day]
		d.Cents += e.Amount.Cents
		s.ByDate[day] = d
	}
	return s
}

// CategoryTotals lists the per-category totals, known categories first in
// their fixed order, then free-text ones alphabetically.
func (s ExpenseSummary) CategoryTotals() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(s.ByCategory))
	for name, amt := range s.ByCategory {
		out = append(out, CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := categoryOrder(out[i].Name), categoryOrder(out[j].Name)
		if oi != oj {
			return oi < oj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// FilterByDateRange keeps expenses dated within [start, end]. A zero bound
// is open. An end bound at midnight covers that whole day.
func FilterByDateRange(items []Expense, start, end time.Time) []Expense {
	if !end.IsZero() && end.Equal(truncateDay(end)) {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	out := make([]Expense, 0, len(items))
	for _, e := range items {
		if !start.IsZero() && e.Date.Before(start) {
			continue
		}
		if !end.IsZero() && e.Date.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
