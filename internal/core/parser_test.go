package core

import (
	"strings"
	"sync"
	"testing"
)

func TestParseExpenseMessage(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		ok       bool
		cents    int64
		category string
		note     string
		known    bool
	}{
		{"multi word category with ampersand", "Expense: 25.50 Food & Dining Lunch at cafe", true, 2550, "Food & Dining", "Lunch at cafe", true},
		{"integer amount", "Expense: 10 Transportation Bus fare", true, 1000, "Transportation", "Bus fare", true},
		{"three decimals", "Expense: 5.999 Shopping shoes", false, 0, "", "", false},
		{"not an expense", "not an expense", false, 0, "", "", false},
		{"missing note", "Expense: 12.00 Health", false, 0, "", "", false},
		{"missing note trailing spaces", "Expense: 12.00 Health   ", false, 0, "", "", false},
		{"bills and utilities", "Expense: 80 Bills & Utilities electricity May", true, 8000, "Bills & Utilities", "electricity May", true},
		{"case and spacing normalized", "Expense: 3.5 food  &  DINING   espresso", true, 350, "Food & Dining", "espresso", true},
		{"ampersand without spaces", "Expense: 3 Food&Dining bagel", true, 300, "Food & Dining", "bagel", true},
		{"free text category", "Expense: 7 Gifts for mom", true, 700, "Gifts", "for mom", false},
		{"leading text is accepted", "hey there Expense: 12 Health vitamins", true, 1200, "Health", "vitamins", true},
		{"no space after keyword", "Expense:12 Health pills", true, 1200, "Health", "pills", true},
		{"wide internal whitespace", "Expense:    4.20    Other    parking   meter", true, 420, "Other", "parking   meter", true},
		{"note keeps punctuation and digits", "Expense: 15 Entertainment Movie #2 (IMAX)!", true, 1500, "Entertainment", "Movie #2 (IMAX)!", true},
		{"keyword is case sensitive", "expense: 12 Health vitamins", false, 0, "", "", false},
		{"negative amount", "Expense: -5 Shopping socks", false, 0, "", "", false},
		{"thousands separator", "Expense: 1,000 Shopping tv", false, 0, "", "", false},
		{"scientific notation", "Expense: 1e3 Shopping tv", false, 0, "", "", false},
		{"currency symbol", "Expense: $5 Shopping socks", false, 0, "", "", false},
		{"zero amount", "Expense: 0 Shopping socks", false, 0, "", "", false},
		{"category must start with a letter word", "Expense: 5 Food1 snack", false, 0, "", "", false},
		{"empty", "", false, 0, "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseExpenseMessage(tc.in)
			if ok != tc.ok {
				t.Fatalf("ParseExpenseMessage(%q) ok=%v, want %v (got %+v)", tc.in, ok, tc.ok, got)
			}
			if !ok {
				if got != (ParsedExpenseInput{}) {
					t.Fatalf("expected zero value on no match, got %+v", got)
				}
				return
			}
			if got.Amount.Cents != tc.cents || got.Category != tc.category || got.Note != tc.note || got.Known != tc.known {
				t.Fatalf("ParseExpenseMessage(%q) = %+v, want cents=%d category=%q note=%q known=%v",
					tc.in, got, tc.cents, tc.category, tc.note, tc.known)
			}
		})
	}
}

func TestParseExpenseMessage_SurroundingWhitespace(t *testing.T) {
	base := "Expense: 25.50 Food & Dining Lunch at cafe"
	want, ok := ParseExpenseMessage(base)
	if !ok {
		t.Fatalf("base message did not parse")
	}
	for _, in := range []string{"  " + base, base + "  ", "\t" + base + "\n", "\n\n " + base + " \t "} {
		got, ok := ParseExpenseMessage(in)
		if !ok || got != want {
			t.Fatalf("ParseExpenseMessage(%q) = %+v ok=%v, want %+v", in, got, ok, want)
		}
	}
}

func TestParseExpenseMessage_RoundTrip(t *testing.T) {
	inputs := []string{
		"Expense: 25.50 Food & Dining Lunch at cafe",
		"Expense: 10 Transportation Bus fare",
		"Expense: 7 Gifts for mom",
		"Expense: 0.05 other tip jar",
		"Expense: 99.9 Bills & Utilities water bill 2024",
		"note first Expense: 3 Health aspirin, 20 tablets",
		"Expense: 12 Shopping & more stuff",
	}
	for _, in := range inputs {
		first, ok := ParseExpenseMessage(in)
		if !ok {
			t.Fatalf("ParseExpenseMessage(%q) did not match", in)
		}
		msg := FormatExpenseMessage(first)
		second, ok := ParseExpenseMessage(msg)
		if !ok {
			t.Fatalf("canonical form %q did not match", msg)
		}
		if first != second {
			t.Fatalf("round trip mismatch for %q: %+v -> %q -> %+v", in, first, msg, second)
		}
	}
}

func TestFormatExpenseMessage(t *testing.T) {
	got := FormatExpenseMessage(ParsedExpenseInput{Amount: Money{Cents: 1000}, Category: "Transportation", Note: "Bus fare"})
	if got != "Expense: 10.00 Transportation Bus fare" {
		t.Fatalf("unexpected canonical message: %q", got)
	}
}

func TestParseExpenseMessage_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := ParseExpenseMessage("Expense: 25.50 Food & Dining Lunch at cafe")
			if !ok || got.Category != CategoryFood || got.Note != "Lunch at cafe" {
				errs <- strings.TrimSpace(got.Category + " " + got.Note)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatalf("concurrent parse mismatch: %s", e)
	}
}
