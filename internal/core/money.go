// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Parsing is deliberately strict: plain
// ASCII digits with at most one dot and at most two fractional digits.
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// maxSafeUnits keeps units*100 inside int64.
const maxSafeUnits = (1<<63 - 1) / 100

// ParseAmount converts a decimal string to Money.
//
// Accepted: "12", "12.3", "12.34". Rejected: signs, commas, exponents,
// currency symbols, more than two fractional digits, zero.
//
// Examples:
//
//	ParseAmount("12.34") -> {1234}, nil
//	ParseAmount("12.3")  -> {1230}, nil
//	ParseAmount("12.345") -> error
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" || !isASCIIDigits(intPart) {
		return Money{}, ErrInvalidAmount
	}
	if hasDot && (len(fracPart) == 0 || len(fracPart) > 2 || !isASCIIDigits(fracPart)) {
		return Money{}, ErrInvalidAmount
	}
	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || units > maxSafeUnits {
		return Money{}, ErrInvalidAmount
	}
	var frac int64
	switch len(fracPart) {
	case 1:
		frac = int64(fracPart[0]-'0') * 10
	case 2:
		frac = int64(fracPart[0]-'0')*10 + int64(fracPart[1]-'0')
	}
	m := Money{Cents: units*100 + frac}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

func isASCIIDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String renders the amount with two decimals and a dot separator, the form
// ParseAmount accepts back.
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// Float returns the amount as a float64 for display and spreadsheet cells.
// Use cents for calculations.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// MoneyFromFloat rounds a spreadsheet number to the nearest cent.
func MoneyFromFloat(f float64) Money {
	if f < 0 {
		return Money{Cents: int64(f*100.0 - 0.5)}
	}
	return Money{Cents: int64(f*100.0 + 0.5)}
}
