package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"spesewa/internal/core"
	"spesewa/internal/ledger"
	"spesewa/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type expenseJSON struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Amount   float64   `json:"amount"`
	Category string    `json:"category"`
	Note     string    `json:"note"`
	UserID   string    `json:"userId"`
}

func toExpenseJSON(items []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(items))
	for _, e := range items {
		out = append(out, expenseJSON{
			ID:       e.ID,
			Date:     e.Date,
			Amount:   e.Amount.Float(),
			Category: e.Category,
			Note:     e.Note,
			UserID:   e.UserID,
		})
	}
	return out
}

type categoryJSON struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type summaryJSON struct {
	Total      float64            `json:"total"`
	Count      int                `json:"count"`
	ByCategory []categoryJSON     `json:"byCategory"`
	ByDate     map[string]float64 `json:"byDate"`
}

func toSummaryJSON(s core.ExpenseSummary) summaryJSON {
	out := summaryJSON{
		Total:      s.Total.Float(),
		Count:      s.Count,
		ByCategory: []categoryJSON{},
		ByDate:     make(map[string]float64, len(s.ByDate)),
	}
	for _, c := range s.CategoryTotals() {
		out.ByCategory = append(out.ByCategory, categoryJSON{Name: c.Name, Amount: c.Amount.Float()})
	}
	for day, m := range s.ByDate {
		out.ByDate[day] = m.Float()
	}
	return out
}
