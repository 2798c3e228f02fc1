package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"spesewa/internal/core"
	"spesewa/internal/log"
	"spesewa/internal/services"
)

var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return m.String() },
	"day":   func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}

type categoryRow struct {
	Name   string
	Amount core.Money
	Width  int
}

type indexData struct {
	UserID        string
	Start, End    string
	Categories    []string
	Total         core.Money
	Count         int
	Rows          []categoryRow
	Items         []core.Expense
	HasChart      bool
	Error         string
	Notice        string
	AuthEnabled   bool
	Authenticated bool
	// Settings panel
	SheetsEnabled    bool
	SpreadsheetID    string
	RemindersEnabled bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q, err := parseRangeQuery(r.URL.Query())
	data := indexData{
		UserID:     q.UserID,
		Start:      r.URL.Query().Get("startDate"),
		End:        r.URL.Query().Get("endDate"),
		Categories: core.Categories,
		Notice:     r.URL.Query().Get("saved"),
	}
	status := http.StatusOK
	if err != nil {
		data.Error = err.Error()
		status = http.StatusBadRequest
	} else if q.UserID != "" {
		if err := s.loadDashboard(r, q, &data); err != nil {
			status = statusFor(err)
		}
	}
	s.render(w, r, status, data)
}

func (s *Server) loadDashboard(r *http.Request, q rangeQuery, data *indexData) error {
	ctx := r.Context()
	items, err := s.opts.Expenses.ListExpenses(ctx, q.UserID, q.Start, q.End)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Dashboard load failed", log.FieldUserID, q.UserID, log.FieldError, err)
		data.Error = "Could not load expenses"
		return err
	}

	sum := core.Summarize(items)
	data.Total = sum.Total
	data.Count = sum.Count
	data.Items = items
	data.HasChart = len(items) > 0

	totals := sum.CategoryTotals()
	var max int64
	for _, c := range totals {
		if c.Amount.Cents > max {
			max = c.Amount.Cents
		}
	}
	for _, c := range totals {
		width := 0
		if max > 0 {
			width = int((c.Amount.Cents*100 + max/2) / max)
			if width < 2 {
				width = 2
			}
		}
		data.Rows = append(data.Rows, categoryRow{Name: c.Name, Amount: c.Amount, Width: width})
	}
	return nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data indexData) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if auth := s.opts.OAuth; auth != nil {
		data.AuthEnabled = true
		data.Authenticated = auth.Authenticated()
	}
	if sheets := s.opts.Sheets; sheets != nil {
		data.SheetsEnabled = true
		data.SpreadsheetID = sheets.SpreadsheetID()
	}
	data.RemindersEnabled = s.opts.Reminders != nil

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed", log.FieldError, err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// handleCreateExpense stores an expense from the dashboard form and
// redirects back to the user's dashboard.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, indexData{Categories: core.Categories, Error: "Invalid form"})
		return
	}

	userID := sanitizeInput(r.PostForm.Get("userId"))
	fail := func(status int, msg string) {
		data := indexData{UserID: userID, Categories: core.Categories, Error: msg}
		if userID != "" {
			_ = s.loadDashboard(r, rangeQuery{UserID: userID}, &data)
			data.Error = msg
		}
		s.render(w, r, status, data)
	}

	date, err := parseDate(r.PostForm.Get("date"))
	if err != nil {
		fail(http.StatusUnprocessableEntity, err.Error())
		return
	}

	e, err := s.opts.Expenses.CreateExpense(ctx, userID,
		r.PostForm.Get("amount"),
		sanitizeInput(r.PostForm.Get("category")),
		sanitizeInput(r.PostForm.Get("note")),
		date)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			fail(http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.FromContext(ctx).ErrorContext(ctx, "Expense append error", log.FieldUserID, userID, log.FieldError, err)
		fail(statusFor(err), "Could not save the expense")
		return
	}

	v := url.Values{"userId": {userID}, "saved": {"Saved " + e.Amount.String() + " " + e.Category}}
	http.Redirect(w, r, "/?"+v.Encode(), http.StatusSeeOther)
}

// handleChart renders per-category totals as a PNG bar chart.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	q, err := parseRangeQuery(r.URL.Query())
	if err != nil || q.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	sum, err := s.opts.Expenses.Summary(r.Context(), q.UserID, q.Start, q.End)
	if err != nil {
		http.Error(w, "could not load expenses", statusFor(err))
		return
	}
	if sum.Count == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	png, err := renderCategoryChart(sum.CategoryTotals())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Chart render failed", log.FieldOperation, log.OpRender, log.FieldError, err)
		http.Error(w, "chart error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func renderCategoryChart(totals []core.CategoryAmount) ([]byte, error) {
	bars := make([]chart.Value, 0, len(totals))
	var max float64
	for _, c := range totals {
		v := c.Amount.Float()
		if v > max {
			max = v
		}
		bars = append(bars, chart.Value{Value: v, Label: c.Name})
	}

	graph := chart.BarChart{
		Title:      "Expenses by category",
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Width:      720,
		Height:     360,
		BarWidth:   60,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: max * 1.1},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
