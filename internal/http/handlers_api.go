package http

import (
	"net/http"

	"spesewa/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q, err := parseRangeQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.UserID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	items, err := s.opts.Expenses.ListExpenses(r.Context(), q.UserID, q.Start, q.End)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Error fetching expenses", log.FieldUserID, q.UserID, log.FieldError, err)
		writeError(w, statusFor(err), "Failed to fetch expenses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": toExpenseJSON(items)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q, err := parseRangeQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.UserID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	sum, err := s.opts.Expenses.Summary(r.Context(), q.UserID, q.Start, q.End)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Error building summary", log.FieldUserID, q.UserID, log.FieldError, err)
		writeError(w, statusFor(err), "Failed to build summary")
		return
	}
	writeJSON(w, http.StatusOK, toSummaryJSON(sum))
}

// handleSendReminders triggers one reminder round outside the schedule.
func (s *Server) handleSendReminders(w http.ResponseWriter, r *http.Request) {
	if s.opts.Reminders == nil {
		writeError(w, http.StatusServiceUnavailable, "Reminders are not configured")
		return
	}
	res := s.opts.Reminders.SendAll(r.Context())
	if res.Sent == 0 && res.Failed > 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to send test reminder", "failed": res.Failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sent": res.Sent, "failed": res.Failed})
}
