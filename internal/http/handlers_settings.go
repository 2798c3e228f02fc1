package http

import (
	"fmt"
	"net/http"
	"net/url"

	"spesewa/internal/core"
	"spesewa/internal/log"
)

// handleConnectSheet points the Google ledger at an existing spreadsheet
// given by its browser URL.
func (s *Server) handleConnectSheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.opts.Sheets == nil {
		s.render(w, r, http.StatusServiceUnavailable, indexData{Categories: core.Categories, Error: "Google Sheets backend is not enabled"})
		return
	}
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, indexData{Categories: core.Categories, Error: "Invalid form"})
		return
	}
	userID := sanitizeInput(r.PostForm.Get("userId"))

	id, err := spreadsheetIDFromURL(r.PostForm.Get("spreadsheetUrl"))
	if err != nil {
		s.render(w, r, http.StatusBadRequest, indexData{UserID: userID, Categories: core.Categories, Error: err.Error()})
		return
	}
	if err := s.opts.Sheets.SetSpreadsheetID(id); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to connect spreadsheet", log.FieldError, err)
		s.render(w, r, http.StatusInternalServerError, indexData{UserID: userID, Categories: core.Categories, Error: "Could not save the spreadsheet"})
		return
	}
	redirectWithNotice(w, r, userID, "Connected spreadsheet "+id)
}

// handleTestReminder is the dashboard form variant of POST /api/reminders.
func (s *Server) handleTestReminder(w http.ResponseWriter, r *http.Request) {
	if s.opts.Reminders == nil {
		s.render(w, r, http.StatusServiceUnavailable, indexData{Categories: core.Categories, Error: "Reminders are not configured"})
		return
	}
	_ = r.ParseForm()
	userID := sanitizeInput(r.PostForm.Get("userId"))

	res := s.opts.Reminders.SendAll(r.Context())
	if res.Sent == 0 && res.Failed > 0 {
		s.render(w, r, http.StatusInternalServerError, indexData{UserID: userID, Categories: core.Categories, Error: "Failed to send test reminder"})
		return
	}
	redirectWithNotice(w, r, userID, fmt.Sprintf("Test reminder sent to %d recipients", res.Sent))
}

func redirectWithNotice(w http.ResponseWriter, r *http.Request, userID, notice string) {
	v := url.Values{"saved": {notice}}
	if userID != "" {
		v.Set("userId", userID)
	}
	http.Redirect(w, r, "/?"+v.Encode(), http.StatusSeeOther)
}
