package http

import (
	"net/http"
	"strings"

	"spesewa/internal/log"
	"spesewa/internal/messaging/twilio"
	"spesewa/internal/services"
)

const (
	webhookPath    = "/webhook/whatsapp"
	maxWebhookBody = 64 << 10
)

// handleWhatsAppWebhook receives Twilio's form-encoded message callbacks.
func (s *Server) handleWhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentWebhook)

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "Invalid webhook form", log.FieldError, err)
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	if s.opts.Signatures != nil {
		publicURL := strings.TrimRight(s.opts.PublicBaseURL, "/") + r.URL.RequestURI()
		if !s.opts.Signatures.Valid(publicURL, r.PostForm, r.Header.Get("X-Twilio-Signature")) {
			logger.WarnContext(ctx, "Webhook signature rejected")
			writeError(w, http.StatusForbidden, "Invalid signature")
			return
		}
	}

	in, err := twilio.ParseWebhook(r.PostForm)
	if err != nil {
		logger.WarnContext(ctx, "Rejected webhook payload", log.FieldError, err)
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	outcome, err := s.opts.Expenses.HandleInbound(ctx, in)
	if err != nil {
		logger.ErrorContext(ctx, "Error processing webhook", log.FieldUserID, in.From, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	switch outcome {
	case services.OutcomeUnparsed:
		writeError(w, http.StatusBadRequest, "Invalid message format")
	case services.OutcomeRejected:
		writeError(w, http.StatusBadRequest, "Invalid expense")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "outcome": outcome.String()})
	}
}
