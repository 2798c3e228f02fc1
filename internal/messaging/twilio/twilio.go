// Package twilio sends and receives WhatsApp messages through Twilio.
package twilio

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"spesewa/internal/log"
	"spesewa/internal/messaging"
)

const channelPrefix = "whatsapp:"

// ErrMissingFields is returned for webhook calls without sender or content.
var ErrMissingFields = errors.New("missing required fields")

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Sender delivers WhatsApp messages from a Twilio number.
type Sender struct {
	api    messageCreator
	from   string
	logger *log.Logger
}

var _ messaging.Sender = (*Sender)(nil)

func NewSender(accountSID, authToken, fromNumber string, logger *log.Logger) *Sender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newSender(client.Api, fromNumber, logger)
}

func newSender(api messageCreator, fromNumber string, logger *log.Logger) *Sender {
	if logger == nil {
		logger = log.Nop()
	}
	return &Sender{
		api:    api,
		from:   strings.TrimPrefix(fromNumber, channelPrefix),
		logger: logger.WithComponent(log.ComponentMessaging),
	}
}

func (s *Sender) Send(ctx context.Context, userID, text string) bool {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Skipping WhatsApp message, context done", log.FieldRecipient, userID)
		return false
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(channelPrefix + strings.TrimPrefix(userID, channelPrefix))
	params.SetFrom(channelPrefix + s.from)
	params.SetBody(text)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error sending WhatsApp message", log.FieldOperation, log.OpSend, log.FieldRecipient, userID, log.FieldError, err)
		return false
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.logger.DebugContext(ctx, "WhatsApp message sent", log.FieldRecipient, userID, "sid", sid)
	return true
}

// ParseWebhook reads a Twilio form callback. Status callbacks may come
// without a body; user messages need both From and Body.
func ParseWebhook(form url.Values) (messaging.Inbound, error) {
	in := messaging.Inbound{
		From:   strings.TrimPrefix(strings.TrimSpace(form.Get("From")), channelPrefix),
		Body:   form.Get("Body"),
		Status: form.Get("MessageStatus"),
	}
	if in.Status == "" {
		in.Status = form.Get("SmsStatus")
	}
	if in.From == "" {
		return in, ErrMissingFields
	}
	if in.IsStatusEvent() {
		return in, nil
	}
	if strings.TrimSpace(in.Body) == "" {
		return in, ErrMissingFields
	}
	// Inbound user messages carry SmsStatus=received; only delivery receipts
	// keep their status.
	in.Status = ""
	return in, nil
}

// SignatureValidator checks the X-Twilio-Signature header.
type SignatureValidator struct {
	validator twclient.RequestValidator
}

func NewSignatureValidator(authToken string) *SignatureValidator {
	return &SignatureValidator{validator: twclient.NewRequestValidator(authToken)}
}

// Valid reports whether signature matches the public URL Twilio called and
// the posted form.
func (v *SignatureValidator) Valid(publicURL string, form url.Values, signature string) bool {
	if signature == "" {
		return false
	}
	params := make(map[string]string, len(form))
	for k := range form {
		params[k] = form.Get(k)
	}
	return v.validator.Validate(publicURL, params, signature)
}
