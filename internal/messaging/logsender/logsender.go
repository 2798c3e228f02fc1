// Package logsender is a messaging.Sender that logs instead of delivering.
// It is used when no chat provider is configured, and in tests.
package logsender

import (
	"context"
	"sync"

	"spesewa/internal/log"
)

type Message struct {
	To   string
	Text string
}

type Sender struct {
	logger *log.Logger

	mu   sync.Mutex
	sent []Message
	fail map[string]bool
}

func New(logger *log.Logger) *Sender {
	if logger == nil {
		logger = log.Nop()
	}
	return &Sender{logger: logger.WithComponent(log.ComponentMessaging), fail: map[string]bool{}}
}

func (s *Sender) Send(ctx context.Context, userID, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[userID] {
		s.logger.WarnContext(ctx, "Message delivery failed", log.FieldRecipient, userID)
		return false
	}
	s.sent = append(s.sent, Message{To: userID, Text: text})
	s.logger.InfoContext(ctx, "Message not delivered, no provider configured", log.FieldRecipient, userID, "text", text)
	return true
}

// FailFor makes later sends to userID report failure.
func (s *Sender) FailFor(userID string) {
	s.mu.Lock()
	s.fail[userID] = true
	s.mu.Unlock()
}

// Sent returns a copy of the recorded messages.
func (s *Sender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
