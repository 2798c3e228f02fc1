// Package messaging defines how the service talks to chat users and the
// texts it sends them.
package messaging

import (
	"context"
	"fmt"
	"strings"

	"spesewa/internal/core"
)

// Sender delivers a text to a user. Delivery failures are logged by the
// implementation and reported as false; Send never panics or errors.
type Sender interface {
	Send(ctx context.Context, userID, text string) bool
}

// Inbound is one webhook callback from the chat provider.
type Inbound struct {
	From   string // sender ID without channel prefix
	Body   string
	Status string // delivery status for status callbacks, empty for messages
}

// IsStatusEvent reports whether the callback is a delivery receipt rather
// than a user message.
func (in Inbound) IsStatusEvent() bool {
	return in.Status != "" && strings.TrimSpace(in.Body) == ""
}

const (
	HelpText    = "Sorry, I couldn't understand your message. Please use the format: Expense: [amount] [category] [note]"
	FailureText = "Sorry, something went wrong while saving your expense. Please try again later."
)

// RejectedText explains why a well-formed message was not recorded.
func RejectedText(reason error) string {
	return fmt.Sprintf("Sorry, that expense was not recorded: %v.", reason)
}

// ConfirmationText acknowledges a recorded expense.
func ConfirmationText(in core.ParsedExpenseInput) string {
	return fmt.Sprintf("✅ Expense recorded successfully!\nAmount: %s\nCategory: %s\nNote: %s",
		in.Amount, in.Category, in.Note)
}

// ReminderText is the daily nudge listing the known categories.
func ReminderText() string {
	var b strings.Builder
	b.WriteString("Hi! It's time to log your expenses for today.\n")
	b.WriteString("Please send your expenses in this format:\n")
	b.WriteString("Expense: [amount] [category] [note]\n\n")
	b.WriteString("Example: Expense: 25.50 Food & Dining Lunch at cafe\n\n")
	b.WriteString("Categories available:")
	for _, c := range core.Categories {
		b.WriteString("\n- ")
		b.WriteString(c)
	}
	return b.String()
}
