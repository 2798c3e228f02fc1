// Package reminder sends the daily "log your expenses" message.
package reminder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"spesewa/internal/ledger"
	"spesewa/internal/log"
	"spesewa/internal/messaging"
)

// Result counts the outcome of one reminder round.
type Result struct {
	Sent   int
	Failed int
}

// Reminder sends the reminder text to the configured recipients and, when
// users is set, to every user found in the ledger.
type Reminder struct {
	sender     messaging.Sender
	recipients []string
	users      ledger.UserLister
	logger     *log.Logger
}

func New(sender messaging.Sender, recipients []string, users ledger.UserLister, logger *log.Logger) *Reminder {
	if logger == nil {
		logger = log.Nop()
	}
	return &Reminder{
		sender:     sender,
		recipients: recipients,
		users:      users,
		logger:     logger.WithComponent(log.ComponentReminder),
	}
}

// SendAll sends one reminder to each recipient. A failure to list ledger
// users is logged and the configured recipients are still served.
func (r *Reminder) SendAll(ctx context.Context) Result {
	r.logger.InfoContext(ctx, "Sending daily reminders")

	var res Result
	text := messaging.ReminderText()
	for _, to := range r.targets(ctx) {
		if ctx.Err() != nil {
			break
		}
		if r.sender.Send(ctx, to, text) {
			res.Sent++
			r.logger.InfoContext(ctx, "Reminder sent", log.FieldRecipient, to)
		} else {
			res.Failed++
			r.logger.ErrorContext(ctx, "Failed to send reminder", log.FieldRecipient, to)
		}
	}
	return res
}

func (r *Reminder) targets(ctx context.Context) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(ids []string) {
		for _, id := range ids {
			if id != "" && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}

	add(r.recipients)
	if r.users != nil {
		users, err := r.users.ListUsers(ctx)
		if err != nil {
			r.logger.WarnContext(ctx, "Could not list ledger users", log.FieldOperation, log.OpList, log.FieldError, err)
		}
		sort.Strings(users)
		add(users)
	}
	return out
}

// Scheduler fires a Reminder on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	reminder *Reminder
	logger   *log.Logger
}

// NewScheduler parses expr as a standard five-field cron expression in loc.
func NewScheduler(expr string, loc *time.Location, r *Reminder, logger *log.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Nop()
	}
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		reminder: r,
		logger:   logger.WithComponent(log.ComponentReminder),
	}
	if _, err := s.cron.AddFunc(expr, s.fire); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", expr, err)
	}
	return s, nil
}

func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	res := s.reminder.SendAll(ctx)
	s.logger.InfoContext(ctx, "Reminder round finished", "sent", res.Sent, "failed", res.Failed)
}

// Next returns the next time the reminder will fire after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(t)
}

// Run starts the scheduler and blocks until ctx is done, then waits for a
// running round to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.InfoContext(ctx, "Reminder scheduler started", "next", s.Next(time.Now()))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Reminder scheduler stopped")
	return nil
}
