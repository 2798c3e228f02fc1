// Command reminders runs the daily WhatsApp reminder on its own, for
// deployments that keep the schedule outside the web process.
package main

import (
	"flag"

	"spesewa/internal/backend"
	"spesewa/internal/cli"
	"spesewa/internal/log"
	"spesewa/internal/messaging"
	"spesewa/internal/messaging/logsender"
	"spesewa/internal/messaging/twilio"
	"spesewa/internal/reminder"
)

func main() {
	once := flag.Bool("once", false, "send one reminder round and exit")
	flag.Parse()

	cfg, logger, err := cli.Bootstrap(log.ComponentReminder)
	if err != nil {
		cli.Exit(logger, "Failed to load configuration", err)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	be, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		cli.Exit(logger, "Failed to initialize backend", err)
	}
	defer be.Close()

	var sender messaging.Sender = logsender.New(logger)
	if cfg.TwilioEnabled() {
		sender = twilio.NewSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, logger)
	}
	rem := reminder.New(sender, cfg.ReminderRecipients, be.Store, logger)

	if *once {
		res := rem.SendAll(ctx)
		logger.Info("Reminder round finished", "sent", res.Sent, "failed", res.Failed)
		return
	}

	loc, err := cfg.ReminderLocation()
	if err != nil {
		cli.Exit(logger, "Invalid reminder timezone", err)
	}
	sched, err := reminder.NewScheduler(cfg.ReminderCron, loc, rem, logger)
	if err != nil {
		cli.Exit(logger, "Invalid reminder schedule", err)
	}
	if err := sched.Run(ctx); err != nil {
		logger.Error("Reminder scheduler failed", log.FieldError, err)
	}
}
