package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"spesewa/internal/backend"
	"spesewa/internal/cache"
	"spesewa/internal/cli"
	"spesewa/internal/config"
	apphttp "spesewa/internal/http"
	"spesewa/internal/log"
	"spesewa/internal/messaging"
	"spesewa/internal/messaging/logsender"
	"spesewa/internal/messaging/twilio"
	"spesewa/internal/reminder"
	"spesewa/internal/services"
)

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentApp)
	if err != nil {
		cli.Exit(logger, "Failed to load configuration", err)
	}
	logger.Info("Starting spesewa", log.FieldBackend, cfg.DataBackend, "port", cfg.Port)

	ctx, stop := cli.SignalContext()
	defer stop()

	be, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		cli.Exit(logger, "Failed to initialize backend", err)
	}
	defer func() {
		if err := be.Close(); err != nil {
			logger.Error("Failed closing backend", log.FieldError, err)
		}
	}()

	sender := newSender(cfg, logger)

	svc := services.NewExpenseService(be.Store, sender, be.Publisher, logger)

	rem := reminder.New(sender, cfg.ReminderRecipients, be.Store, logger)

	opts := apphttp.Options{
		Addr:          ":" + cfg.Port,
		PublicBaseURL: cfg.PublicBaseURL,
		Expenses:      svc,
		Reminders:     rem,
		ReadyChecks:   map[string]apphttp.ReadyCheck{},
		Logger:        logger,
	}
	for name, check := range be.ReadyChecks {
		opts.ReadyChecks[name] = check
	}
	// A nil *auth.Manager must stay a nil interface so the OAuth routes report 503.
	if be.Auth != nil {
		opts.OAuth = be.Auth
	}
	if be.Sheets != nil {
		opts.Sheets = be.Sheets
	}
	if cfg.TwilioValidateSignature {
		opts.Signatures = twilio.NewSignatureValidator(cfg.TwilioAuthToken)
	}
	srv := apphttp.NewServer(opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		cache.RunCleanup(gctx, time.Minute, logger, svc.ReadCache())
		return nil
	})

	if cfg.ReminderEnabled {
		sched, err := newScheduler(cfg, rem, logger)
		if err != nil {
			cli.Exit(logger, "Failed to configure reminder schedule", err)
		}
		g.Go(func() error { return sched.Run(gctx) })
	} else {
		logger.Info("Daily reminders disabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", log.FieldError, err)
		return
	}
	logger.Info("Shutdown complete")
}

func newSender(cfg *config.Config, logger *log.Logger) messaging.Sender {
	if cfg.TwilioEnabled() {
		logger.Info("WhatsApp delivery via Twilio", "from", cfg.TwilioWhatsAppNumber)
		return twilio.NewSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, logger)
	}
	logger.Warn("Twilio credentials not configured, outbound messages are only logged")
	return logsender.New(logger)
}

func newScheduler(cfg *config.Config, rem *reminder.Reminder, logger *log.Logger) (*reminder.Scheduler, error) {
	loc, err := cfg.ReminderLocation()
	if err != nil {
		return nil, err
	}
	return reminder.NewScheduler(cfg.ReminderCron, loc, rem, logger)
}
