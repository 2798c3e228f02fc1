// Package http serves the WhatsApp webhook, the JSON API, the Google OAuth
// flow and the dashboard.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"spesewa/internal/core"
	"spesewa/internal/log"
	"spesewa/internal/messaging"
	"spesewa/internal/middleware/ratelimit"
	"spesewa/internal/middleware/security"
	"spesewa/internal/middleware/trace"
	"spesewa/internal/reminder"
	"spesewa/internal/services"
	appweb "spesewa/web"
)

// Expenses is the use-case surface the handlers need.
type Expenses interface {
	HandleInbound(ctx context.Context, in messaging.Inbound) (services.Outcome, error)
	CreateExpense(ctx context.Context, userID, amount, category, note string, date time.Time) (core.Expense, error)
	ListExpenses(ctx context.Context, userID string, start, end time.Time) ([]core.Expense, error)
	Summary(ctx context.Context, userID string, start, end time.Time) (core.ExpenseSummary, error)
}

// OAuth is the Google authorization-code flow.
type OAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) error
	Authenticated() bool
}

// Reminders sends one reminder round on demand.
type Reminders interface {
	SendAll(ctx context.Context) reminder.Result
}

// Sheets selects the spreadsheet the Google ledger writes to.
type Sheets interface {
	SpreadsheetID() string
	SetSpreadsheetID(id string) error
}

// SignatureValidator checks webhook request signatures.
type SignatureValidator interface {
	Valid(publicURL string, form url.Values, signature string) bool
}

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Options struct {
	Addr          string
	PublicBaseURL string
	Expenses      Expenses
	// Optional collaborators; nil disables the routes that need them.
	OAuth       OAuth
	Reminders   Reminders
	Sheets      Sheets
	Signatures  SignatureValidator
	ReadyChecks map[string]ReadyCheck
	RateLimit   ratelimit.Config
	Logger      *log.Logger
}

type Server struct {
	http.Server
	opts      Options
	templates *template.Template
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *log.Logger
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.RateLimit.RequestsPerMinute == 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}
	// Twilio delivers every user's messages from a handful of addresses.
	opts.RateLimit.ExemptPaths = append(opts.RateLimit.ExemptPaths, webhookPath)
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		opts:     opts,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(logger),
		logger:   logger,
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		mux.Handle("GET /static/", security.StaticCache(3600)(http.StripPrefix("/static/", http.FileServer(http.FS(sub)))))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST "+webhookPath, s.handleWhatsAppWebhook)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("POST /api/reminders", s.handleSendReminders)

	mux.HandleFunc("GET /auth/google", s.handleAuthStart)
	mux.HandleFunc("GET /auth/google/callback", s.handleAuthCallback)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /sheets/connect", s.handleConnectSheet)
	mux.HandleFunc("POST /reminders/test", s.handleTestReminder)
	mux.HandleFunc("GET /ui/chart.png", s.handleChart)

	tracer := trace.NewMiddleware(logger, s.detector.ClientIP)
	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ClientIP, s.rateLimited)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.detector.Middleware(h)
	h = tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.limiter.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	return s.Shutdown(shutdownCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.opts.ReadyChecks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "checks", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
