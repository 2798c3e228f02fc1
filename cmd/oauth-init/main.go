// Command oauth-init authorizes the Google account from a terminal and
// stores the token where the server and worker read it.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"net/http"
	"time"

	"spesewa/internal/auth"
	"spesewa/internal/cli"
	"spesewa/internal/log"
)

func main() {
	port := flag.String("port", "8085", "local port for the OAuth redirect")
	flag.Parse()

	cfg, logger, err := cli.Bootstrap(log.ComponentAuth)
	if err != nil {
		cli.Exit(logger, "Failed to load configuration", err)
	}
	secret, err := cfg.GoogleClientSecret()
	if err != nil {
		cli.Exit(logger, "Missing OAuth client secret", err)
	}

	// The OAuth client must list this URI among its authorized redirects.
	redirectURL := "http://localhost:" + *port + "/callback"
	mgr, err := auth.NewManager(secret, redirectURL, cfg.GoogleOAuthTokenFile)
	if err != nil {
		cli.Exit(logger, "Invalid OAuth client secret", err)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		cli.Exit(logger, "Failed generating state", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- q.Get("code"):
		default:
		}
	})
	srv := &http.Server{Addr: ":" + *port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Callback server failed", log.FieldError, err)
			stop()
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", mgr.AuthURL(state))

	select {
	case code := <-codeCh:
		if err := mgr.Exchange(ctx, code); err != nil {
			cli.Exit(logger, "Token exchange failed", err)
		}
		fmt.Printf("Saved token to %s\n", cfg.GoogleOAuthTokenFile)
	case <-time.After(5 * time.Minute):
		logger.Error("Authorization timed out")
	case <-ctx.Done():
		logger.Warn("Interrupted")
	}
}
