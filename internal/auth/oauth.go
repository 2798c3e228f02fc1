// Package auth manages the Google OAuth2 user credentials used by the
// spreadsheet ledger.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// ErrNotAuthenticated is returned until a token has been obtained through
// the consent flow.
var ErrNotAuthenticated = errors.New("google account not authorized, visit /auth/google")

// Scopes requested during consent: spreadsheet access plus the files the app
// creates in Drive.
var Scopes = []string{gsheet.SpreadsheetsScope, gsheet.DriveFileScope}

// Manager owns the OAuth client configuration and the persisted token.
type Manager struct {
	cfg       *oauth2.Config
	tokenFile string

	mu  sync.Mutex
	tok *oauth2.Token
}

// NewManager parses the client secret JSON. redirectURL overrides the one in
// the secret when not empty.
func NewManager(secretJSON []byte, redirectURL, tokenFile string) (*Manager, error) {
	cfg, err := google.ConfigFromJSON(secretJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return NewManagerWithConfig(cfg, tokenFile), nil
}

// NewManagerWithConfig builds a Manager around an existing oauth2 config.
func NewManagerWithConfig(cfg *oauth2.Config, tokenFile string) *Manager {
	m := &Manager{cfg: cfg, tokenFile: tokenFile}
	if tok, err := TokenFromFile(tokenFile); err == nil {
		m.tok = tok
	}
	return m
}

// AuthURL returns the consent page URL. Offline access with forced consent
// makes Google hand out a refresh token every time.
func (m *Manager) AuthURL(state string) string {
	return m.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and persists it.
func (m *Manager) Exchange(ctx context.Context, code string) error {
	if code == "" {
		return errors.New("missing authorization code")
	}
	tok, err := m.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	return m.setToken(tok)
}

// Authenticated reports whether a token is available.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tok != nil
}

// HTTPClient returns a client that authorizes requests and writes refreshed
// tokens back to the token file. The client is usually cached for the life
// of the process, so refreshes keep ctx's values but not its cancellation.
func (m *Manager) HTTPClient(ctx context.Context) (*http.Client, error) {
	m.mu.Lock()
	tok := m.tok
	m.mu.Unlock()
	if tok == nil {
		return nil, ErrNotAuthenticated
	}
	base := context.WithoutCancel(ctx)
	ts := &persistingSource{
		base: m.cfg.TokenSource(base, tok),
		m:    m,
		last: tok.AccessToken,
	}
	return oauth2.NewClient(base, oauth2.ReuseTokenSource(tok, ts)), nil
}

func (m *Manager) setToken(tok *oauth2.Token) error {
	m.mu.Lock()
	m.tok = tok
	m.mu.Unlock()
	return SaveToken(m.tokenFile, tok)
}

type persistingSource struct {
	base oauth2.TokenSource
	m    *Manager

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	changed := tok.AccessToken != s.last
	s.last = tok.AccessToken
	s.mu.Unlock()
	if changed {
		// A failed write only costs a refresh on next start.
		_ = s.m.setToken(tok)
	}
	return tok, nil
}

// TokenFromFile retrieves a token from a local file.
func TokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return tok, nil
}

// SaveToken saves a token to a file path, creating parent directories.
func SaveToken(path string, token *oauth2.Token) error {
	if path == "" {
		return errors.New("token file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return nil
}
