package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"spesewa/internal/auth"
	"spesewa/internal/config"
	"spesewa/internal/core"
	"spesewa/internal/ledger"
)

const testSecret = `{"web":{"client_id":"cid","client_secret":"shh","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost:8081/auth/google/callback"]}}`

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.DataBackend = backend
	cfg.DataDir = dir
	cfg.SQLiteDBPath = filepath.Join(dir, "test.db")
	cfg.GoogleOAuthClientJSON = testSecret
	cfg.GoogleOAuthTokenFile = filepath.Join(dir, "token.json")
	cfg.GoogleSessionFile = filepath.Join(dir, "session.json")
	return cfg
}

func TestOpenLocalBackends(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendXLSX, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			res, err := Open(context.Background(), testConfig(t, backend), nil)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer res.Close()

			e := core.Expense{
				ID:       "id-1",
				UserID:   "+391",
				Date:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
				Amount:   core.Money{Cents: 1234},
				Category: core.CategoryFood,
				Note:     "pizza",
			}
			if _, err := res.Store.Append(context.Background(), e); err != nil {
				t.Fatalf("Append: %v", err)
			}
			items, err := res.Store.ReadAll(context.Background(), "+391")
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if len(items) != 1 || items[0].Amount.Cents != 1234 || items[0].Category != core.CategoryFood {
				t.Fatalf("items = %+v", items)
			}
			users, err := res.Store.ListUsers(context.Background())
			if err != nil || len(users) != 1 || users[0] != "+391" {
				t.Fatalf("users = %v, err %v", users, err)
			}
			if res.Publisher != nil {
				t.Error("publisher set without AMQP_URL")
			}
			for name, check := range res.ReadyChecks {
				if err := check(context.Background()); err != nil {
					t.Errorf("ready check %s: %v", name, err)
				}
			}
		})
	}
}

func TestOpenSheetsWithoutToken(t *testing.T) {
	res, err := Open(context.Background(), testConfig(t, config.BackendSheets), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if res.Auth == nil || res.Auth.Authenticated() {
		t.Fatal("expected unauthenticated OAuth manager")
	}
	if res.Sheets == nil {
		t.Fatal("expected spreadsheet store")
	}
	if err := res.ReadyChecks["google_auth"](context.Background()); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("ready check = %v", err)
	}

	_, err = res.Store.ReadAll(context.Background(), "+391")
	if !errors.Is(err, ledger.ErrUnavailable) {
		t.Fatalf("ReadAll err = %v, want ErrUnavailable", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), testConfig(t, "postgres"), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenGoogleLedgerNeedsSecret(t *testing.T) {
	cfg := testConfig(t, config.BackendSheets)
	cfg.GoogleOAuthClientJSON = ""
	cfg.GoogleOAuthClientFile = ""
	if _, _, err := OpenGoogleLedger(cfg, nil); err == nil {
		t.Fatal("expected error without client secret")
	}
}
