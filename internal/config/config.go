package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// Supported DATA_BACKEND values.
const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
	BackendXLSX   = "xlsx"
	BackendSQLite = "sqlite"
)

var validBackends = []string{BackendMemory, BackendSheets, BackendXLSX, BackendSQLite}

type Config struct {
	// HTTP Server
	Port          string `koanf:"PORT"`
	PublicBaseURL string `koanf:"PUBLIC_BASE_URL"`

	// Backend selection
	DataBackend string `koanf:"DATA_BACKEND"`
	DataDir     string `koanf:"DATA_DIR"`

	// Database
	SQLiteDBPath string `koanf:"SQLITE_DB_PATH"`

	// AMQP
	AMQPURL      string `koanf:"AMQP_URL"`
	AMQPExchange string `koanf:"AMQP_EXCHANGE"`
	AMQPQueue    string `koanf:"AMQP_QUEUE"`

	// Google Sheets
	GoogleSpreadsheetID   string `koanf:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName       string `koanf:"GOOGLE_SHEET_NAME"`
	GoogleOAuthClientFile string `koanf:"GOOGLE_OAUTH_CLIENT_FILE"`
	GoogleOAuthClientJSON string `koanf:"GOOGLE_OAUTH_CLIENT_JSON"`
	GoogleOAuthTokenFile  string `koanf:"GOOGLE_OAUTH_TOKEN_FILE"`
	GoogleRedirectURL     string `koanf:"GOOGLE_REDIRECT_URI"`
	GoogleSessionFile     string `koanf:"GOOGLE_SESSION_FILE"`

	// Twilio WhatsApp
	TwilioAccountSID        string `koanf:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken         string `koanf:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppNumber    string `koanf:"TWILIO_WHATSAPP_NUMBER"`
	TwilioValidateSignature bool   `koanf:"TWILIO_VALIDATE_SIGNATURE"`

	// Reminders
	ReminderEnabled    bool     `koanf:"REMINDER_ENABLED"`
	ReminderCron       string   `koanf:"REMINDER_CRON"`
	ReminderTimezone   string   `koanf:"REMINDER_TZ"`
	ReminderRecipients []string `koanf:"REMINDER_RECIPIENTS"`

	// Worker
	SyncBatchSize int           `koanf:"SYNC_BATCH_SIZE"`
	SyncInterval  time.Duration `koanf:"SYNC_INTERVAL"`
}

// Defaults returns the configuration used when no environment is set.
func Defaults() *Config {
	return &Config{
		Port:                 "8081",
		DataBackend:          BackendMemory,
		DataDir:              "./data",
		SQLiteDBPath:         "./data/spesewa.db",
		AMQPExchange:         "spesewa",
		AMQPQueue:            "sync_expenses",
		GoogleSheetName:      "Expenses",
		GoogleOAuthTokenFile: "./data/token.json",
		GoogleRedirectURL:    "http://localhost:8081/auth/google/callback",
		GoogleSessionFile:    "./data/spreadsheet-config.json",
		ReminderEnabled:      true,
		ReminderCron:         "0 21 * * *",
		SyncBatchSize:        10,
		SyncInterval:         30 * time.Second,
	}
}

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Load reads the environment on top of Defaults.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.ReminderRecipients = cleanList(cfg.ReminderRecipients)
	return cfg, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// TwilioEnabled reports whether outbound WhatsApp delivery is configured.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioWhatsAppNumber != ""
}

// GoogleClientSecret returns the OAuth client JSON, inline value first.
func (c *Config) GoogleClientSecret() ([]byte, error) {
	if c.GoogleOAuthClientJSON != "" {
		return []byte(c.GoogleOAuthClientJSON), nil
	}
	if c.GoogleOAuthClientFile == "" {
		return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
	b, err := os.ReadFile(c.GoogleOAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret file: %w", err)
	}
	return b, nil
}

// ReminderLocation resolves REMINDER_TZ; empty means the local zone.
func (c *Config) ReminderLocation() (*time.Location, error) {
	if c.ReminderTimezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.ReminderTimezone)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite && c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
	}
	if c.DataBackend == BackendXLSX && c.DataDir == "" {
		errs = append(errs, "data directory cannot be empty when using xlsx backend")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.DataBackend == BackendSheets {
		if c.GoogleSheetName == "" {
			errs = append(errs, "Google Sheet name is required when using sheets backend")
		}
		if c.GoogleOAuthClientFile == "" && c.GoogleOAuthClientJSON == "" {
			errs = append(errs, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for sheets backend")
		}
		if c.GoogleOAuthClientFile != "" {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		if c.GoogleOAuthTokenFile == "" {
			errs = append(errs, "GOOGLE_OAUTH_TOKEN_FILE cannot be empty for sheets backend")
		}
	}

	twilioSet := 0
	for _, v := range []string{c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioWhatsAppNumber} {
		if v != "" {
			twilioSet++
		}
	}
	if twilioSet > 0 && twilioSet < 3 {
		errs = append(errs, "TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_NUMBER must be set together")
	}
	if c.TwilioValidateSignature {
		if c.TwilioAuthToken == "" {
			errs = append(errs, "TWILIO_VALIDATE_SIGNATURE requires TWILIO_AUTH_TOKEN")
		}
		if c.PublicBaseURL == "" {
			errs = append(errs, "TWILIO_VALIDATE_SIGNATURE requires PUBLIC_BASE_URL")
		}
	}

	if c.ReminderEnabled {
		if _, err := cron.ParseStandard(c.ReminderCron); err != nil {
			errs = append(errs, fmt.Sprintf("invalid reminder schedule '%s': %v", c.ReminderCron, err))
		}
		if _, err := c.ReminderLocation(); err != nil {
			errs = append(errs, fmt.Sprintf("invalid reminder timezone '%s': %v", c.ReminderTimezone, err))
		}
	}

	if c.SyncBatchSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}
