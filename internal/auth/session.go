package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SpreadsheetSession remembers the spreadsheet the ledger writes to, so a
// sheet created on first use is reused after a restart.
type SpreadsheetSession struct {
	path string

	mu sync.Mutex
}

type sessionFile struct {
	SpreadsheetID string `json:"spreadsheetId"`
}

func NewSpreadsheetSession(path string) *SpreadsheetSession {
	return &SpreadsheetSession{path: path}
}

// Load returns the stored spreadsheet id, or "" when none was saved yet.
func (s *SpreadsheetSession) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return "", nil
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session file: %w", err)
	}
	var sf sessionFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return "", fmt.Errorf("decode session file: %w", err)
	}
	return sf.SpreadsheetID, nil
}

// Save persists the spreadsheet id.
func (s *SpreadsheetSession) Save(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.MarshalIndent(sessionFile{SpreadsheetID: id}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
