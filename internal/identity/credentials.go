package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Credentials is the token file kept under the client home directory.
type Credentials struct {
	Token     string     `json:"token"`
	UserID    string     `json:"user_id"`
	Source    string     `json:"source"`     // "anonymous" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// LoadCredentials returns nil, nil when the file does not exist.
func LoadCredentials(path string) (*Credentials, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(b, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	creds.Token = stripBearer(creds.Token)
	return &creds, nil
}

// SaveCredentials writes the file owner-only.
func SaveCredentials(path string, creds Credentials) error {
	creds.Token = stripBearer(strings.TrimSpace(creds.Token))
	if creds.Token == "" {
		return fmt.Errorf("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func stripBearer(token string) string {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
