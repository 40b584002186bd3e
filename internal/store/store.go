// Package store persists the current session credentials on the local
// filesystem so a session survives process restarts.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const sessionFile = "session.json"

// Tokens holds the persisted credential pair. Empty fields mean no value is
// stored, which is a valid "no session" state.
type Tokens struct {
	AccessToken  string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Store manages session persistence in a local state directory.
type Store struct {
	baseDir string
}

// New creates a session store rooted at baseDir.
// If baseDir is empty, uses ~/.gamefeed/
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".gamefeed")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return &Store{baseDir: baseDir}, nil
}

// Load reads the persisted tokens. A missing file yields zero-value Tokens.
func (s *Store) Load() (Tokens, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return Tokens{}, nil
		}
		return Tokens{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var tokens Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return Tokens{}, fmt.Errorf("failed to parse session file: %w", err)
	}

	return tokens, nil
}

// Save persists both tokens. The write goes through a temp file and rename so
// a subsequent Load observes either the old pair or the new pair, never a mix.
func (s *Store) Save(accessToken, refreshToken string) error {
	data, err := json.MarshalIndent(Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tempPath := s.path() + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	if err := os.Rename(tempPath, s.path()); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session file: %w", err)
	}

	log.Debug().Str("path", s.path()).Msg("session saved")

	return nil
}

// Clear removes both tokens. Clearing an already-empty store is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	log.Debug().Str("path", s.path()).Msg("session cleared")

	return nil
}

func (s *Store) path() string {
	return filepath.Join(s.baseDir, sessionFile)
}
