package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const SchemaVersion = 1

var ErrStateNotFound = errors.New("session state not found")

// State is the persisted cloud-session state. It is written locally
// with 0600 permissions and mirrored to the blob store so a redeploy
// does not force a fresh login.
type State struct {
	SchemaVersion int       `json:"schema_version"`
	Email         string    `json:"email"`
	UserID        string    `json:"user_id"`
	AccessToken   string    `json:"access_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Bootstrap holds the immutable login credentials seeded from config.
type Bootstrap struct {
	Email        string
	PasswordFile string
}

func (b Bootstrap) Validate() error {
	if b.Email == "" {
		return fmt.Errorf("bootstrap missing email")
	}
	if b.PasswordFile == "" {
		return fmt.Errorf("bootstrap missing password_file")
	}
	return nil
}

func LoadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, ErrStateNotFound
		}
		return State{}, fmt.Errorf("read state: %w", err)
	}
	if err := checkStateFile(path); err != nil {
		return State{}, err
	}
	return DecodeState(data)
}

func DecodeState(data []byte) (State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return State{}, err
	}
	return state, nil
}

func (s State) Validate() error {
	if s.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported schema_version: %d", s.SchemaVersion)
	}
	if s.Email == "" {
		return fmt.Errorf("state missing email")
	}
	if s.AccessToken == "" {
		return fmt.Errorf("state missing access_token")
	}
	return nil
}

func WriteState(path string, state State) error {
	if state.SchemaVersion == 0 {
		state.SchemaVersion = SchemaVersion
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir state dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func checkStateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0o600 {
		return fmt.Errorf("state file %s must have 0600 permissions", path)
	}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		if int(stat.Uid) != os.Geteuid() {
			return fmt.Errorf("state file %s must be owned by uid %d", path, os.Geteuid())
		}
	}
	return nil
}
