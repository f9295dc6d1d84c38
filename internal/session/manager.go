package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Declaration defines the login contract a plugin must provide.
type Declaration struct {
	Provider     string
	LoginURL     string
	ClientID     string
	ClientSecret string
	StatePath    string
}

// Manager maintains an authenticated cloud session: it logs in with
// email/password, caches the resulting access token behind an
// oauth2.TokenSource, and persists the session locally plus a blob
// mirror so restarts reuse the token instead of re-logging-in.
type Manager struct {
	decl       Declaration
	bootstrap  Bootstrap
	password   string
	blobStore  BlobStore
	httpClient *http.Client

	mu     sync.Mutex
	userID string
	source oauth2.TokenSource
}

func NewManager(decl Declaration, bootstrap Bootstrap, blobStore BlobStore) (*Manager, error) {
	if decl.Provider == "" {
		return nil, fmt.Errorf("provider is required")
	}
	if decl.LoginURL == "" {
		return nil, fmt.Errorf("loginURL is required")
	}
	if decl.StatePath == "" {
		return nil, fmt.Errorf("statePath is required")
	}
	if !filepath.IsAbs(decl.StatePath) {
		return nil, fmt.Errorf("statePath must be absolute")
	}
	if err := bootstrap.Validate(); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	password, err := readSecretFile(bootstrap.PasswordFile)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}

	m := &Manager{
		decl:       decl,
		bootstrap:  bootstrap,
		password:   password,
		blobStore:  blobStore,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}

	initial := m.loadInitialToken()
	m.source = oauth2.ReuseTokenSource(initial, loginSource{m: m})
	return m, nil
}

// Token returns a valid access token, logging in if the cached one is
// missing or expired.
func (m *Manager) Token(ctx context.Context) (string, error) {
	_ = ctx
	token, err := m.source.Token()
	if err != nil {
		tokenValid.WithLabelValues(m.decl.Provider).Set(0)
		return "", err
	}
	tokenValid.WithLabelValues(m.decl.Provider).Set(1)
	return token.AccessToken, nil
}

// UserID returns the provider user id from the most recent login or
// restored state.
func (m *Manager) UserID(ctx context.Context) (string, error) {
	m.mu.Lock()
	id := m.userID
	m.mu.Unlock()
	if id != "" {
		return id, nil
	}
	if _, err := m.Token(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userID == "" {
		return "", errors.New("login did not yield a user id")
	}
	return m.userID, nil
}

// loginSource performs the email/password login. oauth2.ReuseTokenSource
// on top of it handles caching and expiry.
type loginSource struct {
	m *Manager
}

func (s loginSource) Token() (*oauth2.Token, error) {
	return s.m.login(context.Background())
}

func (m *Manager) login(ctx context.Context) (*oauth2.Token, error) {
	body, err := json.Marshal(map[string]string{
		"email":         m.bootstrap.Email,
		"password":      m.password,
		"client_id":     m.decl.ClientID,
		"client_secret": m.decl.ClientSecret,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.decl.LoginURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		loginFailure.WithLabelValues(m.decl.Provider).Inc()
		return nil, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		loginFailure.WithLabelValues(m.decl.Provider).Inc()
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		UserID      string `json:"user_id"`
		UserInfo    struct {
			ID string `json:"id"`
		} `json:"user_info"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		loginFailure.WithLabelValues(m.decl.Provider).Inc()
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if parsed.AccessToken == "" {
		loginFailure.WithLabelValues(m.decl.Provider).Inc()
		return nil, errors.New("login response missing access_token")
	}

	userID := parsed.UserID
	if userID == "" {
		userID = parsed.UserInfo.ID
	}
	expiry := time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	if parsed.ExpiresIn == 0 {
		expiry = time.Now().Add(24 * time.Hour)
	}

	m.mu.Lock()
	m.userID = userID
	m.mu.Unlock()

	state := State{
		SchemaVersion: SchemaVersion,
		Email:         m.bootstrap.Email,
		UserID:        userID,
		AccessToken:   parsed.AccessToken,
		ExpiresAt:     expiry,
	}
	m.persist(ctx, state)

	loginSuccess.WithLabelValues(m.decl.Provider).Inc()
	return &oauth2.Token{AccessToken: parsed.AccessToken, Expiry: expiry}, nil
}

// loadInitialToken restores a still-valid token from the local state
// file or the blob mirror. Any failure just means a fresh login.
func (m *Manager) loadInitialToken() *oauth2.Token {
	state, err := LoadState(m.decl.StatePath)
	if err != nil && m.blobStore != nil {
		if data, blobErr := m.blobStore.Load(context.Background(), m.decl.Provider); blobErr == nil {
			if decoded, decodeErr := DecodeState(data); decodeErr == nil {
				state, err = decoded, nil
				_ = WriteState(m.decl.StatePath, decoded)
			}
		}
	}
	if err != nil {
		return nil
	}
	if state.Email != m.bootstrap.Email {
		return nil
	}
	if time.Until(state.ExpiresAt) < time.Minute {
		return nil
	}
	m.mu.Lock()
	m.userID = state.UserID
	m.mu.Unlock()
	return &oauth2.Token{AccessToken: state.AccessToken, Expiry: state.ExpiresAt}
}

func (m *Manager) persist(ctx context.Context, state State) {
	if err := WriteState(m.decl.StatePath, state); err == nil {
		localPersistOK.WithLabelValues(m.decl.Provider).Set(1)
	} else {
		localPersistOK.WithLabelValues(m.decl.Provider).Set(0)
	}
	if m.blobStore == nil {
		return
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return
	}
	if err := m.blobStore.Save(ctx, m.decl.Provider, data); err != nil {
		remotePersistOK.WithLabelValues(m.decl.Provider).Set(0)
		return
	}
	remotePersistOK.WithLabelValues(m.decl.Provider).Set(1)
}

// TempStatePath builds a state path under the user config dir when the
// config file does not name one.
func TempStatePath(provider string) string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "eufyvac", strings.ToLower(provider)+"-session.json")
}
