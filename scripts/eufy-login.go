package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultLoginURL  = "https://home-api.eufylife.com/v1/user/email/login"
	defaultClientID  = "eufyhome-app"
	defaultClientSec = "GQCpr9dSp3uQpsOMgJ4xQ"
)

type sessionState struct {
	SchemaVersion int       `json:"schema_version"`
	Email         string    `json:"email"`
	UserID        string    `json:"user_id"`
	AccessToken   string    `json:"access_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
	UserInfo    struct {
		ID string `json:"id"`
	} `json:"user_info"`
}

func main() {
	var (
		email        = flag.String("email", "", "Eufy account email")
		passwordFile = flag.String("password-file", "", "Path to file holding the account password")
		loginURL     = flag.String("login-url", defaultLoginURL, "Login URL")
		outPath      = flag.String("out", "/var/lib/eufyvac/eufy-session.json", "Output path for session state JSON")
	)
	flag.Parse()

	if *email == "" || *passwordFile == "" {
		fatal(errors.New("email and password-file are required"))
	}

	password, err := os.ReadFile(*passwordFile)
	if err != nil {
		fatal(fmt.Errorf("read password file: %w", err))
	}

	token, err := login(*loginURL, *email, strings.TrimSpace(string(password)))
	if err != nil {
		fatal(err)
	}

	userID := token.UserID
	if userID == "" {
		userID = token.UserInfo.ID
	}

	expiry := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if token.ExpiresIn == 0 {
		expiry = time.Now().Add(24 * time.Hour)
	}

	state := sessionState{
		SchemaVersion: 1,
		Email:         *email,
		UserID:        userID,
		AccessToken:   token.AccessToken,
		ExpiresAt:     expiry,
	}
	if err := writeJSON(*outPath, state); err != nil {
		fatal(err)
	}

	fmt.Printf("Logged in as user %s\n", userID)
	fmt.Printf("Wrote session state to %s\n", *outPath)
}

func login(loginURL, email, password string) (loginResponse, error) {
	body, err := json.Marshal(map[string]string{
		"email":         email,
		"password":      password,
		"client_id":     defaultClientID,
		"client_secret": defaultClientSec,
	})
	if err != nil {
		return loginResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPost, loginURL, bytes.NewReader(body))
	if err != nil {
		return loginResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 20 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return loginResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return loginResponse{}, err
	}
	if resp.StatusCode >= 300 {
		return loginResponse{}, fmt.Errorf("login failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed loginResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return loginResponse{}, err
	}
	if parsed.AccessToken == "" {
		return loginResponse{}, errors.New("login response missing access_token")
	}
	return parsed, nil
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
