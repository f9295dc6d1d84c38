package eufy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dracoqcca/eufyvac/internal/session"
)

func newTestSessionManager(t *testing.T, loginURL string) *session.Manager {
	t.Helper()
	tempDir := t.TempDir()
	passwordPath := filepath.Join(tempDir, "password")
	if err := os.WriteFile(passwordPath, []byte("secret"), 0o600); err != nil {
		t.Fatalf("write password: %v", err)
	}
	mgr, err := session.NewManager(session.Declaration{
		Provider:  "eufy",
		LoginURL:  loginURL,
		StatePath: filepath.Join(tempDir, "state.json"),
	}, session.Bootstrap{Email: "user@example.com", PasswordFile: passwordPath}, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr
}

func TestEufyHomeClientUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/user/email/login":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"tok","expires_in":3600,"user_id":"uid-1"}`)
		case "/v1/user/info":
			if r.Header.Get("token") != "tok" {
				t.Fatalf("missing token header")
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"user_info":{"id":"uid-1","phone_code":"31"}}`)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := &EufyHomeClient{
		baseURL:    server.URL,
		sessions:   newTestSessionManager(t, server.URL+"/v1/user/email/login"),
		httpClient: server.Client(),
	}

	info, err := client.UserInfo(context.Background())
	if err != nil {
		t.Fatalf("UserInfo: %v", err)
	}
	if info.ID != "uid-1" || info.PhoneCode != "31" {
		t.Fatalf("unexpected user info: %+v", info)
	}
}

func TestTuyaAPISessionListDevices(t *testing.T) {
	var actions []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		action := r.PostFormValue("a")
		actions = append(actions, action)
		if r.PostFormValue("sign") == "" {
			t.Fatalf("request for %s is unsigned", action)
		}
		w.Header().Set("Content-Type", "application/json")
		switch action {
		case "tuya.m.user.uid.token.create":
			if r.PostFormValue("sid") != "" {
				t.Fatalf("session create must not carry a sid")
			}
			_, _ = io.WriteString(w, `{"success":true,"result":{"sid":"sid-1"}}`)
		case "tuya.m.my.group.list":
			if r.PostFormValue("sid") != "sid-1" {
				t.Fatalf("group list missing sid")
			}
			_, _ = io.WriteString(w, `{"success":true,"result":[{"groupId":42,"name":"Home"}]}`)
		case "tuya.m.my.group.device.list":
			_, _ = io.WriteString(w, `{"success":true,"result":[{"devId":"dev1","name":"RoboVac","localKey":"0123456789abcdef","productId":"s1pro"}]}`)
		default:
			t.Fatalf("unexpected action: %s", action)
		}
	}))
	defer server.Close()

	s := NewTuyaAPISession("uid-1", "31")
	s.baseURL = server.URL
	s.httpClient = server.Client()

	homes, err := s.ListHomes(context.Background())
	if err != nil {
		t.Fatalf("ListHomes: %v", err)
	}
	if len(homes) != 1 || homes[0].GroupID != 42 {
		t.Fatalf("unexpected homes: %+v", homes)
	}

	devices, err := s.ListDevices(context.Background(), homes[0].GroupID)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 1 || devices[0].DevID != "dev1" || devices[0].LocalKey != "0123456789abcdef" {
		t.Fatalf("unexpected devices: %+v", devices)
	}

	if len(actions) != 3 || actions[0] != "tuya.m.user.uid.token.create" {
		t.Fatalf("unexpected action order: %v", actions)
	}
}

func TestTuyaAPISessionRejectedCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":false,"errorCode":"USER_SESSION_INVALID","errorMsg":"expired"}`)
	}))
	defer server.Close()

	s := NewTuyaAPISession("uid-1", "31")
	s.baseURL = server.URL
	s.httpClient = server.Client()

	if _, err := s.ListHomes(context.Background()); err == nil {
		t.Fatalf("expected error from rejected call")
	}
}
